package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/coverstore/internal/utils/proj"
)

var sqlSelectSection = "SELECT section_id, section_name, width, height, horz_resolution, vert_resolution, srid," +
	" minx, miny, maxx, maxy, summary, md5_checksum, file_path"

func scanSection(s *coverage.Section) []interface{} {
	return []interface{}{&s.ID, &s.Name, &s.Width, &s.Height, &s.Res.X, &s.Res.Y, &s.SRID,
		&s.Extent.MinX, &s.Extent.MinY, &s.Extent.MaxX, &s.Extent.MaxY, &s.Summary, &s.MD5, &s.Path}
}

// InsertSection implements tiling.TileStore
func (b Backend) InsertSection(ctx context.Context, cov string, section coverage.Section) (int64, error) {
	footprint := proj.NewFootprint(affine.NorthUp(section.Extent.MinX, section.Extent.MaxY, section.Res.X, section.Res.Y),
		section.Width, section.Height, section.SRID)
	err := b.pg.QueryRowContext(ctx, "INSERT INTO "+tableName(cov, "sections")+" (section_name, width, height,"+
		" horz_resolution, vert_resolution, srid, minx, miny, maxx, maxy, summary, md5_checksum, file_path, geometry)"+
		" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING section_id",
		section.Name, section.Width, section.Height, section.Res.X, section.Res.Y, section.SRID,
		section.Extent.MinX, section.Extent.MinY, section.Extent.MaxX, section.Extent.MaxY,
		section.Summary, section.MD5, section.Path, footprint).Scan(&section.ID)
	switch pqErrorCode(err) {
	case noError:
		return section.ID, nil
	case uniqueViolation:
		return 0, coverage.NewEntityAlreadyExists("Section", "name", section.Name, "")
	case undefinedTable:
		return 0, coverage.NewEntityNotFound("Coverage", "name", cov, "")
	}
	return 0, pqErrorFormat("InsertSection: %w", err)
}

// ListSections implements RasterBackend
func (b Backend) ListSections(ctx context.Context, cov string) (sections []coverage.Section, err error) {
	rows, err := b.pg.QueryContext(ctx, sqlSelectSection+" FROM "+tableName(cov, "sections")+" ORDER BY section_id")
	switch pqErrorCode(err) {
	case noError:
	case undefinedTable:
		return nil, coverage.NewEntityNotFound("Coverage", "name", cov, "")
	default:
		return nil, pqErrorFormat("ListSections.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	for rows.Next() {
		var s coverage.Section
		if err := rows.Scan(scanSection(&s)...); err != nil {
			return nil, pqErrorFormat("ListSections.scan: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ReadSection implements RasterBackend
func (b Backend) ReadSection(ctx context.Context, cov string, sectionID int64) (coverage.Section, error) {
	var s coverage.Section
	err := b.pg.QueryRowContext(ctx, sqlSelectSection+" FROM "+tableName(cov, "sections")+" WHERE section_id = $1", sectionID).Scan(scanSection(&s)...)
	switch pqErrorCode(err) {
	case noError:
		return s, nil
	case noData:
		return s, coverage.NewEntityNotFound("Section", "id", fmt.Sprint(sectionID), "")
	case undefinedTable:
		return s, coverage.NewEntityNotFound("Coverage", "name", cov, "")
	}
	return s, pqErrorFormat("ReadSection: %w", err)
}

// SectionIDs implements tiling.TileStore
func (b Backend) SectionIDs(ctx context.Context, cov string) (ids []int64, err error) {
	rows, err := b.pg.QueryContext(ctx, "SELECT section_id FROM "+tableName(cov, "sections")+" ORDER BY section_id")
	switch pqErrorCode(err) {
	case noError:
	case undefinedTable:
		return nil, coverage.NewEntityNotFound("Coverage", "name", cov, "")
	default:
		return nil, pqErrorFormat("SectionIDs.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pqErrorFormat("SectionIDs.scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var levelColumns = "pyramid_level, x_resolution_1_1, y_resolution_1_1, x_resolution_1_2, y_resolution_1_2," +
	" x_resolution_1_4, y_resolution_1_4, x_resolution_1_8, y_resolution_1_8"

// levelRow is a row of a levels table. Undefined resolutions are NULL.
type levelRow struct {
	level int
	res   [2 * len(coverage.PyramidScales)]sql.NullFloat64
}

func newLevelRow(pl coverage.PyramidLevel) levelRow {
	row := levelRow{level: pl.Level}
	for i, r := range pl.Res {
		if r.Valid() {
			row.res[2*i] = sql.NullFloat64{Float64: r.X, Valid: true}
			row.res[2*i+1] = sql.NullFloat64{Float64: r.Y, Valid: true}
		}
	}
	return row
}

func (row *levelRow) scan() []interface{} {
	dst := []interface{}{&row.level}
	for i := range row.res {
		dst = append(dst, &row.res[i])
	}
	return dst
}

func (row levelRow) values() []interface{} {
	values := []interface{}{row.level}
	for _, r := range row.res {
		values = append(values, r)
	}
	return values
}

func (row levelRow) pyramidLevel() coverage.PyramidLevel {
	pl := coverage.PyramidLevel{Level: row.level}
	for i := range pl.Res {
		x, y := row.res[2*i], row.res[2*i+1]
		if x.Valid && y.Valid {
			pl.Res[i] = coverage.Resolution{X: x.Float64, Y: y.Float64}
		}
	}
	return pl
}

// WriteLevels implements tiling.TileStore
func (b Backend) WriteLevels(ctx context.Context, cov string, sectionID int64, levels []coverage.PyramidLevel) error {
	for _, pl := range levels {
		row := newLevelRow(pl)
		var err error
		if sectionID == tiling.CoverageWide {
			_, err = b.pg.ExecContext(ctx, "INSERT INTO "+tableName(cov, "levels")+" ("+levelColumns+")"+
				" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING", row.values()...)
		} else {
			_, err = b.pg.ExecContext(ctx, "INSERT INTO "+tableName(cov, "section_levels")+" (section_id, "+levelColumns+")"+
				" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT DO NOTHING", append([]interface{}{sectionID}, row.values()...)...)
		}
		switch pqErrorCode(err) {
		case noError:
		case undefinedTable:
			return coverage.NewEntityNotFound("Coverage", "name", cov, "")
		default:
			return pqErrorFormat("WriteLevels: %w", err)
		}
	}
	return nil
}

// ReadLevels implements tiling.TileStore
func (b Backend) ReadLevels(ctx context.Context, cov string, sectionID int64) (levels []coverage.PyramidLevel, err error) {
	conds := conditions{}
	table := tableName(cov, "levels")
	if sectionID != tiling.CoverageWide {
		table = tableName(cov, "section_levels")
		conds.and("section_id = $%d", sectionID)
	}
	rows, err := b.pg.QueryContext(ctx, "SELECT "+levelColumns+" FROM "+table+conds.Where()+" ORDER BY pyramid_level", conds.Parameters...)
	switch pqErrorCode(err) {
	case noError:
	case undefinedTable:
		// No levels table: no levels
		return nil, nil
	default:
		return nil, pqErrorFormat("ReadLevels.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	for rows.Next() {
		var row levelRow
		if err := rows.Scan(row.scan()...); err != nil {
			return nil, pqErrorFormat("ReadLevels.scan: %w", err)
		}
		levels = append(levels, row.pyramidLevel())
	}
	return levels, rows.Err()
}
