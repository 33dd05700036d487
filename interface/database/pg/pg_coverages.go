package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/goccy/go-json"
)

var sqlSelectCoverage = "SELECT name, title, abstract, sample_type, pixel_type, num_bands, compression, quality," +
	" tile_width, tile_height, horz_resolution, vert_resolution, srid, nodata_pixel," +
	" strict_resolution, mixed_resolutions, section_paths, section_md5, section_summary" +
	" FROM " + schema + ".raster_coverages"

func scanCoverage(c *coverage.Coverage) []interface{} {
	return []interface{}{&c.Name, &c.Title, &c.Abstract, &c.Encoding.Sample, &c.Encoding.Pixel, &c.Encoding.Bands,
		&c.Compression, &c.Quality, &c.TileWidth, &c.TileHeight, &c.Res.X, &c.Res.Y, &c.SRID, &pqPixel{&c.NoData},
		&c.Policies.StrictResolution, &c.Policies.MixedResolutions, &c.Policies.SectionPaths,
		&c.Policies.SectionMD5, &c.Policies.SectionSummary}
}

// pqPixel stores a nodata pixel as bytea
type pqPixel struct{ Pixel **coverage.Pixel }

func (p *pqPixel) Scan(value interface{}) error {
	if value == nil {
		*p.Pixel = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("column is not a bytea")
	}
	px := &coverage.Pixel{}
	if err := px.UnmarshalBinary(b); err != nil {
		return err
	}
	*p.Pixel = px
	return nil
}

func (p pqPixel) Value() (driver.Value, error) {
	if *p.Pixel == nil {
		return nil, nil
	}
	return (*p.Pixel).MarshalBinary()
}

// pqPalette stores a palette as bytea
type pqPalette struct{ Palette **coverage.Palette }

func (p *pqPalette) Scan(value interface{}) error {
	if value == nil {
		*p.Palette = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("column is not a bytea")
	}
	pal := &coverage.Palette{}
	if err := pal.UnmarshalBinary(b); err != nil {
		return err
	}
	*p.Palette = pal
	return nil
}

func (p pqPalette) Value() (driver.Value, error) {
	if *p.Palette == nil {
		return nil, nil
	}
	return (*p.Palette).MarshalBinary()
}

// pqStatistics stores statistics as jsonb
type pqStatistics struct{ Statistics **coverage.Statistics }

func (s *pqStatistics) Scan(value interface{}) error {
	if value == nil {
		*s.Statistics = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("column is not a jsonb")
	}
	stats := &coverage.Statistics{}
	if err := json.Unmarshal(b, stats); err != nil {
		return err
	}
	*s.Statistics = stats
	return nil
}

func (s pqStatistics) Value() (driver.Value, error) {
	if *s.Statistics == nil {
		return nil, nil
	}
	return json.Marshal(*s.Statistics)
}

// ListCoverages implements RasterBackend
func (b Backend) ListCoverages(ctx context.Context) (covs []*coverage.Coverage, err error) {
	rows, err := b.pg.QueryContext(ctx, sqlSelectCoverage+" ORDER BY name")
	if err != nil {
		return nil, pqErrorFormat("ListCoverages.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	for rows.Next() {
		var c coverage.Coverage
		if err := rows.Scan(scanCoverage(&c)...); err != nil {
			return nil, pqErrorFormat("ListCoverages.scan: %w", err)
		}
		covs = append(covs, &c)
	}
	return covs, rows.Err()
}

// ReadCoverage implements RasterBackend
func (b Backend) ReadCoverage(ctx context.Context, name string) (*coverage.Coverage, error) {
	var c coverage.Coverage
	err := b.pg.QueryRowContext(ctx, sqlSelectCoverage+" WHERE name = $1", name).Scan(scanCoverage(&c)...)
	switch {
	case err == sql.ErrNoRows:
		return nil, coverage.NewEntityNotFound("Coverage", "name", name, "")
	case err != nil:
		return nil, pqErrorFormat("ReadCoverage: %w", err)
	}
	return &c, nil
}

// sqlCreateCoverageTables returns the ddl of the tables of a coverage
func sqlCreateCoverageTables(cov string) []string {
	sections, levels, sectionLevels := tableName(cov, "sections"), tableName(cov, "levels"), tableName(cov, "section_levels")
	tiles, tileData := tableName(cov, "tiles"), tableName(cov, "tile_data")
	resolutions := " x_resolution_1_1 double precision NOT NULL, y_resolution_1_1 double precision NOT NULL," +
		" x_resolution_1_2 double precision, y_resolution_1_2 double precision," +
		" x_resolution_1_4 double precision, y_resolution_1_4 double precision," +
		" x_resolution_1_8 double precision, y_resolution_1_8 double precision"
	return []string{
		"CREATE TABLE " + sections + " (" +
			" section_id bigserial PRIMARY KEY," +
			" section_name text NOT NULL UNIQUE," +
			" width integer NOT NULL," +
			" height integer NOT NULL," +
			" horz_resolution double precision NOT NULL," +
			" vert_resolution double precision NOT NULL," +
			" srid integer NOT NULL," +
			" minx double precision NOT NULL, miny double precision NOT NULL," +
			" maxx double precision NOT NULL, maxy double precision NOT NULL," +
			" summary text NOT NULL DEFAULT ''," +
			" md5_checksum text NOT NULL DEFAULT ''," +
			" file_path text NOT NULL DEFAULT ''," +
			" statistics jsonb," +
			" geometry geometry(Polygon))",
		"CREATE TABLE " + levels + " (pyramid_level integer PRIMARY KEY," + resolutions + ")",
		"CREATE TABLE " + sectionLevels + " (" +
			" section_id bigint NOT NULL REFERENCES " + sections + " ON DELETE CASCADE," +
			" pyramid_level integer NOT NULL," + resolutions + "," +
			" PRIMARY KEY (section_id, pyramid_level))",
		"CREATE TABLE " + tiles + " (" +
			" tile_id bigserial PRIMARY KEY," +
			" section_id bigint NOT NULL REFERENCES " + sections + " ON DELETE CASCADE," +
			" pyramid_level integer NOT NULL," +
			" minx double precision NOT NULL, miny double precision NOT NULL," +
			" maxx double precision NOT NULL, maxy double precision NOT NULL)",
		"CREATE INDEX ON " + tiles + " (pyramid_level, section_id)",
		"CREATE TABLE " + tileData + " (" +
			" tile_id bigint PRIMARY KEY REFERENCES " + tiles + " ON DELETE CASCADE," +
			" tile_data bytea NOT NULL)",
	}
}

// CreateCoverage implements RasterBackend
func (b Backend) CreateCoverage(ctx context.Context, cov *coverage.Coverage) error {
	if err := cov.Validate(); err != nil {
		return err
	}
	_, err := b.pg.ExecContext(ctx, "INSERT INTO "+schema+".raster_coverages (name, title, abstract,"+
		" sample_type, pixel_type, num_bands, compression, quality, tile_width, tile_height,"+
		" horz_resolution, vert_resolution, srid, nodata_pixel,"+
		" strict_resolution, mixed_resolutions, section_paths, section_md5, section_summary)"+
		" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)",
		cov.Name, cov.Title, cov.Abstract, cov.Encoding.Sample, cov.Encoding.Pixel, cov.Encoding.Bands,
		cov.Compression, cov.Quality, cov.TileWidth, cov.TileHeight, cov.Res.X, cov.Res.Y, cov.SRID, pqPixel{&cov.NoData},
		cov.Policies.StrictResolution, cov.Policies.MixedResolutions, cov.Policies.SectionPaths,
		cov.Policies.SectionMD5, cov.Policies.SectionSummary)
	switch pqErrorCode(err) {
	case noError:
	case uniqueViolation:
		return coverage.NewEntityAlreadyExists("Coverage", "name", cov.Name, "")
	case undefinedTable:
		return coverage.NewStoreFailure("CreateCoverage", fmt.Errorf("catalog does not exist"))
	default:
		return pqErrorFormat("CreateCoverage.insert: %w", err)
	}

	for _, query := range sqlCreateCoverageTables(cov.Name) {
		if _, err := b.pg.ExecContext(ctx, query); err != nil {
			return pqErrorFormat("CreateCoverage.tables: %w", err)
		}
	}
	return nil
}

// ReadCoverageExtent implements RasterBackend
func (b Backend) ReadCoverageExtent(ctx context.Context, name string) (coverage.Extent, error) {
	var minx, miny, maxx, maxy sql.NullFloat64
	err := b.pg.QueryRowContext(ctx, "SELECT extent_minx, extent_miny, extent_maxx, extent_maxy FROM "+schema+".raster_coverages"+
		" WHERE name = $1", name).Scan(&minx, &miny, &maxx, &maxy)
	switch {
	case err == sql.ErrNoRows:
		return coverage.Extent{}, coverage.NewEntityNotFound("Coverage", "name", name, "")
	case err != nil:
		return coverage.Extent{}, pqErrorFormat("ReadCoverageExtent: %w", err)
	}
	if !minx.Valid {
		return coverage.Extent{}, nil
	}
	return coverage.Extent{MinX: minx.Float64, MinY: miny.Float64, MaxX: maxx.Float64, MaxY: maxy.Float64}, nil
}

// UpdateCoverageExtent implements tiling.TileStore
func (b Backend) UpdateCoverageExtent(ctx context.Context, cov string, extent coverage.Extent) error {
	// LEAST and GREATEST ignore NULL
	res, err := b.pg.ExecContext(ctx, "UPDATE "+schema+".raster_coverages SET"+
		" extent_minx = LEAST(extent_minx, $2), extent_miny = LEAST(extent_miny, $3),"+
		" extent_maxx = GREATEST(extent_maxx, $4), extent_maxy = GREATEST(extent_maxy, $5)"+
		" WHERE name = $1", cov, extent.MinX, extent.MinY, extent.MaxX, extent.MaxY)
	return b.checkUpdated(res, err, "UpdateCoverageExtent", cov)
}

// ReadPalette implements RasterBackend
func (b Backend) ReadPalette(ctx context.Context, name string) (*coverage.Palette, error) {
	var p *coverage.Palette
	err := b.pg.QueryRowContext(ctx, "SELECT palette FROM "+schema+".raster_coverages WHERE name = $1", name).Scan(&pqPalette{&p})
	switch {
	case err == sql.ErrNoRows:
		return nil, coverage.NewEntityNotFound("Coverage", "name", name, "")
	case err != nil:
		return nil, pqErrorFormat("ReadPalette: %w", err)
	}
	return p, nil
}

// UpdatePalette implements RasterBackend
func (b Backend) UpdatePalette(ctx context.Context, name string, palette *coverage.Palette) error {
	res, err := b.pg.ExecContext(ctx, "UPDATE "+schema+".raster_coverages SET palette = $2 WHERE name = $1", name, pqPalette{&palette})
	return b.checkUpdated(res, err, "UpdatePalette", name)
}

// ReadStatistics implements RasterBackend
func (b Backend) ReadStatistics(ctx context.Context, name string, sectionID int64) (*coverage.Statistics, error) {
	var stats *coverage.Statistics
	var err error
	if sectionID == tiling.CoverageWide {
		err = b.pg.QueryRowContext(ctx, "SELECT statistics FROM "+schema+".raster_coverages WHERE name = $1", name).Scan(&pqStatistics{&stats})
	} else {
		err = b.pg.QueryRowContext(ctx, "SELECT statistics FROM "+tableName(name, "sections")+" WHERE section_id = $1", sectionID).Scan(&pqStatistics{&stats})
	}
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, pqErrorFormat("ReadStatistics: %w", err)
	}
	return stats, nil
}

// WriteStatistics implements tiling.TileStore
func (b Backend) WriteStatistics(ctx context.Context, cov string, sectionID int64, stats *coverage.Statistics) error {
	res, err := b.pg.ExecContext(ctx, "UPDATE "+tableName(cov, "sections")+" SET statistics = $2 WHERE section_id = $1", sectionID, pqStatistics{&stats})
	if err := b.checkUpdated(res, err, "WriteStatistics.section", fmt.Sprint(sectionID)); err != nil {
		return err
	}

	var covStats *coverage.Statistics
	err = b.pg.QueryRowContext(ctx, "SELECT statistics FROM "+schema+".raster_coverages WHERE name = $1 FOR UPDATE", cov).Scan(&pqStatistics{&covStats})
	switch {
	case err == sql.ErrNoRows:
		return coverage.NewEntityNotFound("Coverage", "name", cov, "")
	case err != nil:
		return pqErrorFormat("WriteStatistics.read: %w", err)
	}
	merged := coverage.NewStatistics(len(stats.Bands))
	if err := merged.Merge(covStats); err != nil {
		return fmt.Errorf("WriteStatistics: %w", err)
	}
	if err := merged.Merge(stats); err != nil {
		return fmt.Errorf("WriteStatistics: %w", err)
	}
	res, err = b.pg.ExecContext(ctx, "UPDATE "+schema+".raster_coverages SET statistics = $2 WHERE name = $1", cov, pqStatistics{&merged})
	return b.checkUpdated(res, err, "WriteStatistics.coverage", cov)
}

// checkUpdated returns EntityNotFound if the update did not affect any row
func (b Backend) checkUpdated(res sql.Result, err error, op, id string) error {
	if err != nil {
		return pqErrorFormat(op+": %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pqErrorFormat(op+".rowsAffected: %w", err)
	}
	if n == 0 {
		return coverage.NewEntityNotFound("", "", "", "%s: %s not found", op, id)
	}
	return nil
}
