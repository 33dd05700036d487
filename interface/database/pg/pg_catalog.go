package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/airbusgeo/coverstore/internal/coverage"
)

// firstUserSRID is the first srid allocated to the spatial references registered by FindOrCreateSpatialRef
const firstUserSRID = 900000

var sqlCreateCatalog = []string{
	"CREATE SCHEMA IF NOT EXISTS " + schema,
	"CREATE TABLE IF NOT EXISTS " + schema + ".spatial_ref_sys (" +
		" srid integer PRIMARY KEY," +
		" srtext text NOT NULL)",
	"CREATE INDEX IF NOT EXISTS spatial_ref_sys_srtext_idx ON " + schema + ".spatial_ref_sys USING hash (srtext)",
	"CREATE SEQUENCE IF NOT EXISTS " + schema + ".spatial_ref_sys_srid_seq START " + strconv.Itoa(firstUserSRID),
	"CREATE TABLE IF NOT EXISTS " + schema + ".raster_coverages (" +
		" name text PRIMARY KEY," +
		" title text NOT NULL DEFAULT ''," +
		" abstract text NOT NULL DEFAULT ''," +
		" sample_type text NOT NULL," +
		" pixel_type text NOT NULL," +
		" num_bands integer NOT NULL," +
		" compression text NOT NULL," +
		" quality integer NOT NULL," +
		" tile_width integer NOT NULL," +
		" tile_height integer NOT NULL," +
		" horz_resolution double precision NOT NULL," +
		" vert_resolution double precision NOT NULL," +
		" srid integer NOT NULL," +
		" nodata_pixel bytea," +
		" palette bytea," +
		" statistics jsonb," +
		" strict_resolution boolean NOT NULL DEFAULT false," +
		" mixed_resolutions boolean NOT NULL DEFAULT false," +
		" section_paths boolean NOT NULL DEFAULT false," +
		" section_md5 boolean NOT NULL DEFAULT false," +
		" section_summary boolean NOT NULL DEFAULT false," +
		" extent_minx double precision," +
		" extent_miny double precision," +
		" extent_maxx double precision," +
		" extent_maxy double precision)",
}

// CatalogExists implements RasterBackend
func (b Backend) CatalogExists(ctx context.Context) (bool, error) {
	var exists bool
	err := b.pg.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables"+
		" WHERE table_schema = $1 AND table_name = 'raster_coverages')", schema).Scan(&exists)
	if err != nil {
		return false, pqErrorFormat("CatalogExists: %w", err)
	}
	return exists, nil
}

// CreateCatalog implements RasterBackend
func (b Backend) CreateCatalog(ctx context.Context) error {
	for _, query := range sqlCreateCatalog {
		if _, err := b.pg.ExecContext(ctx, query); err != nil {
			return pqErrorFormat("CreateCatalog: %w", err)
		}
	}
	return nil
}

// ReadSpatialRef implements RasterBackend
func (b Backend) ReadSpatialRef(ctx context.Context, srid int) (string, error) {
	var wkt string
	err := b.pg.QueryRowContext(ctx, "SELECT srtext FROM "+schema+".spatial_ref_sys WHERE srid = $1", srid).Scan(&wkt)
	switch {
	case err == sql.ErrNoRows:
		return "", coverage.NewEntityNotFound("SpatialRef", "srid", strconv.Itoa(srid), "")
	case err != nil:
		return "", pqErrorFormat("ReadSpatialRef: %w", err)
	}
	return wkt, nil
}

// FindOrCreateSpatialRef implements RasterBackend
func (b Backend) FindOrCreateSpatialRef(ctx context.Context, wkt string) (int, error) {
	var srid int
	err := b.pg.QueryRowContext(ctx, "SELECT srid FROM "+schema+".spatial_ref_sys WHERE srtext = $1 ORDER BY srid LIMIT 1", wkt).Scan(&srid)
	switch {
	case err == nil:
		return srid, nil
	case err != sql.ErrNoRows:
		return 0, pqErrorFormat("FindOrCreateSpatialRef.find: %w", err)
	}

	err = b.pg.QueryRowContext(ctx, "INSERT INTO "+schema+".spatial_ref_sys (srid, srtext)"+
		" VALUES (nextval('"+schema+".spatial_ref_sys_srid_seq'), $1) RETURNING srid", wkt).Scan(&srid)
	if err != nil {
		return 0, pqErrorFormat(fmt.Sprintf("FindOrCreateSpatialRef.insert(%.20s...): %%w", wkt), err)
	}
	return srid, nil
}
