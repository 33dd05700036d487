package pg

import (
	"context"
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/lib/pq"
)

// allocateTileIDs reserves n ids in the sequence of the tiles table
func (b Backend) allocateTileIDs(ctx context.Context, cov string, n int) (ids []int64, err error) {
	rows, err := b.pg.QueryContext(ctx, "SELECT nextval(pg_get_serial_sequence($1, 'tile_id')) FROM generate_series(1, $2)",
		tableName(cov, "tiles"), n)
	if err != nil {
		return nil, pqErrorFormat("allocateTileIDs.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pqErrorFormat("allocateTileIDs.scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertTiles implements tiling.TileStore
func (b Backend) InsertTiles(ctx context.Context, cov string, tiles []tiling.Tile, blobs [][]byte) error {
	if len(tiles) != len(blobs) {
		return fmt.Errorf("InsertTiles: %d tiles for %d blobs", len(tiles), len(blobs))
	}
	if len(tiles) == 0 {
		return nil
	}
	ids, err := b.allocateTileIDs(ctx, cov, len(tiles))
	if err != nil {
		return err
	}
	if len(ids) != len(tiles) {
		return fmt.Errorf("InsertTiles: %d ids allocated for %d tiles", len(ids), len(tiles))
	}

	tileRows := make([][]interface{}, len(tiles))
	dataRows := make([][]interface{}, len(tiles))
	for i, t := range tiles {
		tileRows[i] = []interface{}{ids[i], t.SectionID, t.Level, t.Extent.MinX, t.Extent.MinY, t.Extent.MaxX, t.Extent.MaxY}
		dataRows[i] = []interface{}{ids[i], blobs[i]}
	}
	if err := b.bulkInsert(ctx, cov+"_tiles", []string{"tile_id", "section_id", "pyramid_level", "minx", "miny", "maxx", "maxy"}, tileRows); err != nil {
		return fmt.Errorf("InsertTiles.%w", err)
	}
	if err := b.bulkInsert(ctx, cov+"_tile_data", []string{"tile_id", "tile_data"}, dataRows); err != nil {
		return fmt.Errorf("InsertTiles.%w", err)
	}
	return nil
}

// FindTiles implements tiling.TileStore
func (b Backend) FindTiles(ctx context.Context, cov string, sectionID int64, level int, window coverage.Extent) (tiles []tiling.Tile, err error) {
	conds := conditions{}
	conds.and("pyramid_level = $%d", level)
	conds.and("minx < $%d AND maxx > $%d AND miny < $%d AND maxy > $%d", window.MaxX, window.MinX, window.MaxY, window.MinY)
	if sectionID != tiling.CoverageWide {
		conds.and("section_id = $%d", sectionID)
	}
	rows, err := b.pg.QueryContext(ctx, "SELECT tile_id, section_id, pyramid_level, minx, miny, maxx, maxy FROM "+
		tableName(cov, "tiles")+conds.Where()+" ORDER BY tile_id", conds.Parameters...)
	switch pqErrorCode(err) {
	case noError:
	case undefinedTable:
		return nil, coverage.NewEntityNotFound("Coverage", "name", cov, "")
	default:
		return nil, pqErrorFormat("FindTiles.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	for rows.Next() {
		var t tiling.Tile
		if err := rows.Scan(&t.ID, &t.SectionID, &t.Level, &t.Extent.MinX, &t.Extent.MinY, &t.Extent.MaxX, &t.Extent.MaxY); err != nil {
			return nil, pqErrorFormat("FindTiles.scan: %w", err)
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// ReadTileData implements tiling.TileStore
func (b Backend) ReadTileData(ctx context.Context, cov string, ids []int64) (blobs map[int64][]byte, err error) {
	rows, err := b.pg.QueryContext(ctx, "SELECT tile_id, tile_data FROM "+tableName(cov, "tile_data")+" WHERE tile_id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, pqErrorFormat("ReadTileData.query: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil && err == nil {
			err = e
		}
	}()

	blobs = make(map[int64][]byte, len(ids))
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, pqErrorFormat("ReadTileData.scan: %w", err)
		}
		blobs[id] = blob
	}
	return blobs, rows.Err()
}
