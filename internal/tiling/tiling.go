// Package tiling tiles the sections of a coverage into pyramids of compressed tiles and
// decodes georeferenced windows out of them. The persistence is delegated to a TileStore.
package tiling

import (
	"context"
	"math"
	"sort"

	"github.com/airbusgeo/coverstore/internal/coverage"
)

// CoverageWide is the section id designating the whole coverage
const CoverageWide int64 = -1

// Tile is the record of a compressed tile
type Tile struct {
	ID        int64
	SectionID int64
	// Level in the pyramid of the section (0 is the full resolution)
	Level int
	// Extent covered by the tile, including its padding
	Extent coverage.Extent
}

// TileStore are the persistence primitives used to load and to read the tiles of a coverage
type TileStore interface {
	// InsertSection creates the section and returns its id
	InsertSection(ctx context.Context, cov string, section coverage.Section) (int64, error)
	// InsertTiles inserts the tiles and their compressed data (tiles[i] is stored with blobs[i])
	InsertTiles(ctx context.Context, cov string, tiles []Tile, blobs [][]byte) error
	// FindTiles returns the tiles of the level intersecting the window.
	// sectionID is CoverageWide to search all the sections.
	FindTiles(ctx context.Context, cov string, sectionID int64, level int, window coverage.Extent) ([]Tile, error)
	// ReadTileData returns the compressed data of the tiles, by tile id
	ReadTileData(ctx context.Context, cov string, ids []int64) (map[int64][]byte, error)
	// WriteLevels inserts the levels of the section (or of the coverage if CoverageWide), ignoring the ones already defined
	WriteLevels(ctx context.Context, cov string, sectionID int64, levels []coverage.PyramidLevel) error
	// ReadLevels returns the levels of the section (or of the coverage if CoverageWide), ordered by level.
	// Levels that are not defined return an empty slice and no error.
	ReadLevels(ctx context.Context, cov string, sectionID int64) ([]coverage.PyramidLevel, error)
	// UpdateCoverageExtent extends the extent of the coverage to include the given extent
	UpdateCoverageExtent(ctx context.Context, cov string, extent coverage.Extent) error
	// SectionIDs returns the ids of the sections of the coverage
	SectionIDs(ctx context.Context, cov string) ([]int64, error)
	// WriteStatistics stores the statistics of the section and merges them into the statistics of the coverage
	WriteStatistics(ctx context.Context, cov string, sectionID int64, stats *coverage.Statistics) error
}

// LevelEncoding returns the encoding of the tiles stored at a level of the pyramid:
// monochrome levels coarser than the base are stored as 8-bit grayscale
func LevelEncoding(cov *coverage.Coverage, level int) coverage.Encoding {
	if level > 0 && cov.Encoding.IsMonochrome1Bit() {
		return coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelGRAYSCALE, Bands: 1}
	}
	return cov.Encoding
}

// tileExtent returns the extent of the tile (tx, ty) of a grid anchored at (minx, maxy)
func tileExtent(minx, maxy float64, res coverage.Resolution, tw, th, tx, ty int) coverage.Extent {
	return coverage.Extent{
		MinX: minx + float64(tx*tw)*res.X,
		MaxX: minx + float64((tx+1)*tw)*res.X,
		MaxY: maxy - float64(ty*th)*res.Y,
		MinY: maxy - float64((ty+1)*th)*res.Y,
	}
}

// levelResolution returns the full resolution of a level row
func levelResolution(pl coverage.PyramidLevel) coverage.Resolution {
	return pl.Res[0]
}

// chooseLevel returns the coarsest level whose resolution is not coarser than res.
// If all the levels are coarser, the finest one is returned.
func chooseLevel(levels []coverage.PyramidLevel, res coverage.Resolution) coverage.PyramidLevel {
	sorted := append([]coverage.PyramidLevel{}, levels...)
	sort.Slice(sorted, func(i, j int) bool { return levelResolution(sorted[i]).X < levelResolution(sorted[j]).X })
	best := sorted[0]
	for _, l := range sorted[1:] {
		if levelResolution(l).X <= res.X*(1+coverage.ResolutionTolerance) {
			best = l
		}
	}
	return best
}

func floorInt(v float64) int {
	return int(math.Floor(v))
}
