package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"
)

// InsertSection implements tiling.TileStore
func (b *Backend) InsertSection(ctx context.Context, cov string, section coverage.Section) (int64, error) {
	err := b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		for _, s := range c.sections {
			if s.Name == section.Name {
				return coverage.NewEntityAlreadyExists("Section", "name", section.Name, "")
			}
		}
		st.nextSectionID++
		section.ID = st.nextSectionID
		c.sections = append(c.sections, section)
		return nil
	})
	return section.ID, err
}

// InsertTiles implements tiling.TileStore
func (b *Backend) InsertTiles(ctx context.Context, cov string, tiles []tiling.Tile, blobs [][]byte) error {
	if len(tiles) != len(blobs) {
		return fmt.Errorf("InsertTiles: %d tiles for %d blobs", len(tiles), len(blobs))
	}
	return b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		for i, t := range tiles {
			if _, err := c.section(t.SectionID); err != nil {
				return err
			}
			st.nextTileID++
			t.ID = st.nextTileID
			c.tiles = append(c.tiles, t)
			c.blobs[t.ID] = append([]byte{}, blobs[i]...)
		}
		return nil
	})
}

// FindTiles implements tiling.TileStore
func (b *Backend) FindTiles(ctx context.Context, cov string, sectionID int64, level int, window coverage.Extent) ([]tiling.Tile, error) {
	var tiles []tiling.Tile
	err := b.read(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		for _, t := range c.tiles {
			if t.Level == level && (sectionID == tiling.CoverageWide || t.SectionID == sectionID) && t.Extent.Intersects(window) {
				tiles = append(tiles, t)
			}
		}
		return nil
	})
	return tiles, err
}

// ReadTileData implements tiling.TileStore
func (b *Backend) ReadTileData(ctx context.Context, cov string, ids []int64) (map[int64][]byte, error) {
	blobs := make(map[int64][]byte, len(ids))
	err := b.read(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if blob, ok := c.blobs[id]; ok {
				blobs[id] = blob
			}
		}
		return nil
	})
	return blobs, err
}

func mergeLevels(levels []coverage.PyramidLevel, newLevels []coverage.PyramidLevel) []coverage.PyramidLevel {
	for _, l := range newLevels {
		exists := false
		for _, e := range levels {
			if e.Level == l.Level {
				exists = true
				break
			}
		}
		if !exists {
			levels = append(levels, l)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
	return levels
}

// WriteLevels implements tiling.TileStore
func (b *Backend) WriteLevels(ctx context.Context, cov string, sectionID int64, levels []coverage.PyramidLevel) error {
	return b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		if sectionID == tiling.CoverageWide {
			c.levels = mergeLevels(c.levels, levels)
		} else {
			c.sectionLevels[sectionID] = mergeLevels(c.sectionLevels[sectionID], levels)
		}
		return nil
	})
}

// SetLevels replaces the levels of a coverage (or of a section)
func (b *Backend) SetLevels(cov string, sectionID int64, levels []coverage.PyramidLevel) error {
	return b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		if sectionID == tiling.CoverageWide {
			c.levels = levels
		} else {
			c.sectionLevels[sectionID] = levels
		}
		return nil
	})
}

// ReadLevels implements tiling.TileStore
func (b *Backend) ReadLevels(ctx context.Context, cov string, sectionID int64) ([]coverage.PyramidLevel, error) {
	var levels []coverage.PyramidLevel
	err := b.read(func(st *state) error {
		c, ok := st.coverages[cov]
		if !ok {
			return nil
		}
		if sectionID == tiling.CoverageWide {
			levels = append(levels, c.levels...)
		} else {
			levels = append(levels, c.sectionLevels[sectionID]...)
		}
		return nil
	})
	return levels, err
}

// UpdateCoverageExtent implements tiling.TileStore
func (b *Backend) UpdateCoverageExtent(ctx context.Context, cov string, extent coverage.Extent) error {
	return b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err == nil {
			c.extent = c.extent.Union(extent)
		}
		return err
	})
}

// SectionIDs implements tiling.TileStore
func (b *Backend) SectionIDs(ctx context.Context, cov string) ([]int64, error) {
	var ids []int64
	err := b.read(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		for _, s := range c.sections {
			ids = append(ids, s.ID)
		}
		return nil
	})
	return ids, err
}

// WriteStatistics implements tiling.TileStore
func (b *Backend) WriteStatistics(ctx context.Context, cov string, sectionID int64, stats *coverage.Statistics) error {
	return b.write(func(st *state) error {
		c, err := st.coverage(cov)
		if err != nil {
			return err
		}
		c.sectionStats[sectionID] = stats
		merged := coverage.NewStatistics(len(stats.Bands))
		if c.stats != nil {
			if err := merged.Merge(c.stats); err != nil {
				return err
			}
		}
		if err := merged.Merge(stats); err != nil {
			return err
		}
		c.stats = merged
		return nil
	})
}
