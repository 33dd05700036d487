package tiling

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/airbusgeo/coverstore/internal/codec"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// ReadWindow decodes the pixels of a georeferenced window of the coverage (or of one of its sections)
// at the resolution of the request, using the coarsest level of the pyramid that is not coarser than
// the requested resolution.
// The pixels not covered by any tile are set to the nodata pixel of the coverage (zero if none).
// ReadWindow returns req.Width*req.Height pixel-interleaved pixels.
func ReadWindow(ctx context.Context, ts TileStore, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error) {
	start := time.Now()
	if req.Width <= 0 || req.Height <= 0 || !req.Extent.Valid() {
		return nil, coverage.NewValidationError("invalid window %dx%d %v", req.Width, req.Height, req.Extent)
	}
	res := req.Res
	if !res.Valid() {
		res = coverage.Resolution{X: req.Extent.Width() / float64(req.Width), Y: req.Extent.Height() / float64(req.Height)}
	}
	out, err := newPlane(cov.Encoding, req.Width, req.Height)
	if err != nil {
		return nil, err
	}
	if nd := cov.ValidNoData(); nd != nil {
		b := nd.Bytes(out.dtype)
		for i := 0; i < len(out.data); i += len(b) {
			copy(out.data[i:], b)
		}
	}

	switch {
	case req.SectionID >= 0:
		if _, err := readSection(ctx, ts, cov, req, res, req.SectionID, out); err != nil {
			return nil, err
		}
	case cov.Policies.MixedResolutions:
		sections, err := ts.SectionIDs(ctx, cov.Name)
		if err != nil {
			return nil, fmt.Errorf("ReadWindow.%w", err)
		}
		for _, sid := range sections {
			if _, err := readSection(ctx, ts, cov, req, res, sid, out); err != nil {
				return nil, err
			}
		}
	default:
		level, err := readSection(ctx, ts, cov, req, res, CoverageWide, out)
		if err != nil {
			return nil, err
		}
		if level > 0 {
			if err := readShallowSections(ctx, ts, cov, req, res, level, out); err != nil {
				return nil, err
			}
		}
	}
	metrics.ObserveWindowRead(cov.Name, time.Since(start).Seconds())
	return out.data, nil
}

// readSection paints the tiles of the section (or of the coverage) intersecting the window.
// It returns the level that was read (-1 if the section has no level).
func readSection(ctx context.Context, ts TileStore, cov *coverage.Coverage, req coverage.WindowRequest, res coverage.Resolution, sectionID int64, out *plane) (int, error) {
	levels, err := ts.ReadLevels(ctx, cov.Name, sectionID)
	if err != nil {
		return -1, fmt.Errorf("readSection.%w", err)
	}
	if len(levels) == 0 {
		return -1, nil
	}
	level := chooseLevel(levels, res)
	return level.Level, readLevel(ctx, ts, cov, req, res, sectionID, level, out)
}

// readShallowSections paints the sections whose pyramid stops before the level read coverage-wide,
// each one at its own coarsest level
func readShallowSections(ctx context.Context, ts TileStore, cov *coverage.Coverage, req coverage.WindowRequest, res coverage.Resolution, level int, out *plane) error {
	sections, err := ts.SectionIDs(ctx, cov.Name)
	if err != nil {
		return fmt.Errorf("readShallowSections.%w", err)
	}
	for _, sid := range sections {
		levels, err := ts.ReadLevels(ctx, cov.Name, sid)
		if err != nil {
			return fmt.Errorf("readShallowSections.%w", err)
		}
		if len(levels) == 0 || hasLevel(levels, level) {
			continue
		}
		if err := readLevel(ctx, ts, cov, req, res, sid, chooseLevel(levels, res), out); err != nil {
			return err
		}
	}
	return nil
}

func hasLevel(levels []coverage.PyramidLevel, level int) bool {
	for _, l := range levels {
		if l.Level == level {
			return true
		}
	}
	return false
}

// readLevel paints the tiles of a level of the section (or of the coverage) intersecting the window
func readLevel(ctx context.Context, ts TileStore, cov *coverage.Coverage, req coverage.WindowRequest, res coverage.Resolution, sectionID int64, level coverage.PyramidLevel, out *plane) error {
	tiles, err := ts.FindTiles(ctx, cov.Name, sectionID, level.Level, req.Extent)
	if err != nil || len(tiles) == 0 {
		return err
	}
	ids := make([]int64, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID
	}
	blobs, err := ts.ReadTileData(ctx, cov.Name, ids)
	if err != nil {
		return fmt.Errorf("readLevel.%w", err)
	}

	for _, t := range tiles {
		if _, ok := blobs[t.ID]; !ok {
			return coverage.NewEntityNotFound("Tile", "id", fmt.Sprint(t.ID), "")
		}
	}

	enc := LevelEncoding(cov, level.Level)
	decoded := make([][]byte, len(tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, req.Threads))
	for i, t := range tiles {
		blob := blobs[t.ID]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			decoded[i], err = codec.Decode(cov.Compression, enc, cov.TileWidth, cov.TileHeight, blob)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var remap func(byte) byte
	switch {
	case enc != cov.Encoding && req.OutPixel == coverage.PixelMONOCHROME:
		remap = binarize
	case enc.IsMonochrome1Bit() && req.OutPixel == coverage.PixelGRAYSCALE &&
		res.X > levelResolution(level).X*(1+coverage.ResolutionTolerance):
		// the base level serves a coarser resolution as the overviews do: 8-bit gray
		remap = expand
	}
	for i, t := range tiles {
		paint(out, req.Extent, t.Extent, decoded[i], cov.TileWidth, cov.TileHeight, levelResolution(level), remap)
	}
	return nil
}

func binarize(v byte) byte {
	if v > 127 {
		return 1
	}
	return 0
}

func expand(v byte) byte {
	if v != 0 {
		return 255
	}
	return 0
}

// paint nearest-samples the tile into the window, remapping the first sample of the pixels if remap is not nil
func paint(out *plane, window, tile coverage.Extent, data []byte, tw, th int, tileRes coverage.Resolution, remap func(byte) byte) {
	resX := window.Width() / float64(out.width)
	resY := window.Height() / float64(out.height)
	i0 := max(0, floorInt((tile.MinX-window.MinX)/resX))
	i1 := min(out.width, int(math.Ceil((tile.MaxX-window.MinX)/resX)))
	j0 := max(0, floorInt((window.MaxY-tile.MaxY)/resY))
	j1 := min(out.height, int(math.Ceil((window.MaxY-tile.MinY)/resY)))
	ps := out.pixelSize()
	for j := j0; j < j1; j++ {
		y := window.MaxY - (float64(j)+0.5)*resY
		r := floorInt((tile.MaxY - y) / tileRes.Y)
		if r < 0 || r >= th {
			continue
		}
		for i := i0; i < i1; i++ {
			x := window.MinX + (float64(i)+0.5)*resX
			c := floorInt((x - tile.MinX) / tileRes.X)
			if c < 0 || c >= tw {
				continue
			}
			dst := out.pixel(i, j)
			copy(dst, data[(r*tw+c)*ps:(r*tw+c+1)*ps])
			if remap != nil {
				dst[0] = remap(dst[0])
			}
		}
	}
}
