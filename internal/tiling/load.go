package tiling

import (
	"context"
	"fmt"
	"math"

	"github.com/airbusgeo/coverstore/internal/codec"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/airbusgeo/coverstore/internal/utils"
	"go.uber.org/zap"
)

// insertBatchSize is the number of tiles inserted at once
const insertBatchSize = 32

// batch accumulates the tiles to be inserted
type batch struct {
	ts    TileStore
	cov   string
	tiles []Tile
	blobs [][]byte
	count int
}

func (b *batch) add(ctx context.Context, t Tile, blob []byte) error {
	b.tiles = append(b.tiles, t)
	b.blobs = append(b.blobs, blob)
	if len(b.tiles) >= insertBatchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *batch) flush(ctx context.Context) error {
	if len(b.tiles) == 0 {
		return nil
	}
	if err := b.ts.InsertTiles(ctx, b.cov, b.tiles, b.blobs); err != nil {
		return err
	}
	b.count += len(b.tiles)
	b.tiles, b.blobs = nil, nil
	return nil
}

// checkResolution returns a ValidationError if a section with this resolution cannot be added to the coverage
func checkResolution(cov *coverage.Coverage, res coverage.Resolution) error {
	switch {
	case cov.Policies.StrictResolution:
		if res != cov.Res {
			return coverage.NewValidationError("coverage %s has a strict resolution of %v (got %v)", cov.Name, cov.Res, res)
		}
	case !cov.Policies.MixedResolutions:
		if !cov.Res.Equals(res, coverage.ResolutionTolerance) {
			return coverage.NewValidationError("coverage %s has a resolution of %v (got %v)", cov.Name, cov.Res, res)
		}
	}
	return nil
}

// Load creates a new section of the coverage and tiles it, pulling the pixels of every tile of the base
// level through the producer. If req.Pyramidize, the coarser levels are built by successive 2x reductions
// until a level fits in one tile.
// Load returns the new section.
func Load(ctx context.Context, ts TileStore, cov *coverage.Coverage, req coverage.LoadRequest, producer coverage.TileProducer) (coverage.Section, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return coverage.Section{}, coverage.NewValidationError("invalid section size %dx%d", req.Width, req.Height)
	}
	if !req.Res.Valid() || !req.Extent.Valid() {
		return coverage.Section{}, coverage.NewValidationError("invalid section georeference (resolution: %v, extent: %v)", req.Res, req.Extent)
	}
	if err := checkResolution(cov, req.Res); err != nil {
		return coverage.Section{}, err
	}

	section := coverage.Section{
		Name:   req.Section,
		Width:  req.Width,
		Height: req.Height,
		Res:    req.Res,
		Extent: req.Extent,
		SRID:   req.SRID,
	}
	if cov.Policies.SectionPaths {
		section.Path = req.Path
	}
	if cov.Policies.SectionMD5 {
		section.MD5 = req.MD5
	}
	if cov.Policies.SectionSummary {
		section.Summary = fmt.Sprintf("%s %s %d band(s) %dx%d", cov.Encoding.Pixel, cov.Encoding.Sample, cov.Encoding.Bands, req.Width, req.Height)
	}
	var err error
	if section.ID, err = ts.InsertSection(ctx, cov.Name, section); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}
	ctx = log.With(ctx, "section", section.ID)

	// The base level is only kept in memory to build the pyramid
	base, err := newPlane(cov.Encoding, 0, 0)
	if err != nil {
		return coverage.Section{}, err
	}
	base.width, base.height = req.Width, req.Height
	if req.Pyramidize {
		base.data = make([]byte, req.Width*req.Height*base.pixelSize())
	}

	b := &batch{ts: ts, cov: cov.Name}
	tw, th := cov.TileWidth, cov.TileHeight
	tileBuf := make([]byte, codec.TileSize(cov.Encoding, tw, th))
	stats := coverage.NewStatistics(cov.Encoding.Bands)
	var nodata []byte
	if nd := cov.ValidNoData(); nd != nil {
		nodata = nd.Bytes(base.dtype)
	}

	for ty := 0; ty < utils.CeilDiv(req.Height, th); ty++ {
		for tx := 0; tx < utils.CeilDiv(req.Width, tw); tx++ {
			ext := tileExtent(req.Extent.MinX, req.Extent.MaxY, req.Res, tw, th, tx, ty)
			clear(tileBuf)
			if err := producer(ctx, ext, tileBuf); err != nil {
				return coverage.Section{}, err
			}
			addStatistics(stats, base, nodata, tileBuf, tw, min(tw, req.Width-tx*tw), min(th, req.Height-ty*th))
			if base.data != nil {
				base.paste(tileBuf, tw, th, tx*tw, ty*th)
			}
			blob, err := codec.Encode(cov.Compression, cov.Quality, cov.Encoding, tw, th, tileBuf)
			if err != nil {
				return coverage.Section{}, err
			}
			if err := b.add(ctx, Tile{SectionID: section.ID, Level: 0, Extent: ext}, blob); err != nil {
				return coverage.Section{}, fmt.Errorf("Load.%w", err)
			}
		}
	}

	levels := []coverage.PyramidLevel{coverage.NewPyramidLevel(0, req.Res)}
	cur := base
	for k := 1; req.Pyramidize && (cur.width > tw || cur.height > th); k++ {
		cur = cur.downsample(nodata)
		if cur.enc != cov.Encoding {
			nodata = nil
		}
		res := req.Res.Scale(math.Pow(2, float64(k)))
		if err := loadLevel(ctx, b, cov, section.ID, k, cur, req.Extent, res); err != nil {
			return coverage.Section{}, err
		}
		levels = append(levels, coverage.NewPyramidLevel(k, res))
	}
	if err := b.flush(ctx); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}

	if err := ts.WriteLevels(ctx, cov.Name, section.ID, levels); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}
	if err := ts.WriteLevels(ctx, cov.Name, CoverageWide, levels); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}
	if err := ts.UpdateCoverageExtent(ctx, cov.Name, req.Extent); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}
	if err := ts.WriteStatistics(ctx, cov.Name, section.ID, stats); err != nil {
		return coverage.Section{}, fmt.Errorf("Load.%w", err)
	}
	metrics.ObserveTilesLoaded(cov.Name, b.count)
	log.Logger(ctx).Debug("section loaded", zap.Int("tiles", b.count), zap.Int("levels", len(levels)))
	return section, nil
}

// loadLevel tiles a level of the pyramid
func loadLevel(ctx context.Context, b *batch, cov *coverage.Coverage, sectionID int64, level int, p *plane, extent coverage.Extent, res coverage.Resolution) error {
	tw, th := cov.TileWidth, cov.TileHeight
	tileBuf := make([]byte, codec.TileSize(p.enc, tw, th))
	for ty := 0; ty < utils.CeilDiv(p.height, th); ty++ {
		for tx := 0; tx < utils.CeilDiv(p.width, tw); tx++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.crop(tileBuf, tw, th, tx*tw, ty*th)
			blob, err := codec.Encode(cov.Compression, cov.Quality, p.enc, tw, th, tileBuf)
			if err != nil {
				return err
			}
			t := Tile{SectionID: sectionID, Level: level, Extent: tileExtent(extent.MinX, extent.MaxY, res, tw, th, tx, ty)}
			if err := b.add(ctx, t, blob); err != nil {
				return fmt.Errorf("loadLevel.%w", err)
			}
		}
	}
	return nil
}

// addStatistics adds the valid pixels of the w x h top-left part of a tile of tw pixels width
func addStatistics(stats *coverage.Statistics, p *plane, nodata []byte, tile []byte, tw, w, h int) {
	ps := p.pixelSize()
	ss := p.dtype.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := tile[(y*tw+x)*ps : (y*tw+x+1)*ps]
			if nodata != nil && string(px) == string(nodata) {
				stats.NoDataCount++
				continue
			}
			for b := range stats.Bands {
				stats.Bands[b].Add(coverage.SampleAt(px[b*ss:], p.dtype))
			}
		}
	}
}
