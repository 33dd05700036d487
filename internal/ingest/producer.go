package ingest

import (
	"context"
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/utils"
)

// producer pulls the pixels of the tiles out of the source raster
type producer struct {
	src       SourceRaster
	gt        [6]float64
	tileWidth int
	progress  ProgressFunc
}

// window returns the pixel window of the georeferenced tile in the source raster
func (p *producer) window(tile coverage.Extent) (x, y, x2, y2 int) {
	x = utils.RoundHalfUp((tile.MinX - p.gt[0]) / p.gt[1])
	x2 = utils.RoundHalfUp((tile.MaxX - p.gt[0]) / p.gt[1])
	y = utils.RoundHalfUp((tile.MaxY - p.gt[3]) / p.gt[5])
	y2 = utils.RoundHalfUp((tile.MinY - p.gt[3]) / p.gt[5])
	return
}

// produce implements coverage.TileProducer
func (p *producer) produce(ctx context.Context, tile coverage.Extent, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	width, height := p.src.Size()
	x, y, x2, y2 := p.window(tile)
	reqWidth, reqHeight := x2-x, y2-y
	if x2 > width || y2 > height {
		// Edge tile
		clear(buf)
		reqWidth, reqHeight = min(reqWidth, width-x), min(reqHeight, height-y)
	}
	pixelStride := p.src.DType().Size() * p.src.BandCount()
	reqWidth = min(reqWidth, p.tileWidth)
	if reqHeight > 0 && reqWidth > 0 {
		if len(buf) < pixelStride*p.tileWidth*reqHeight {
			return coverage.NewShapeMismatch(len(buf), pixelStride*p.tileWidth*reqHeight)
		}
		if err := p.src.Read(x, y, reqWidth, reqHeight, buf, pixelStride*p.tileWidth); err != nil {
			return fmt.Errorf("produce(%d, %d, %dx%d): %w", x, y, reqWidth, reqHeight, err)
		}
	}
	if p.progress != nil && !p.progress(float64(y+reqHeight)/float64(height)) {
		return coverage.NewAborted("ingestion interrupted by the caller")
	}
	return nil
}
