package raster

import (
	"context"
	"fmt"
	"image/color"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// Band is a band of the full resolution or of an overview of a Dataset
type Band struct {
	owner *Dataset
	// level is 0 for the full resolution, i+1 for the overview i
	level int
	index int
}

// Index returns the 0-based index of the band
func (b Band) Index() int {
	return b.index
}

func (b Band) view() View {
	return b.owner.view(b.level)
}

// DataType of the samples returned by ReadBlock
func (b Band) DataType() coverage.DType {
	return b.owner.enc.DType
}

// BlockSize returns the size of a block (the tile size of the coverage)
func (b Band) BlockSize() (int, int) {
	return b.owner.cov.TileWidth, b.owner.cov.TileHeight
}

// BlockCount returns the number of blocks in each dimension
func (b Band) BlockCount() (int, int) {
	w, h := b.view().Size()
	bw, bh := b.BlockSize()
	return utils.CeilDiv(w, bw), utils.CeilDiv(h, bh)
}

// OverviewCount returns the number of overviews of the band (0 for a band of an overview)
func (b Band) OverviewCount() int {
	if b.level != 0 {
		return 0
	}
	return b.owner.OverviewCount()
}

// Overview returns the band at the overview i
func (b Band) Overview(i int) (Band, bool) {
	if b.level != 0 || i < 0 || i >= b.owner.OverviewCount() {
		return Band{}, false
	}
	return Band{owner: b.owner, level: i + 1, index: b.index}, true
}

// NoData returns the nodata value of a single-band coverage.
// Multi-band coverages expose their joint nodata pixel in the NODATA_VALUES metadata.
func (b Band) NoData() (float64, bool) {
	nd := b.owner.cov.ValidNoData()
	if nd == nil || b.owner.cov.Encoding.Bands != 1 {
		return 0, false
	}
	return nd.Values[0], true
}

// ColorInterp returns the color interpretation of the band
func (b Band) ColorInterp() godal.ColorInterp {
	return b.owner.bands[b.index].colorInterp
}

// Metadata returns a copy of the metadata of the band in the given domain.
// The bands of the overviews only carry the IMAGE_STRUCTURE domain.
func (b Band) Metadata(domain string) map[string]string {
	var src map[string]string
	switch domain {
	case DomainImageStructure:
		src = b.owner.bands[b.index].imageStructure
	case DomainDefault:
		if b.level == 0 {
			src = b.owner.bands[b.index].metadata
		}
	}
	md := make(map[string]string, len(src))
	for k, v := range src {
		md[k] = v
	}
	return md
}

// ColorTable returns the palette of a single-band PALETTE coverage (nil otherwise).
// The palette is read from the store on the first call.
func (b Band) ColorTable(ctx context.Context) ([]color.RGBA, error) {
	ds := b.owner
	if ds.cov.Encoding.Pixel != coverage.PixelPALETTE || ds.cov.Encoding.Bands != 1 {
		return nil, nil
	}
	ds.paletteMu.Lock()
	defer ds.paletteMu.Unlock()
	if !ds.paletteLoaded {
		p, err := ds.db.ReadPalette(ctx, ds.cov.Name)
		if err != nil {
			return nil, coverage.WrapStoreFailure("ReadPalette", err)
		}
		ds.palette, ds.paletteLoaded = p, true
	}
	if ds.palette == nil {
		return nil, nil
	}
	return ds.palette.ColorTable(ds.cov.ValidNoData()), nil
}

// blockWindow returns the georeferenced window of the block (bx, by)
func (b Band) blockWindow(bx, by int) coverage.Extent {
	gt := b.view().GeoTransform()
	bw, bh := b.BlockSize()
	minX := gt[0] + float64(bx*bw)*gt[1]
	maxY := gt[3] + float64(by*bh)*gt[5]
	return coverage.Extent{
		MinX: minX,
		MaxX: minX + float64(bw)*gt[1],
		MaxY: maxY,
		MinY: maxY + float64(bh)*gt[5],
	}
}

// ReadBlock decodes the block (bx, by) of the band into dst (BlockSize samples of DataType).
// The pixels of all the bands are decoded at once: the blocks of the other bands are cached,
// so that reading the same block of the other bands does not query the store again.
func (b Band) ReadBlock(ctx context.Context, bx, by int, dst []byte) error {
	nbx, nby := b.BlockCount()
	if bx < 0 || by < 0 || bx >= nbx || by >= nby {
		return coverage.NewValidationError("block (%d, %d) out of range [0, %d)x[0, %d)", bx, by, nbx, nby)
	}
	bw, bh := b.BlockSize()
	blockBytes := bw * bh * b.DataType().Size()
	if len(dst) < blockBytes {
		return coverage.NewValidationError("buffer too small: %d bytes instead of %d", len(dst), blockBytes)
	}

	key := b.blockKey(bx, by, b.index)
	if blk, ok := b.owner.cache.TryGet(key); ok {
		copy(dst, blk.Data)
		b.owner.cache.Release(blk)
		metrics.ObserveBlockRead(metrics.SourceCache)
		return nil
	}

	buf, err := b.fetch(ctx, bx, by)
	if err != nil {
		return err
	}
	b.deinterleave(dst[:blockBytes], buf, b.index)
	b.keep(key, dst[:blockBytes])
	b.populate(bx, by, buf)
	metrics.ObserveBlockRead(metrics.SourceStore)
	return nil
}

func (b Band) blockKey(bx, by, band int) BlockKey {
	return BlockKey{Dataset: b.owner.id, Level: b.level, Band: band, X: bx, Y: by}
}

// fetch returns the pixel-interleaved pixels of the block (bx, by) for all the bands
func (b Band) fetch(ctx context.Context, bx, by int) ([]byte, error) {
	ds := b.owner
	bw, bh := b.BlockSize()
	gt := b.view().GeoTransform()
	mono := ds.cov.Encoding.IsMonochrome1Bit()

	req := coverage.WindowRequest{
		SectionID: tiling.CoverageWide,
		Width:     bw,
		Height:    bh,
		Extent:    b.blockWindow(bx, by),
		Res:       coverage.Resolution{X: gt[1], Y: -gt[5]},
		OutPixel:  ds.cov.Encoding.Pixel,
		Threads:   1,
	}
	if mono {
		req.OutPixel = coverage.PixelGRAYSCALE
	}
	// The overviews of a section are coverage-wide, unless the resolutions are mixed
	if ds.sectionID >= 0 && (ds.cov.Policies.MixedResolutions || b.level == 0) {
		req.SectionID = ds.sectionID
	}

	buf, err := ds.db.ReadRawRaster(ctx, ds.cov, req)
	if err != nil {
		return nil, coverage.WrapStoreFailure(fmt.Sprintf("ReadRawRaster(block %d,%d)", bx, by), err)
	}
	nbands := len(ds.bands)
	expected := bw * bh * ds.enc.DType.Size() * nbands
	if len(buf) != expected {
		log.Logger(ctx).Debug(fmt.Sprintf("Got %d bytes instead of %d", len(buf), expected),
			zap.String("coverage", ds.cov.Name), zap.Int("bx", bx), zap.Int("by", by))
		return nil, coverage.NewShapeMismatch(len(buf), expected)
	}
	if mono && b.level > 0 && !ds.enc.Promoted() {
		for i, v := range buf {
			if v > 127 {
				buf[i] = 1
			} else {
				buf[i] = 0
			}
		}
	}
	return buf, nil
}

func (b Band) deinterleave(dst, buf []byte, band int) {
	dts := b.DataType().Size()
	utils.Deinterleave(dst, buf, dts*len(b.owner.bands), dts, band*dts)
}

// keep caches the block that was read
func (b Band) keep(key BlockKey, data []byte) {
	blk := b.owner.cache.Acquire(key, len(data))
	if !blk.Valid() {
		copy(blk.Data, data)
		blk.MarkValid()
	}
	b.owner.cache.Release(blk)
}

// populate caches the block (bx, by) of the other bands of a multi-band dataset, unless it is already cached
func (b Band) populate(bx, by int, buf []byte) {
	if len(b.owner.bands) < 2 {
		return
	}
	bw, bh := b.BlockSize()
	size := bw * bh * b.DataType().Size()
	for i := range b.owner.bands {
		if i == b.index {
			continue
		}
		key := b.blockKey(bx, by, i)
		if blk, ok := b.owner.cache.TryGet(key); ok {
			b.owner.cache.Release(blk)
			continue
		}
		blk := b.owner.cache.Acquire(key, size)
		if !blk.Valid() {
			b.deinterleave(blk.Data, buf, i)
			blk.MarkValid()
		}
		b.owner.cache.Release(blk)
	}
}
