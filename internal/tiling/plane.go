package tiling

import (
	"bytes"
	"math"

	"github.com/airbusgeo/coverstore/internal/coverage"
)

// plane is an in-memory raster of pixel-interleaved samples
type plane struct {
	enc           coverage.Encoding
	dtype         coverage.DType
	width, height int
	data          []byte
}

func newPlane(enc coverage.Encoding, width, height int) (*plane, error) {
	be, err := enc.Describe(false)
	if err != nil {
		return nil, err
	}
	return &plane{
		enc:    enc,
		dtype:  be.DType,
		width:  width,
		height: height,
		data:   make([]byte, width*height*enc.PixelSize()),
	}, nil
}

func (p *plane) pixelSize() int {
	return p.enc.PixelSize()
}

func (p *plane) pixel(x, y int) []byte {
	ps := p.pixelSize()
	off := (y*p.width + x) * ps
	return p.data[off : off+ps]
}

// paste copies the rows of a tile of tw x th pixels located at (x0, y0) into the plane, clipped to the plane
func (p *plane) paste(tile []byte, tw, th, x0, y0 int) {
	ps := p.pixelSize()
	w := min(tw, p.width-x0)
	for y := 0; y < th && y0+y < p.height; y++ {
		copy(p.data[((y0+y)*p.width+x0)*ps:((y0+y)*p.width+x0+w)*ps], tile[y*tw*ps:(y*tw+w)*ps])
	}
}

// crop copies the pixels of the plane located at (x0, y0) into a tile of tw x th pixels.
// The pixels of the tile outside of the plane are set to zero.
func (p *plane) crop(tile []byte, tw, th, x0, y0 int) {
	clear(tile)
	ps := p.pixelSize()
	w := min(tw, p.width-x0)
	for y := 0; y < th && y0+y < p.height; y++ {
		copy(tile[y*tw*ps:(y*tw+w)*ps], p.data[((y0+y)*p.width+x0)*ps:((y0+y)*p.width+x0+w)*ps])
	}
}

// downsample halves the plane, averaging the 2x2 blocks of pixels.
// Palette indices are subsampled. Monochrome pixels are expanded to 8-bit gray (0 or 255) before averaging.
// Pixels equal to nodata (if not nil) are ignored; a block with no valid pixel is set to nodata.
func (p *plane) downsample(nodata []byte) *plane {
	enc := p.enc
	mono := enc.IsMonochrome1Bit()
	if mono {
		enc = coverage.Encoding{Sample: coverage.SampleUINT8, Pixel: coverage.PixelGRAYSCALE, Bands: 1}
		nodata = nil
	}
	dst, _ := newPlane(enc, (p.width+1)/2, (p.height+1)/2)
	ss := p.dtype.Size()
	sums := make([]float64, enc.Bands)
	for y := 0; y < dst.height; y++ {
		for x := 0; x < dst.width; x++ {
			out := dst.pixel(x, y)
			if enc.Pixel == coverage.PixelPALETTE {
				copy(out, p.pixel(2*x, 2*y))
				continue
			}
			clear(sums)
			n := 0
			for j := 2 * y; j < min(2*y+2, p.height); j++ {
				for i := 2 * x; i < min(2*x+2, p.width); i++ {
					px := p.pixel(i, j)
					if nodata != nil && bytes.Equal(px, nodata) {
						continue
					}
					for b := range sums {
						v := coverage.SampleAt(px[b*ss:], p.dtype)
						if mono {
							v *= 255
						}
						sums[b] += v
					}
					n++
				}
			}
			if n == 0 {
				copy(out, nodata)
				continue
			}
			for b, s := range sums {
				v := s / float64(n)
				if !dst.dtype.IsFloatingPointFormat() {
					v = math.Round(v)
				}
				coverage.PutSample(out[b*dst.dtype.Size():], dst.dtype, v)
			}
		}
	}
	return dst
}
