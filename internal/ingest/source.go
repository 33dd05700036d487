package ingest

import (
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/godal"
)

// SourceRaster is a raster to be ingested
type SourceRaster interface {
	// Size in pixels
	Size() (int, int)
	BandCount() int
	// DType of the samples (the same for all the bands)
	DType() coverage.DType
	// ColorInterp of the band (0-based)
	ColorInterp(band int) godal.ColorInterp
	// GeoTransform returns false if the raster is not georeferenced
	GeoTransform() (*affine.Affine, bool)
	// Projection returns the WKT of the spatial reference ("" if unknown)
	Projection() string
	// Read the w x h window at (x, y) into buf, pixel-interleaved, lineStride bytes apart.
	// The samples are native-endian.
	Read(x, y, w, h int, buf []byte, lineStride int) error
}

// MemSource is an in-memory SourceRaster
type MemSource struct {
	Width, Height int
	Bands         int
	Type          coverage.DType
	// Interps are the color interpretations of the bands (optional)
	Interps []godal.ColorInterp
	// Transform is the geotransform (nil if the raster is not georeferenced)
	Transform *affine.Affine
	WKT       string
	// Pix are the pixel-interleaved samples, line by line
	Pix []byte
}

var _ SourceRaster = &MemSource{}

// NewMemSource allocates the pixels of a raster
func NewMemSource(width, height, bands int, dtype coverage.DType, transform *affine.Affine) *MemSource {
	return &MemSource{
		Width:     width,
		Height:    height,
		Bands:     bands,
		Type:      dtype,
		Transform: transform,
		Pix:       make([]byte, width*height*bands*dtype.Size()),
	}
}

func (m *MemSource) Size() (int, int) { return m.Width, m.Height }
func (m *MemSource) BandCount() int { return m.Bands }
func (m *MemSource) DType() coverage.DType { return m.Type }
func (m *MemSource) Projection() string { return m.WKT }
func (m *MemSource) pixelSize() int { return m.Bands * m.Type.Size() }

// Pixel returns the samples of the pixel (x, y)
func (m *MemSource) Pixel(x, y int) []byte {
	return m.Pix[(y*m.Width+x)*m.pixelSize():][:m.pixelSize()]
}

func (m *MemSource) GeoTransform() (*affine.Affine, bool) { return m.Transform, m.Transform != nil }

func (m *MemSource) ColorInterp(band int) godal.ColorInterp {
	if band < len(m.Interps) {
		return m.Interps[band]
	}
	return godal.CIUndefined
}

func (m *MemSource) Read(x, y, w, h int, buf []byte, lineStride int) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > m.Width || y+h > m.Height {
		return fmt.Errorf("read: window %d,%d %dx%d out of bounds", x, y, w, h)
	}
	ps := m.pixelSize()
	if h > 0 && (h-1)*lineStride+w*ps > len(buf) {
		return fmt.Errorf("read: buffer too small")
	}
	for j := 0; j < h; j++ {
		copy(buf[j*lineStride:j*lineStride+w*ps], m.Pix[((y+j)*m.Width+x)*ps:])
	}
	return nil
}

// southUp presents a raster whose first line is the southernmost as a north-up raster
type southUp struct {
	SourceRaster
}

func (s southUp) GeoTransform() (*affine.Affine, bool) {
	gt, ok := s.SourceRaster.GeoTransform()
	if !ok {
		return nil, false
	}
	_, height := s.Size()
	return affine.NorthUp(gt[0], gt[3]+gt.Ry()*float64(height), gt.Rx(), gt.Ry()), true
}

func (s southUp) Read(x, y, w, h int, buf []byte, lineStride int) error {
	_, height := s.Size()
	if err := s.SourceRaster.Read(x, height-y-h, w, h, buf, lineStride); err != nil {
		return err
	}
	n := w * s.BandCount() * s.DType().Size()
	tmp := make([]byte, n)
	for i, j := 0, h-1; i < j; i, j = i+1, j-1 {
		li, lj := buf[i*lineStride:i*lineStride+n], buf[j*lineStride:j*lineStride+n]
		copy(tmp, li)
		copy(li, lj)
		copy(lj, tmp)
	}
	return nil
}
