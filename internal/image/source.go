// Package image adapts GDAL datasets (through godal) to the ingestion pipeline
package image

import (
	"fmt"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/ingest"
	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/coverstore/internal/utils/proj"
	"github.com/airbusgeo/godal"
)

// ErrLogger ignores the GDAL warnings and turns the GDAL errors into go errors
var ErrLogger = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("GDAL %d: %s", code, msg)
})

// GodalSource is an ingest.SourceRaster reading a GDAL dataset
type GodalSource struct {
	ds    *godal.Dataset
	owned bool
	dtype coverage.DType
	// srs overrides the projection of the dataset
	srs string
}

var _ ingest.SourceRaster = &GodalSource{}

// OpenSource opens the raster with GDAL. The returned source must be closed.
func OpenSource(uri string) (*GodalSource, error) {
	ds, err := godal.Open(uri, ErrLogger)
	if err != nil {
		return nil, fmt.Errorf("OpenSource.%w", err)
	}
	src, err := NewGodalSource(ds)
	if err != nil {
		ds.Close()
		return nil, err
	}
	src.owned = true
	return src, nil
}

// NewGodalSource wraps an opened dataset. The dataset must outlive the source.
func NewGodalSource(ds *godal.Dataset) (*GodalSource, error) {
	st := ds.Structure()
	dtype := coverage.DTypeFromGDal(st.DataType)
	if dtype == coverage.DTypeUNDEFINED {
		return nil, coverage.NewUnsupportedEncoding("unsupported GDAL data type: %s", st.DataType.String())
	}
	return &GodalSource{ds: ds, dtype: dtype}, nil
}

// OverrideSRS replaces the spatial reference of the source by the user input (epsg code, proj4 or wkt)
func (s *GodalSource) OverrideSRS(input string) error {
	crs, _, err := proj.CRSFromUserInput(input)
	if err != nil {
		return coverage.NewValidationError("invalid spatial reference %q: %v", input, err)
	}
	defer crs.Close()
	if s.srs, err = crs.WKT(); err != nil {
		return fmt.Errorf("OverrideSRS: %w", err)
	}
	return nil
}

// Close the underlying dataset if it has been opened by OpenSource
func (s *GodalSource) Close() error {
	if s.owned {
		s.owned = false
		return s.ds.Close()
	}
	return nil
}

func (s *GodalSource) Size() (int, int) {
	st := s.ds.Structure()
	return st.SizeX, st.SizeY
}

func (s *GodalSource) BandCount() int { return s.ds.Structure().NBands }

func (s *GodalSource) DType() coverage.DType { return s.dtype }

func (s *GodalSource) ColorInterp(band int) godal.ColorInterp {
	bands := s.ds.Bands()
	if band < 0 || band >= len(bands) {
		return godal.CIUndefined
	}
	return bands[band].ColorInterp()
}

func (s *GodalSource) GeoTransform() (*affine.Affine, bool) {
	gt, err := s.ds.GeoTransform()
	if err != nil {
		return nil, false
	}
	return affine.FromGeoTransform(gt), true
}

// Projection returns the WKT of the dataset, canonicalised by GDAL
func (s *GodalSource) Projection() string {
	if s.srs != "" {
		return s.srs
	}
	wkt := s.ds.Projection()
	if wkt == "" {
		return ""
	}
	return CanonicalWKT(wkt)
}

// Read implements ingest.SourceRaster. GDAL reads the window into a packed buffer
// that is copied line by line when lineStride is larger than a line.
func (s *GodalSource) Read(x, y, w, h int, buf []byte, lineStride int) error {
	lineSize := w * s.BandCount() * s.dtype.Size()
	if h > 0 && (h-1)*lineStride+lineSize > len(buf) {
		return fmt.Errorf("read: buffer too small")
	}
	if lineStride == lineSize {
		if err := s.ds.Read(x, y, getPix(buf[:h*lineSize], s.dtype), w, h); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return nil
	}
	tmp := make([]byte, h*lineSize)
	if err := s.ds.Read(x, y, getPix(tmp, s.dtype), w, h); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	for j := 0; j < h; j++ {
		copy(buf[j*lineStride:j*lineStride+lineSize], tmp[j*lineSize:])
	}
	return nil
}

// CanonicalWKT returns the WKT exported by GDAL, or wkt itself if GDAL cannot parse it
func CanonicalWKT(wkt string) string {
	sr, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return wkt
	}
	defer sr.Close()
	if res, err := sr.WKT(); err == nil {
		return res
	}
	return wkt
}

// getPix converts the bytes to a slice of the right type
func getPix(bytes []byte, dtype coverage.DType) interface{} {
	switch dtype {
	case coverage.DTypeUINT16:
		return utils.SliceByteToGeneric[uint16](bytes)
	case coverage.DTypeUINT32:
		return utils.SliceByteToGeneric[uint32](bytes)
	case coverage.DTypeINT16:
		return utils.SliceByteToGeneric[int16](bytes)
	case coverage.DTypeINT32:
		return utils.SliceByteToGeneric[int32](bytes)
	case coverage.DTypeFLOAT32:
		return utils.SliceByteToGeneric[float32](bytes)
	case coverage.DTypeFLOAT64:
		return utils.SliceByteToGeneric[float64](bytes)
	}
	return bytes
}
