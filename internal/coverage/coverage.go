package coverage

import (
	"context"
	"math"
	"path/filepath"
	"strings"
)

// ResolutionTolerance is the relative tolerance under which two resolutions are considered equal
const ResolutionTolerance = 1e-5

// Coverage describes a raster stored as tiles in sections and pyramid levels.
// It is read from the store when a dataset is opened and is never modified afterwards.
type Coverage struct {
	Name        string
	Title       string
	Abstract    string
	Encoding    Encoding
	Compression Compression
	Quality     int
	TileWidth   int
	TileHeight  int
	Res         Resolution
	SRID        int
	// NoData is the joint nodata pixel (optional)
	NoData   *Pixel
	Policies Policies
}

// Policies of the coverage regarding its sections
type Policies struct {
	// StrictResolution: all the sections must have the resolution of the coverage
	StrictResolution bool
	// MixedResolutions: each section has its own resolution and its own pyramid
	MixedResolutions bool
	SectionPaths     bool
	SectionMD5       bool
	SectionSummary   bool
}

// ValidNoData returns the nodata pixel if it matches the encoding of the coverage, nil otherwise
func (c *Coverage) ValidNoData() *Pixel {
	if c.NoData.Matches(c.Encoding) {
		return c.NoData
	}
	return nil
}

// Validate checks the descriptor before it is stored
func (c *Coverage) Validate() error {
	if c.Name == "" {
		return NewValidationError("coverage: empty name")
	}
	if err := c.Encoding.Validate(); err != nil {
		return err
	}
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		return NewValidationError("coverage %s: invalid tile size %dx%d", c.Name, c.TileWidth, c.TileHeight)
	}
	if c.TileWidth%8 != 0 || c.TileHeight%8 != 0 {
		return NewValidationError("coverage %s: tile size must be a multiple of 8 (got %dx%d)", c.Name, c.TileWidth, c.TileHeight)
	}
	if c.Res.X <= 0 || c.Res.Y <= 0 {
		return NewValidationError("coverage %s: invalid resolution %v", c.Name, c.Res)
	}
	if c.Quality < 0 || c.Quality > 100 {
		return NewValidationError("coverage %s: quality must be in [0, 100]", c.Name)
	}
	if c.Policies.StrictResolution && c.Policies.MixedResolutions {
		return NewValidationError("coverage %s: strict and mixed resolutions are exclusive", c.Name)
	}
	return nil
}

// Resolution is a (x, y) pixel size in units of the spatial reference
type Resolution struct {
	X, Y float64
}

// Valid returns true if the resolution is defined
func (r Resolution) Valid() bool {
	return r.X > 0 && r.Y > 0
}

// Equals returns true if the x-resolutions differ by less than tol (relative to r)
func (r Resolution) Equals(o Resolution, tol float64) bool {
	return math.Abs(o.X-r.X) < tol*r.X
}

// Scale returns the resolution multiplied by f
func (r Resolution) Scale(f float64) Resolution {
	return Resolution{X: r.X * f, Y: r.Y * f}
}

// Extent is a georeferenced rectangle
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Valid returns true if the extent is not empty
func (e Extent) Valid() bool {
	return e.MaxX > e.MinX && e.MaxY > e.MinY
}

// Width of the extent
func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

// Height of the extent
func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

// Intersects returns true if the interiors of the extents intersect
func (e Extent) Intersects(o Extent) bool {
	return e.MinX < o.MaxX && o.MinX < e.MaxX && e.MinY < o.MaxY && o.MinY < e.MaxY
}

// Union returns the smallest extent containing e and o. An invalid extent is ignored.
func (e Extent) Union(o Extent) Extent {
	if !e.Valid() {
		return o
	}
	if !o.Valid() {
		return e
	}
	return Extent{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// PyramidScales are the scales at which the tiles of a level can be decoded
var PyramidScales = [4]float64{1, 2, 4, 8}

// PyramidLevel is one row of the levels table of a coverage or a section.
// Res holds the resolutions at scale 1:1, 1:2, 1:4 and 1:8. An undefined resolution is zero.
type PyramidLevel struct {
	Level int
	Res   [4]Resolution
}

// NewPyramidLevel creates the level whose full resolution is res
func NewPyramidLevel(level int, res Resolution) PyramidLevel {
	pl := PyramidLevel{Level: level}
	for i, s := range PyramidScales {
		pl.Res[i] = res.Scale(s)
	}
	return pl
}

// Section is a named sub-raster of a coverage, tiled independently
type Section struct {
	ID      int64
	Name    string
	Width   int
	Height  int
	Res     Resolution
	Extent  Extent
	SRID    int
	Summary string
	// MD5 of the source file, if the policy SectionMD5 is set
	MD5 string
	// Path of the source file, if the policy SectionPaths is set
	Path string
}

// DefaultName returns the basename of the file, without extension
func DefaultName(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// WindowRequest asks the store for the decoded pixels of a georeferenced window
type WindowRequest struct {
	// SectionID restricts the request to one section. -1 for the whole coverage
	SectionID int64
	Width     int
	Height    int
	Extent    Extent
	Res       Resolution
	// OutPixel is the pixel type of the returned samples
	OutPixel PixelType
	// Threads is the number of decoding workers
	Threads int
}

// LoadRequest asks the store to tile a new section, pulling its pixels through a TileProducer
type LoadRequest struct {
	Section    string
	Width      int
	Height     int
	Res        Resolution
	Extent     Extent
	SRID       int
	Path       string
	// MD5 of the source file (optional)
	MD5        string
	Pyramidize bool
}

// TileProducer fills buf with the pixels of the given tile extent
// (pixel-interleaved, native-endian samples of the decoded type, TileWidth*TileHeight pixels).
// Returning an error aborts the load.
type TileProducer func(ctx context.Context, tile Extent, buf []byte) error
