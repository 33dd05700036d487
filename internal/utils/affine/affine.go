// Package affine handles 2D affine transformations, following the GDAL geotransform convention
package affine

import (
	"math"
	"math/big"
)

// Affine follows the GDAL transform convention:
// Xgeo = a[0] + Xpixel*a[1] + Yline*a[2]
// Ygeo = a[3] + Xpixel*a[4] + Yline*a[5]
type Affine [6]float64

func NewAffine(a, b, c, d, e, f float64) *Affine {
	res := Affine([6]float64{a, b, c, d, e, f})
	return &res
}

// FromGeoTransform wraps a GDAL geotransform
func FromGeoTransform(gt [6]float64) *Affine {
	res := Affine(gt)
	return &res
}

// NorthUp creates the transform of a north-up raster whose top-left corner is (minx, maxy)
func NorthUp(minx, maxy, resx, resy float64) *Affine {
	return NewAffine(minx, resx, 0, maxy, 0, -resy)
}

// Translation creates a translation transform from (offx, offy)
func Translation(offx, offy float64) *Affine {
	return NewAffine(offx, 1.0, 0, offy, 0, 1.0)
}

// Scale creates a scale transform from (scalex, scaley)
func Scale(scalex, scaley float64) *Affine {
	return NewAffine(0, scalex, 0, 0, 0, scaley)
}

// GeoTransform returns the affine as a GDAL geotransform
func (a *Affine) GeoTransform() [6]float64 {
	return [6]float64(*a)
}

// Rx returns the X resolution
func (a *Affine) Rx() float64 {
	return a[1]
}

// Ry returns the Y resolution (negative for a north-up raster)
func (a *Affine) Ry() float64 {
	return a[5]
}

// IsRotated returns true if the transform has a rotation or a shear term
func (a *Affine) IsRotated() bool {
	return a[2] != 0 || a[4] != 0
}

// IsInvertible returns true if the transformation is invertible
func (a *Affine) IsInvertible() bool {
	return a[1]*a[5] != a[2]*a[4] // det != 0
}

// Inverse creates the inverse of the affine transform.
// Inverse panics if it is not inversible
func (a *Affine) Inverse() *Affine {
	idet := 1.0 / (a[1]*a[5] - a[2]*a[4])
	res := Affine([6]float64{0, a[5] * idet, -a[2] * idet, 0, -a[4] * idet, a[1] * idet})
	res[0], res[3] = res.Transform(-a[0], -a[3])
	return &res
}

const (
	prec = 128
)

// highPrecisionTransform, such as highPrecisionTransform(xs, x+1, sy, y+1, o) = highPrecisionTransform(xs, x, sy, y, o) + highPrecisionTransform(xs, 1, sy, 1, 0)
func highPrecisionTransform(sx, x, sy, y, o float64) float64 {
	sX := big.NewFloat(sx).SetPrec(prec)
	sY := big.NewFloat(sy).SetPrec(prec)
	X := big.NewFloat(x).SetPrec(prec)
	Y := big.NewFloat(y).SetPrec(prec)
	O := big.NewFloat(o).SetPrec(prec)
	r, _ := O.Add(O, sX.Mul(sX, X)).Add(O, sY.Mul(sY, Y)).Float64() // o + sx*x + sy*y
	return r
}

// Multiply merges the two affines transforms into one.
func (a *Affine) Multiply(b *Affine) *Affine {
	return NewAffine(
		highPrecisionTransform(a[1], b[0], a[2], b[3], a[0]),
		highPrecisionTransform(a[1], b[1], a[2], b[4], 0),
		highPrecisionTransform(a[1], b[2], a[2], b[5], 0),
		highPrecisionTransform(a[4], b[0], a[5], b[3], a[3]),
		highPrecisionTransform(a[4], b[1], a[5], b[4], 0),
		highPrecisionTransform(a[4], b[2], a[5], b[5], 0),
	)
}

// Transform applies the affine transform to the point (x, y)
func (a *Affine) Transform(x float64, y float64) (float64, float64) {
	return highPrecisionTransform(a[1], x, a[2], y, a[0]), highPrecisionTransform(a[4], x, a[5], y, a[3])
}

// Bounds returns the georeferenced bounds of a raster of width x height pixels
func (a *Affine) Bounds(width, height int) (minx, miny, maxx, maxy float64) {
	x0, y0 := a.Transform(0, 0)
	x1, y1 := a.Transform(float64(width), float64(height))
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}
