package affine

import (
	"fmt"
	"math"
	"testing"

	"github.com/airbusgeo/coverstore/internal/utils"
)

const (
	i0 = 600 * 256
	j0 = 300 * 256
)

func test(t *testing.T, prefix string, x0, x1 float64, counter *int) {
	if math.Abs(x0-x1) > 1e-9 {
		t.Errorf("Expected %s %s==%s (diff=%v)", prefix, utils.F64ToS(x0), utils.F64ToS(x1), x0-x1)
		*counter += 1
	}
}

func TestHighPrecision(t *testing.T) {
	// Webmercator origin, zoom=10
	earthRadius := 6378137.0
	ox, oy := -earthRadius*math.Pi, earthRadius*math.Pi
	resolution := 2 * earthRadius * math.Pi / (256 * (1 << 10))

	a := Translation(ox, oy).Multiply(Scale(resolution, -resolution))
	a0 := a.Multiply(Translation(i0, j0))
	n := 0
	for d := 1024.0; d < 16384; d += 256 {
		x0, y0 := a0.Transform(d, d)
		x1, y1 := a.Transform(i0+d, j0+d)
		test(t, fmt.Sprintf("X+(%0.f", d), x0, x1, &n)
		test(t, fmt.Sprintf("Y+(%0.f", d), y0, y1, &n)
	}
	if n != 0 {
		t.Errorf("%d failed", n)
	}
}

func TestNorthUp(t *testing.T) {
	a := NorthUp(1000, 2000, 10, 20)
	if a.IsRotated() || !a.IsInvertible() {
		t.Fatalf("expecting a north-up invertible transform")
	}
	if a.GeoTransform() != [6]float64{1000, 10, 0, 2000, 0, -20} {
		t.Errorf("GeoTransform: got %v", a.GeoTransform())
	}
	minx, miny, maxx, maxy := a.Bounds(100, 50)
	n := 0
	test(t, "minx", minx, 1000, &n)
	test(t, "miny", miny, 1000, &n)
	test(t, "maxx", maxx, 2000, &n)
	test(t, "maxy", maxy, 2000, &n)

	x, y := a.Inverse().Transform(1500, 1500)
	test(t, "px", x, 50, &n)
	test(t, "py", y, 25, &n)

	if !FromGeoTransform([6]float64{0, 1, 0.1, 0, 0, -1}).IsRotated() {
		t.Errorf("expecting a rotation")
	}
}
