package proj

import (
	"database/sql/driver"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/coverstore/internal/utils/affine"
	"github.com/airbusgeo/godal"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
)

// CRSFromUserInput initialize a crs from epsg, proj4 or Wkt format
// Return the SRID if known
func CRSFromUserInput(input string) (*godal.SpatialRef, int, error) {
	var err error
	var crs *godal.SpatialRef
	if epsg, err := strconv.Atoi(input); err == nil {
		crs, err = godal.NewSpatialRefFromEPSG(epsg)
		return crs, epsg, err
	}
	if strings.HasPrefix(strings.ToLower(input), "epsg:") {
		epsg, err := strconv.Atoi(input[5:])
		if err != nil {
			return nil, 0, err
		}
		crs, err = godal.NewSpatialRefFromEPSG(epsg)
		return crs, epsg, err
	}
	if strings.HasPrefix(input, "+") {
		crs, err = godal.NewSpatialRefFromProj4(input)
		return crs, Srid(crs), err
	}
	crs, err = godal.NewSpatialRefFromWKT(input)
	return crs, Srid(crs), err
}

var crsEPSG = map[int]*godal.SpatialRef{}
var crsEPSGLock sync.Mutex

// CRSFromEPSG initialize a crs from epsg (only once per epsg)
// DO NOT release the crs (it is kept for further uses)
func CRSFromEPSG(epsg int) (*godal.SpatialRef, error) {
	crsEPSGLock.Lock()
	defer crsEPSGLock.Unlock()

	if crs, ok := crsEPSG[epsg]; ok && crs != nil {
		return crs, nil
	}

	crs, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return nil, fmt.Errorf("CRSFromEPSG: %w", err)
	}
	runtime.SetFinalizer(crs, func(crs *godal.SpatialRef) { crs.Close() })
	crsEPSG[epsg] = crs
	return crs, nil
}

// Srid returns the EPSG code of the crs or 0 if not found
// Warning : this function is not reliable...
func Srid(crs *godal.SpatialRef) int {
	if crs == nil {
		return 0
	}
	entities := []string{"PROJCS", "PROJCS", "LOCAL_CS", "GEOGCS"}
	for i, entity := range entities {
		if crs.AuthorityName(entity) == "EPSG" {
			if res, err := strconv.Atoi(crs.AuthorityCode(entity)); err == nil {
				return res
			}
		}
		if i == 0 {
			crs.AutoIdentifyEPSG()
		}
	}
	return 0
}

// Footprint is the XY polygon covered by a raster, implementing Scan & Value (hex-encoded EWKB)
type Footprint struct {
	geom.Polygon
}

// NewFootprint returns the footprint of a raster of width x height pixels
func NewFootprint(pixToCrs *affine.Affine, width, height, srid int) Footprint {
	xMin, yMin, xMax, yMax := pixToCrs.Bounds(width, height)
	bounds := geom.NewBounds(geom.XY)
	bounds.SetCoords([]float64{xMin, yMin}, []float64{xMax, yMax})
	p := bounds.Polygon()
	p.SetSRID(srid)
	return Footprint{*p}
}

// Equal returns true if the footprints have the same SRID and the same FlatCoords
func (f *Footprint) Equal(f2 *Footprint) bool {
	if f.SRID() != f2.SRID() || len(f.FlatCoords()) != len(f2.FlatCoords()) {
		return false
	}
	for i, v := range f.FlatCoords() {
		if v != f2.FlatCoords()[i] {
			return false
		}
	}
	return true
}

// Value implements the driver.Valuer interface.
func (f Footprint) Value() (driver.Value, error) {
	return ewkbhex.Encode(&f.Polygon, ewkbhex.NDR)
}

// Scan implements the sql.Scanner interface.
func (f *Footprint) Scan(src interface{}) error {
	if src == nil {
		*f = Footprint{}
		return nil
	}
	var s string
	switch src := src.(type) {
	case []uint8:
		s = string(src)
	case string:
		s = src
	default:
		return fmt.Errorf("cannot convert %T to Footprint", src)
	}
	g, err := ewkbhex.Decode(s)
	if err != nil {
		return err
	}
	p, ok := g.(*geom.Polygon)
	if !ok {
		return fmt.Errorf("footprint.Scan: data is not a polygon")
	}
	f.Polygon = *p
	return nil
}
