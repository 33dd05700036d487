package raster

import (
	"strings"

	"github.com/airbusgeo/coverstore/internal/coverage"
)

// Open option keys
const (
	OptPromote1Bit   = "1BIT_AS_8BIT"
	OptShowAllLevels = "SHOW_ALL_LEVELS"
)

// OpenOptions configures the opening of a Dataset
type OpenOptions struct {
	// Promote1Bit exposes 1-bit monochrome coverages as 8-bit bands (SOURCE_NBITS=1)
	Promote1Bit bool
	// ShowAllLevels keeps the overviews whose both dimensions are smaller than 64 pixels
	ShowAllLevels bool
	// Cache of the decoded blocks (nil: a new LRUBlockCache of DefaultCacheSize blocks)
	Cache BlockCache
}

// DefaultOpenOptions returns the options with their default values
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{Promote1Bit: true}
}

// ParseOpenOptions parses the KEY=VALUE open options
func ParseOpenOptions(kv map[string]string) (OpenOptions, error) {
	o := DefaultOpenOptions()
	for k, v := range kv {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key != OptPromote1Bit && key != OptShowAllLevels {
			return o, coverage.NewValidationError("unknown open option %s", k)
		}
		b, err := coverage.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return o, coverage.NewValidationError("%s must be a boolean (got %s)", key, v)
		}
		if key == OptPromote1Bit {
			o.Promote1Bit = b
		} else {
			o.ShowAllLevels = b
		}
	}
	return o, nil
}
