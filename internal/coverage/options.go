package coverage

import (
	"strconv"
	"strings"
)

// DefaultBlockSize is the default tile width and height of a new coverage
const DefaultBlockSize = 512

// Ingest option keys
const (
	OptCoverage         = "COVERAGE"
	OptSection          = "SECTION"
	OptPixelType        = "PIXEL_TYPE"
	OptCompress         = "COMPRESS"
	OptQuality          = "QUALITY"
	OptBlockXSize       = "BLOCKXSIZE"
	OptBlockYSize       = "BLOCKYSIZE"
	OptSRID             = "SRID"
	OptAppendSubdataset = "APPEND_SUBDATASET"
)

// IngestOptions configures the creation of a coverage or of a new section of a coverage
type IngestOptions struct {
	// Coverage name (default: basename of the target)
	Coverage string
	// Section name (default: basename of the target)
	Section string
	// PixelType overrides the pixel type inferred from the source (nil: inferred)
	PixelType *PixelType
	// Compression of the tiles, before applying the quality (see Compression.WithQuality)
	Compression Compression
	// Quality (nil: default of the compression)
	Quality    *int
	BlockXSize int
	BlockYSize int
	// SRID of the spatial reference (0: resolved from the projection of the source)
	SRID int
	// AppendSubdataset adds a section to an existing coverage
	AppendSubdataset bool
}

// DefaultIngestOptions returns the options with their default values
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		Compression: CompressionNONE,
		BlockXSize:  DefaultBlockSize,
		BlockYSize:  DefaultBlockSize,
	}
}

// ingestCompressions are the values accepted by the COMPRESS option
var ingestCompressions = map[string]Compression{
	"NONE":      CompressionNONE,
	"DEFLATE":   CompressionDEFLATE,
	"LZMA":      CompressionLZMA,
	"PNG":       CompressionPNG,
	"CCITTFAX4": CompressionCCITTFAX4,
	"JPEG":      CompressionJPEG,
	"WEBP":      CompressionWEBP,
	"CHARLS":    CompressionCHARLS,
	"JPEG2000":  CompressionJPEG2000,
}

// ingestPixelTypes are the values accepted by the PIXEL_TYPE option
var ingestPixelTypes = map[string]PixelType{
	"GRAYSCALE": PixelGRAYSCALE,
	"RGB":       PixelRGB,
	"MULTIBAND": PixelMULTIBAND,
	"DATAGRID":  PixelDATAGRID,
}

// ParseIngestOptions parses the KEY=VALUE ingest options (keys and values are case-insensitive)
func ParseIngestOptions(kv map[string]string) (IngestOptions, error) {
	o := DefaultIngestOptions()
	for k, v := range kv {
		key := strings.ToUpper(strings.TrimSpace(k))
		value := strings.TrimSpace(v)
		switch key {
		case OptCoverage:
			o.Coverage = value
		case OptSection:
			o.Section = value
		case OptPixelType:
			pt, ok := ingestPixelTypes[strings.ToUpper(value)]
			if !ok {
				return o, NewValidationError("unsupported %s=%s", OptPixelType, value)
			}
			o.PixelType = &pt
		case OptCompress:
			c, ok := ingestCompressions[strings.ToUpper(value)]
			if !ok {
				return o, NewValidationError("unsupported %s=%s", OptCompress, value)
			}
			o.Compression = c
		case OptQuality:
			q, err := strconv.Atoi(value)
			if err != nil || q < 0 || q > 100 {
				return o, NewValidationError("%s must be an integer in [0, 100] (got %s)", OptQuality, value)
			}
			o.Quality = &q
		case OptBlockXSize, OptBlockYSize:
			s, err := strconv.Atoi(value)
			if err != nil || s <= 0 {
				return o, NewValidationError("%s must be a positive integer (got %s)", key, value)
			}
			if key == OptBlockXSize {
				o.BlockXSize = s
			} else {
				o.BlockYSize = s
			}
		case OptSRID:
			srid, err := strconv.Atoi(value)
			if err != nil || srid <= 0 {
				return o, NewValidationError("%s must be a positive integer (got %s)", OptSRID, value)
			}
			o.SRID = srid
		case OptAppendSubdataset:
			b, err := ParseBool(value)
			if err != nil {
				return o, NewValidationError("%s must be a boolean (got %s)", OptAppendSubdataset, value)
			}
			o.AppendSubdataset = b
		default:
			return o, NewValidationError("unknown ingest option %s", k)
		}
	}
	return o, nil
}

// EffectiveCompression returns the codec and the quality to be stored with the coverage
func (o IngestOptions) EffectiveCompression() (Compression, int) {
	quality := o.Compression.DefaultQuality()
	if o.Quality != nil {
		quality = *o.Quality
	}
	return o.Compression.WithQuality(quality), quality
}

// ParseBool accepts YES/NO and ON/OFF in addition to the values of strconv.ParseBool
func ParseBool(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "YES", "ON":
		return true, nil
	case "NO", "OFF":
		return false, nil
	}
	return strconv.ParseBool(s)
}
