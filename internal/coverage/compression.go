package coverage

//go:generate enumer -json -sql -type Compression -trimprefix Compression

// Compression is the codec used to store the tiles of a coverage
type Compression int

const (
	CompressionNONE Compression = iota
	CompressionDEFLATE
	CompressionLZMA
	CompressionGIF
	CompressionPNG
	CompressionJPEG
	CompressionWEBP
	CompressionWEBP_LOSSLESS
	CompressionCCITTFAX3
	CompressionCCITTFAX4
	CompressionLZW
	CompressionCHARLS
	CompressionJPEG2000
	CompressionJPEG2000_LOSSLESS
)

// DefaultQuality is the quality of the lossless codecs
const DefaultQuality = 100

// IsLossy returns true if the codec degrades the pixels
func (c Compression) IsLossy() bool {
	switch c {
	case CompressionJPEG, CompressionWEBP, CompressionJPEG2000:
		return true
	}
	return false
}

// DefaultQuality returns the quality used when none is provided
func (c Compression) DefaultQuality() int {
	switch c {
	case CompressionJPEG, CompressionWEBP:
		return 75
	case CompressionJPEG2000:
		return 20
	}
	return DefaultQuality
}

// WithQuality returns the codec to be used for this quality:
// a quality of 100 selects the lossless variant of a lossy codec, if any.
func (c Compression) WithQuality(quality int) Compression {
	if quality != 100 {
		return c
	}
	switch c {
	case CompressionWEBP:
		return CompressionWEBP_LOSSLESS
	case CompressionJPEG2000:
		return CompressionJPEG2000_LOSSLESS
	}
	return c
}
