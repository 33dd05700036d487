package coverage

//go:generate enumer -json -sql -type SampleType -trimprefix Sample
//go:generate enumer -json -sql -type PixelType -trimprefix Pixel

// SampleType is the storage encoding of one sample
type SampleType int

const (
	SampleUNKNOWN SampleType = iota
	Sample1BIT
	Sample2BIT
	Sample4BIT
	SampleINT8
	SampleUINT8
	SampleINT16
	SampleUINT16
	SampleINT32
	SampleUINT32
	SampleFLOAT
	SampleDOUBLE
)

// PixelType gives the semantics of the bands of a pixel
type PixelType int

const (
	PixelUNKNOWN PixelType = iota
	PixelMONOCHROME
	PixelPALETTE
	PixelGRAYSCALE
	PixelRGB
	PixelMULTIBAND
	PixelDATAGRID
)

// MaxBands is the maximum number of bands of a coverage
const MaxBands = 255

// Encoding is the sample/pixel/bands triplet of a coverage
type Encoding struct {
	Sample SampleType
	Pixel  PixelType
	Bands  int
}

// BandEncoding is the in-memory representation of a band of a given Encoding
type BandEncoding struct {
	DType DType
	// NBits is the declared bit depth for sub-byte samples (1, 2 or 4), 0 otherwise
	NBits int
	// SourceNBits is the declared bit depth of a sub-byte sample promoted to 8 bits
	SourceNBits int
	// SignedByte is set for INT8 samples
	SignedByte bool
}

// Promoted returns true if the band is a 1-bit band exposed as a 8-bit band
func (be BandEncoding) Promoted() bool {
	return be.SourceNBits != 0
}

// Describe maps the encoding to its in-memory representation.
// Samples with less than 8 bits are decoded as bytes: NBits is set,
// unless promote1Bit is true and the sample is 1-bit, in that case SourceNBits is set.
func (e Encoding) Describe(promote1Bit bool) (BandEncoding, error) {
	switch e.Sample {
	case Sample1BIT:
		if promote1Bit {
			return BandEncoding{DType: DTypeUINT8, SourceNBits: 1}, nil
		}
		return BandEncoding{DType: DTypeUINT8, NBits: 1}, nil
	case Sample2BIT:
		return BandEncoding{DType: DTypeUINT8, NBits: 2}, nil
	case Sample4BIT:
		return BandEncoding{DType: DTypeUINT8, NBits: 4}, nil
	case SampleINT8:
		return BandEncoding{DType: DTypeINT8, SignedByte: true}, nil
	case SampleUINT8:
		return BandEncoding{DType: DTypeUINT8}, nil
	case SampleINT16:
		return BandEncoding{DType: DTypeINT16}, nil
	case SampleUINT16:
		return BandEncoding{DType: DTypeUINT16}, nil
	case SampleINT32:
		return BandEncoding{DType: DTypeINT32}, nil
	case SampleUINT32:
		return BandEncoding{DType: DTypeUINT32}, nil
	case SampleFLOAT:
		return BandEncoding{DType: DTypeFLOAT32}, nil
	case SampleDOUBLE:
		return BandEncoding{DType: DTypeFLOAT64}, nil
	}
	return BandEncoding{}, NewUnsupportedEncoding("unsupported sample type %s", e.Sample)
}

// SampleSize returns the size in bytes of a decoded sample (sub-byte samples are decoded as bytes)
func (e Encoding) SampleSize() int {
	be, err := e.Describe(false)
	if err != nil {
		return 0
	}
	return be.DType.Size()
}

// PixelSize returns the size in bytes of a decoded pixel
func (e Encoding) PixelSize() int {
	return e.SampleSize() * e.Bands
}

// IsMonochrome1Bit returns true for 1-bit monochrome coverages
func (e Encoding) IsMonochrome1Bit() bool {
	return e.Pixel == PixelMONOCHROME && e.Sample == Sample1BIT
}

// Validate checks the sample/pixel/bands consistency
func (e Encoding) Validate() error {
	if err := ValidateBandCount(e.Bands); err != nil {
		return err
	}
	if _, err := e.Describe(false); err != nil {
		return err
	}
	switch e.Pixel {
	case PixelMONOCHROME:
		if e.Sample != Sample1BIT || e.Bands != 1 {
			return NewUnsupportedEncoding("MONOCHROME requires a single 1-bit band")
		}
	case PixelPALETTE:
		if e.Bands != 1 || (e.Sample != Sample1BIT && e.Sample != Sample2BIT && e.Sample != Sample4BIT && e.Sample != SampleUINT8) {
			return NewUnsupportedEncoding("PALETTE requires a single band of 1, 2, 4 or 8 bits")
		}
	case PixelGRAYSCALE:
		if e.Bands != 1 || (e.Sample != Sample1BIT && e.Sample != Sample2BIT && e.Sample != Sample4BIT && e.Sample != SampleUINT8 && e.Sample != SampleUINT16) {
			return NewUnsupportedEncoding("GRAYSCALE requires a single band of 1, 2, 4, 8 or 16 bits")
		}
	case PixelRGB:
		if e.Bands != 3 || (e.Sample != SampleUINT8 && e.Sample != SampleUINT16) {
			return NewUnsupportedEncoding("RGB requires 3 bands of 8 or 16 bits")
		}
	case PixelMULTIBAND:
		if e.Bands < 2 || (e.Sample != SampleUINT8 && e.Sample != SampleUINT16) {
			return NewUnsupportedEncoding("MULTIBAND requires at least 2 bands of 8 or 16 bits")
		}
	case PixelDATAGRID:
		if e.Bands != 1 || e.Sample == Sample1BIT || e.Sample == Sample2BIT || e.Sample == Sample4BIT {
			return NewUnsupportedEncoding("DATAGRID requires a single band of at least 8 bits")
		}
	default:
		return NewUnsupportedEncoding("unsupported pixel type %s", e.Pixel)
	}
	return nil
}

// ValidateBandCount checks that 1 <= bands <= MaxBands
func ValidateBandCount(bands int) error {
	if bands < 1 || bands > MaxBands {
		return NewValidationError("band count must be in [1, %d] (got %d)", MaxBands, bands)
	}
	return nil
}

// SampleTypeFromDType returns the sample type storing the dtype
func SampleTypeFromDType(dtype DType) (SampleType, error) {
	switch dtype {
	case DTypeUINT8:
		return SampleUINT8, nil
	case DTypeINT8:
		return SampleINT8, nil
	case DTypeUINT16:
		return SampleUINT16, nil
	case DTypeINT16:
		return SampleINT16, nil
	case DTypeUINT32:
		return SampleUINT32, nil
	case DTypeINT32:
		return SampleINT32, nil
	case DTypeFLOAT32:
		return SampleFLOAT, nil
	case DTypeFLOAT64:
		return SampleDOUBLE, nil
	}
	return SampleUNKNOWN, NewUnsupportedEncoding("unsupported data type %s", dtype)
}
