package coverage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pixel is a joint pixel value: one value per band, matched simultaneously across all bands.
// It is used to store the nodata value of a coverage.
type Pixel struct {
	Sample SampleType
	Pixel  PixelType
	Bands  int
	Values []float64
}

// Matches returns true if the pixel has exactly the sample type, the pixel type and the number of bands of the encoding.
// A nodata pixel that does not match the encoding of its coverage must be ignored.
func (p *Pixel) Matches(enc Encoding) bool {
	return p != nil &&
		p.Sample == enc.Sample &&
		p.Pixel == enc.Pixel &&
		p.Bands == enc.Bands &&
		len(p.Values) == p.Bands
}

// Bytes returns the pixel as interleaved native-endian samples of the decoded dtype
func (p *Pixel) Bytes(dtype DType) []byte {
	size := dtype.Size()
	b := make([]byte, size*len(p.Values))
	for i, v := range p.Values {
		PutSample(b[i*size:], dtype, v)
	}
	return b
}

// DefaultNoData returns the canonical nodata pixel of the encoding
func DefaultNoData(enc Encoding) (*Pixel, error) {
	p := &Pixel{Sample: enc.Sample, Pixel: enc.Pixel, Bands: enc.Bands, Values: make([]float64, enc.Bands)}
	fill := func(v float64) {
		for i := range p.Values {
			p.Values[i] = v
		}
	}
	unsupported := func() (*Pixel, error) {
		return nil, NewUnsupportedEncoding("no default nodata for %s/%s", enc.Pixel, enc.Sample)
	}
	if err := ValidateBandCount(enc.Bands); err != nil {
		return nil, err
	}
	switch enc.Pixel {
	case PixelMONOCHROME:
		fill(0)
	case PixelPALETTE:
		switch enc.Sample {
		case Sample1BIT, Sample2BIT, Sample4BIT, SampleUINT8:
			fill(0)
		default:
			return unsupported()
		}
	case PixelGRAYSCALE:
		switch enc.Sample {
		case Sample1BIT:
			fill(1)
		case Sample2BIT:
			fill(3)
		case Sample4BIT:
			fill(15)
		case SampleUINT8:
			fill(255)
		case SampleUINT16:
			fill(0)
		default:
			return unsupported()
		}
	case PixelRGB, PixelMULTIBAND:
		switch enc.Sample {
		case SampleUINT8:
			fill(255)
		case SampleUINT16:
			fill(0)
		default:
			return unsupported()
		}
	case PixelDATAGRID:
		switch enc.Sample {
		case SampleINT8, SampleUINT8, SampleINT16, SampleUINT16, SampleINT32, SampleUINT32, SampleFLOAT, SampleDOUBLE:
			fill(0)
		default:
			return unsupported()
		}
	default:
		return unsupported()
	}
	return p, nil
}

const pixelMagic = 0x03

// MarshalBinary implements encoding.BinaryMarshaler
// Layout: magic, sample, pixel, bands (uint8) then one little-endian float64 per band
func (p *Pixel) MarshalBinary() ([]byte, error) {
	if len(p.Values) != p.Bands {
		return nil, fmt.Errorf("pixel: %d values for %d bands", len(p.Values), p.Bands)
	}
	if p.Bands < 0 || p.Bands > MaxBands {
		return nil, fmt.Errorf("pixel: invalid band count %d", p.Bands)
	}
	b := make([]byte, 4+8*p.Bands)
	b[0] = pixelMagic
	b[1] = byte(p.Sample)
	b[2] = byte(p.Pixel)
	b[3] = byte(p.Bands)
	for i, v := range p.Values {
		binary.LittleEndian.PutUint64(b[4+8*i:], math.Float64bits(v))
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (p *Pixel) UnmarshalBinary(b []byte) error {
	if len(b) < 4 || b[0] != pixelMagic {
		return fmt.Errorf("pixel: invalid header")
	}
	bands := int(b[3])
	if len(b) != 4+8*bands {
		return fmt.Errorf("pixel: expected %d bytes, got %d", 4+8*bands, len(b))
	}
	p.Sample = SampleType(b[1])
	p.Pixel = PixelType(b[2])
	p.Bands = bands
	p.Values = make([]float64, bands)
	for i := range p.Values {
		p.Values[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[4+8*i:]))
	}
	return nil
}
