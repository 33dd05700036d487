package coverage

import (
	"encoding/binary"
	"math"
)

// SampleAt reads the native-endian sample of type dtype at the beginning of b
func SampleAt(b []byte, dtype DType) float64 {
	switch dtype {
	case DTypeUINT8:
		return float64(b[0])
	case DTypeINT8:
		return float64(int8(b[0]))
	case DTypeUINT16:
		return float64(binary.NativeEndian.Uint16(b))
	case DTypeINT16:
		return float64(int16(binary.NativeEndian.Uint16(b)))
	case DTypeUINT32:
		return float64(binary.NativeEndian.Uint32(b))
	case DTypeINT32:
		return float64(int32(binary.NativeEndian.Uint32(b)))
	case DTypeFLOAT32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b)))
	case DTypeFLOAT64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b))
	}
	return 0
}

// PutSample writes v as a native-endian sample of type dtype at the beginning of b.
// Integer values are rounded to the nearest and clamped to the range of the dtype.
func PutSample(b []byte, dtype DType, v float64) {
	switch dtype {
	case DTypeUINT8:
		b[0] = uint8(clamp(v, 0, math.MaxUint8))
	case DTypeINT8:
		b[0] = byte(int8(clamp(v, math.MinInt8, math.MaxInt8)))
	case DTypeUINT16:
		binary.NativeEndian.PutUint16(b, uint16(clamp(v, 0, math.MaxUint16)))
	case DTypeINT16:
		binary.NativeEndian.PutUint16(b, uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
	case DTypeUINT32:
		binary.NativeEndian.PutUint32(b, uint32(clamp(v, 0, math.MaxUint32)))
	case DTypeINT32:
		binary.NativeEndian.PutUint32(b, uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	case DTypeFLOAT32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(float32(v)))
	case DTypeFLOAT64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(v))
	}
}

func clamp(v, min, max float64) float64 {
	v = math.Round(v)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
