package coverage

//go:generate enumer -json -sql -type DType -trimprefix DType

import (
	"github.com/airbusgeo/godal"
)

// DType is the in-memory numeric type of one band sample
type DType int

// Supported DataTypes
const (
	DTypeUNDEFINED DType = iota
	DTypeUINT8
	DTypeUINT16
	DTypeUINT32
	DTypeINT8
	DTypeINT16
	DTypeINT32
	DTypeFLOAT32
	DTypeFLOAT64
)

var dtypeSizes = [...]int{0, 1, 2, 4, 1, 2, 4, 4, 8}

// Size returns the size in bytes of one sample (0 if undefined)
func (dtype DType) Size() int {
	if dtype < 0 || int(dtype) >= len(dtypeSizes) {
		return 0
	}
	return dtypeSizes[dtype]
}

// IsFloatingPointFormat returns true for FLOAT32 and FLOAT64
func (dtype DType) IsFloatingPointFormat() bool {
	return dtype == DTypeFLOAT32 || dtype == DTypeFLOAT64
}

// ToGDAL returns the gdal equivalent.
// INT8 is exposed as a Byte band flagged with PIXELTYPE=SIGNEDBYTE.
func (dtype DType) ToGDAL() godal.DataType {
	switch dtype {
	case DTypeUINT8, DTypeINT8:
		return godal.Byte
	case DTypeUINT16:
		return godal.UInt16
	case DTypeUINT32:
		return godal.UInt32
	case DTypeINT16:
		return godal.Int16
	case DTypeINT32:
		return godal.Int32
	case DTypeFLOAT32:
		return godal.Float32
	case DTypeFLOAT64:
		return godal.Float64
	default:
		return godal.Unknown
	}
}

// DTypeFromGDal convert gdal.DataType to DType
func DTypeFromGDal(dtype godal.DataType) DType {
	switch dtype {
	case godal.Byte:
		return DTypeUINT8
	case godal.UInt16:
		return DTypeUINT16
	case godal.UInt32:
		return DTypeUINT32
	case godal.Int16:
		return DTypeINT16
	case godal.Int32:
		return DTypeINT32
	case godal.Float32:
		return DTypeFLOAT32
	case godal.Float64:
		return DTypeFLOAT64
	default:
		return DTypeUNDEFINED
	}
}
