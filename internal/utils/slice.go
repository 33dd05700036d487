package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Number is a numeric sample type
type Number interface {
	constraints.Integer | constraints.Float
}

// ToSliceByte returns the memory of s as a slice of byte (no copy)
func ToSliceByte[T Number](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// SliceByteToGeneric returns the memory of b as a slice of T (no copy).
// SliceByteToGeneric panics if len(b) is not a multiple of the size of T.
func SliceByteToGeneric[T Number](b []byte) []T {
	var t T
	size := int(unsafe.Sizeof(t))
	if len(b)%size != 0 {
		panic(fmt.Sprintf("len must be a multiple of %d", size))
	}
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

// Deinterleave copies the samples of one band from a pixel-interleaved buffer.
// pixelSize is the size of a pixel (all the bands), sampleSize the size of a sample
// and offset the position of the band in the pixel (in bytes).
func Deinterleave(dst, src []byte, pixelSize, sampleSize, offset int) {
	for i, j := offset, 0; i+sampleSize <= len(src) && j+sampleSize <= len(dst); i, j = i+pixelSize, j+sampleSize {
		copy(dst[j:j+sampleSize], src[i:i+sampleSize])
	}
}

// Interleave is the inverse of Deinterleave
func Interleave(dst, src []byte, pixelSize, sampleSize, offset int) {
	for i, j := offset, 0; i+sampleSize <= len(dst) && j+sampleSize <= len(src); i, j = i+pixelSize, j+sampleSize {
		copy(dst[i:i+sampleSize], src[j:j+sampleSize])
	}
}

// JoinInt64 is the int64 equivalent of strings.Join
func JoinInt64(elems []int64, sep string) string {
	strelems := make([]string, len(elems))
	for i, e := range elems {
		strelems[i] = strconv.FormatInt(e, 10)
	}
	return strings.Join(strelems, sep)
}

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Pop removes the string from the set
func (ss StringSet) Pop(s string) {
	delete(ss, s)
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}
