package utils

import (
	"strconv"
)

// F64ToS converts float to string using the maximum accuracy
func F64ToS(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RoundHalfUp returns int(0.5+v), the rounding used to convert georeferenced distances to pixels
// (negative values are truncated towards zero).
func RoundHalfUp(v float64) int {
	return int(0.5 + v)
}

// CeilDiv returns the smallest integer >= a/b (a >= 0, b > 0)
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Clamp v to [lo, hi]
func Clamp[T Number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
