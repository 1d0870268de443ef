package math

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// MipLevels returns the length of a full mip chain for a width x height image:
// floor(log2(max(width, height))) + 1. Zero-sized images have no levels.
func MipLevels(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 0
	}
	return uint32(bits.Len32(m))
}

// HalveExtent returns the extent of the next mip level. Never rounds to zero.
func HalveExtent(width, height uint32) (uint32, uint32) {
	return max(1, width/2), max(1, height/2)
}

// MipExtent returns the extent of mip level `level` of a width x height image.
func MipExtent(width, height, level uint32) (uint32, uint32) {
	for i := uint32(0); i < level; i++ {
		width, height = HalveExtent(width, height)
	}
	return width, height
}
