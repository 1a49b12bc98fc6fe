package oto

import (
	"math"
)

// Float32To16BitLE converts a []float32 buffer to 16-bit little-endian
// bytes, appending to dst. Values outside [-1, 1] are clamped; the summed
// stem mix can exceed full scale.
func Float32To16BitLE(src []float32, dst []byte) []byte {
	for _, v := range src {
		var uv int16
		if v < -1.0 {
			uv = -math.MaxInt16
		} else if v > 1.0 {
			uv = math.MaxInt16
		} else {
			uv = int16(v * math.MaxInt16)
		}
		dst = append(dst, byte(uv), byte(uint16(uv)>>8))
	}
	return dst
}
