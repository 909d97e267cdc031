// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
)

// Float32ToInt16 clamps x to [-1,1] and scales it to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 keeps +1.0 inside the positive range.
	return int16(x * 32767.0)
}

// Float32sToInt16s converts min(len(dst), len(src)) samples and returns the count.
func Float32sToInt16s(dst []int16, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = Float32ToInt16(src[i])
	}
	return n
}

// PutFloat32sLE encodes samples as little endian IEEE 754 into dst and
// returns the number of samples written; dst needs four bytes per sample.
func PutFloat32sLE(dst []byte, src []float32) int {
	n := min(len(dst)/4, len(src))
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
	}
	return n
}

// Gain multiplies samples in place by g.
func Gain(samples []float32, g float32) {
	if g == 1 {
		return
	}
	for i := range samples {
		samples[i] *= g
	}
}
