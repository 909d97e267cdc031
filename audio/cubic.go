// SPDX-License-Identifier: EPL-2.0

package audio

import "github.com/ik5/tfplayer/utils"

// CubicFixedOut is a cheap fixed output resampler using Catmull-Rom
// interpolation over four neighbouring frames. It applies no anti-aliasing
// filter, so prefer SincFixedOut when downsampling.
type CubicFixedOut struct {
	fixedOut
	kernel func(taps []float32, frac float64) float32
}

func NewCubicFixedOut(ratio float64, chunk, channels int) (*CubicFixedOut, error) {
	f, err := newFixedOut(ratio, 2, chunk, channels)
	if err != nil {
		return nil, err
	}

	r := &CubicFixedOut{fixedOut: f}
	r.kernel = func(taps []float32, frac float64) float32 {
		return utils.CubicInterpolate(taps[0], taps[1], taps[2], taps[3], float32(frac))
	}

	return r, nil
}

func (r *CubicFixedOut) Process(in, out [][]float32) error {
	return r.run(in, out, r.kernel)
}
