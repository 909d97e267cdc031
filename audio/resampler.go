// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// BlockResampler converts blocks of de-interleaved frames at a fixed ratio
// (output rate / input rate). Every Process call produces exactly
// OutputFrames frames per channel and consumes exactly the InputFramesNext
// value reported before the call.
type BlockResampler interface {
	// InputFramesNext is the number of input frames the next Process needs.
	InputFramesNext() int
	// OutputFrames is the fixed number of frames produced per call.
	OutputFrames() int
	Channels() int
	// Process reads InputFramesNext frames from every in[c] and writes
	// OutputFrames frames into every out[c].
	Process(in, out [][]float32) error
	// Reset clears the filter history, as after a discontinuity.
	Reset()
}

// fixedOut holds the bookkeeping shared by the fixed output resamplers.
//
// Each channel keeps a window of 2*half history frames followed by the new
// input block. pos is the input position, in window coordinates, of the
// first output frame of the next block. Output frame k of a block is
// interpolated around pos + k*step from the taps [i-half+1, i+half] where
// i = floor(pos + k*step).
type fixedOut struct {
	channels int
	chunk    int
	half     int
	step     float64
	pos      float64
	window   [][]float32
}

func newFixedOut(ratio float64, half, chunk, channels int) (fixedOut, error) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return fixedOut{}, ErrInvalidRatio
	}
	if chunk <= 0 || channels <= 0 || half <= 0 {
		return fixedOut{}, ErrInvalidChunk
	}

	step := 1 / ratio
	size := 2*half + int(math.Ceil(float64(chunk)*step)) + 2
	f := fixedOut{
		channels: channels,
		chunk:    chunk,
		half:     half,
		step:     step,
		pos:      float64(half),
		window:   make([][]float32, channels),
	}
	for c := range f.window {
		f.window[c] = make([]float32, size)
	}

	return f, nil
}

func (f *fixedOut) OutputFrames() int { return f.chunk }
func (f *fixedOut) Channels() int     { return f.channels }

func (f *fixedOut) InputFramesNext() int {
	last := f.pos + float64(f.chunk-1)*f.step
	return int(math.Floor(last)) - f.half + 1
}

func (f *fixedOut) Reset() {
	for c := range f.window {
		clear(f.window[c])
	}
	f.pos = float64(f.half)
}

// run fills out using kernel to interpolate each output frame. kernel gets
// the 2*half taps around the output position and the fractional offset in
// [0,1) of that position past taps[half-1].
func (f *fixedOut) run(in, out [][]float32, kernel func(taps []float32, frac float64) float32) error {
	n := f.InputFramesNext()
	if len(in) < f.channels || len(out) < f.channels {
		return ErrShortBuffer
	}
	for c := range f.channels {
		if len(in[c]) < n || len(out[c]) < f.chunk {
			return ErrShortBuffer
		}
	}

	hist := 2 * f.half
	for c := range f.channels {
		w := f.window[c][:hist+n]
		copy(w[hist:], in[c][:n])

		dst := out[c]
		for k := range f.chunk {
			t := f.pos + float64(k)*f.step
			i := int(t)
			dst[k] = kernel(w[i-f.half+1:i+f.half+1], t-float64(i))
		}

		copy(w[:hist], w[n:n+hist])
	}

	f.pos += float64(f.chunk)*f.step - float64(n)
	return nil
}
