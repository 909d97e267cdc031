// SPDX-License-Identifier: EPL-2.0

package player

import (
	"fmt"
	"math"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/track"
	"github.com/ik5/tfplayer/utils"
)

// Resampler kinds.
const (
	ResamplerSinc  = "sinc"
	ResamplerCubic = "cubic"
)

// Resampler pulls fixed blocks of stereo frames from a track and turns
// them into fixed blocks at the output rate. The ratio is fixed for its
// lifetime; a new track gets a new Resampler.
type Resampler struct {
	inner  audio.BlockResampler
	frames [][2]float32
	in     [][]float32
	view   [][]float32
	out    [][]float32
	i, n   int
}

// NewResampler builds a stereo resampler converting by ratio (output rate
// / input rate) in blocks of chunk output frames.
func NewResampler(kind string, ratio float64, chunk int, sinc audio.SincParams) (*Resampler, error) {
	var (
		inner audio.BlockResampler
		err   error
	)
	switch kind {
	case ResamplerSinc, "":
		inner, err = audio.NewSincFixedOut(ratio, sinc, chunk, 2)
	case ResamplerCubic:
		inner, err = audio.NewCubicFixedOut(ratio, chunk, 2)
	default:
		return nil, fmt.Errorf("unknown resampler %q", kind)
	}
	if err != nil {
		return nil, err
	}

	maxIn := int(math.Ceil(float64(chunk)/ratio)) + 2
	return &Resampler{
		inner:  inner,
		frames: make([][2]float32, maxIn),
		in:     [][]float32{make([]float32, maxIn), make([]float32, maxIn)},
		view:   make([][]float32, 2),
		out:    [][]float32{make([]float32, chunk), make([]float32, chunk)},
	}, nil
}

// OutputFrames is the block size at the output rate.
func (r *Resampler) OutputFrames() int { return r.inner.OutputFrames() }

// Remaining is the number of output frames not yet read.
func (r *Resampler) Remaining() int { return r.n - r.i }

// Process reads the next input block from src and resamples it. Source
// errors, including track.ErrEndOfStream, are returned unchanged.
func (r *Resampler) Process(src track.Source) error {
	need := r.inner.InputFramesNext()
	if need > len(r.frames) {
		r.frames = make([][2]float32, need)
		r.in[0] = make([]float32, need)
		r.in[1] = make([]float32, need)
	}

	frames := r.frames[:need]
	if err := src.Next(frames); err != nil {
		return err
	}

	left, right := r.in[0][:need], r.in[1][:need]
	for i, f := range frames {
		left[i], right[i] = f[0], f[1]
	}

	r.view[0], r.view[1] = left, right
	if err := r.inner.Process(r.view, r.out); err != nil {
		return fmt.Errorf("resampling: %w", err)
	}

	r.i, r.n = 0, r.inner.OutputFrames()
	return nil
}

// Read copies up to len(dst)/2 pending frames into dst as interleaved
// stereo scaled by volume and returns the number of frames copied.
func (r *Resampler) Read(dst []float32, volume float32) int {
	n := min(len(dst)/2, r.Remaining())
	left, right := r.out[0][r.i:r.i+n], r.out[1][r.i:r.i+n]
	for k := range n {
		dst[2*k] = left[k]
		dst[2*k+1] = right[k]
	}
	utils.Gain(dst[:2*n], volume)
	r.i += n

	return n
}

// Reset drops pending output and the filter history, after a seek.
func (r *Resampler) Reset() {
	r.inner.Reset()
	r.i, r.n = 0, 0
}
