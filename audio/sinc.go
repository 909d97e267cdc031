// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"

	"github.com/ik5/tfplayer/utils"
)

// Interpolation selects how SincFixedOut blends between precomputed
// sub-sample filter phases.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationCubic
	InterpolationNearest
)

// Window selects the window applied to the sinc kernel.
type Window int

const (
	WindowBlackman2 Window = iota
	WindowBlackman
	WindowHann
)

// SincParams configures SincFixedOut.
type SincParams struct {
	// Len is the number of taps per output sample, rounded up to a multiple of 8.
	Len int
	// Cutoff is the low-pass corner relative to the lower Nyquist frequency.
	Cutoff float64
	// Oversampling is the number of filter phases stored per input sample.
	Oversampling  int
	Interpolation Interpolation
	Window        Window
}

// DefaultSincParams gives a 256 tap Blackman-squared kernel with a 0.95
// cutoff, 128 phases and linear phase interpolation.
func DefaultSincParams() SincParams {
	return SincParams{
		Len:           256,
		Cutoff:        0.95,
		Oversampling:  128,
		Interpolation: InterpolationLinear,
		Window:        WindowBlackman2,
	}
}

// SincFixedOut is a band limited windowed-sinc resampler producing a fixed
// number of output frames per block.
type SincFixedOut struct {
	fixedOut
	table  [][]float32
	over   int
	interp Interpolation
	kernel func(taps []float32, frac float64) float32
}

// NewSincFixedOut builds a resampler for ratio = output rate / input rate.
func NewSincFixedOut(ratio float64, params SincParams, chunk, channels int) (*SincFixedOut, error) {
	taps := (max(params.Len, 8) + 7) / 8 * 8
	over := max(params.Oversampling, 1)
	cutoff := params.Cutoff
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultSincParams().Cutoff
	}

	f, err := newFixedOut(ratio, taps/2, chunk, channels)
	if err != nil {
		return nil, err
	}
	if ratio < 1 {
		cutoff *= ratio
	}

	r := &SincFixedOut{
		fixedOut: f,
		table:    sincTable(taps, over, cutoff, params.Window),
		over:     over,
		interp:   params.Interpolation,
	}
	r.kernel = r.apply

	return r, nil
}

func (r *SincFixedOut) Process(in, out [][]float32) error {
	return r.run(in, out, r.kernel)
}

func (r *SincFixedOut) apply(taps []float32, frac float64) float32 {
	fp := frac * float64(r.over)
	p := int(fp)
	x := fp - float64(p)

	switch r.interp {
	case InterpolationNearest:
		return dot(r.table[int(math.Round(fp))+1], taps)
	case InterpolationCubic:
		return utils.CubicInterpolate(
			dot(r.table[p], taps),
			dot(r.table[p+1], taps),
			dot(r.table[p+2], taps),
			dot(r.table[p+3], taps),
			float32(x),
		)
	default:
		return utils.Lerp(dot(r.table[p+1], taps), dot(r.table[p+2], taps), float32(x))
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	b = b[:len(a)]
	for i, v := range a {
		sum += v * b[i]
	}
	return sum
}

// sincTable stores phases -1..over+1 at rows 0..over+2. Row p+1 holds the
// kernel for an output position p/over past the centre tap; each row sums
// to one so a constant input is reproduced exactly.
func sincTable(taps, over int, cutoff float64, win Window) [][]float32 {
	half := taps / 2
	table := make([][]float32, over+3)
	for row := range table {
		phase := float64(row-1) / float64(over)
		kernel := make([]float32, taps)

		var sum float64
		vals := make([]float64, taps)
		for m := range taps {
			x := float64(m-half+1) - phase
			v := cutoff * sinc(cutoff*x) * window(win, x, float64(half))
			vals[m] = v
			sum += v
		}
		for m, v := range vals {
			kernel[m] = float32(v / sum)
		}
		table[row] = kernel
	}

	return table
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// window evaluates win at x for a support of [-half, half].
func window(win Window, x, half float64) float64 {
	if x <= -half || x >= half {
		return 0
	}

	a := math.Pi * x / half
	switch win {
	case WindowHann:
		return 0.5 + 0.5*math.Cos(a)
	case WindowBlackman:
		return 0.42 + 0.5*math.Cos(a) + 0.08*math.Cos(2*a)
	default:
		b := 0.42 + 0.5*math.Cos(a) + 0.08*math.Cos(2*a)
		return b * b
	}
}
