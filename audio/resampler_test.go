// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"math"
	"testing"
)

func newBlockResamplers(t *testing.T, ratio float64, chunk, channels int) map[string]BlockResampler {
	t.Helper()

	sinc, err := NewSincFixedOut(ratio, DefaultSincParams(), chunk, channels)
	if err != nil {
		t.Fatalf("NewSincFixedOut() error = %v", err)
	}
	cubicParams := DefaultSincParams()
	cubicParams.Interpolation = InterpolationCubic
	cubicPhase, err := NewSincFixedOut(ratio, cubicParams, chunk, channels)
	if err != nil {
		t.Fatalf("NewSincFixedOut(cubic phases) error = %v", err)
	}
	cubic, err := NewCubicFixedOut(ratio, chunk, channels)
	if err != nil {
		t.Fatalf("NewCubicFixedOut() error = %v", err)
	}

	return map[string]BlockResampler{
		"sinc":        sinc,
		"sinc-cubic":  cubicPhase,
		"catmull-rom": cubic,
	}
}

func makeBlock(channels, frames int) [][]float32 {
	b := make([][]float32, channels)
	for c := range b {
		b[c] = make([]float32, frames)
	}
	return b
}

func TestBlockResampler_InvalidArguments(t *testing.T) {
	t.Parallel()

	if _, err := NewSincFixedOut(0, DefaultSincParams(), 512, 2); !errors.Is(err, ErrInvalidRatio) {
		t.Errorf("ratio 0 error = %v, want ErrInvalidRatio", err)
	}
	if _, err := NewSincFixedOut(math.NaN(), DefaultSincParams(), 512, 2); !errors.Is(err, ErrInvalidRatio) {
		t.Errorf("ratio NaN error = %v, want ErrInvalidRatio", err)
	}
	if _, err := NewCubicFixedOut(1, 0, 2); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("chunk 0 error = %v, want ErrInvalidChunk", err)
	}
}

func TestBlockResampler_ShortBuffer(t *testing.T) {
	t.Parallel()

	r, err := NewSincFixedOut(1, DefaultSincParams(), 64, 2)
	if err != nil {
		t.Fatal(err)
	}

	in := makeBlock(2, r.InputFramesNext()-1)
	out := makeBlock(2, r.OutputFrames())
	if err := r.Process(in, out); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Process(short in) error = %v, want ErrShortBuffer", err)
	}
}

// The input consumed over many blocks must track chunk/ratio frames per
// block, otherwise the output drifts against the source clock.
func TestBlockResampler_FrameAccounting(t *testing.T) {
	t.Parallel()

	ratios := []float64{48000.0 / 44100.0, 44100.0 / 48000.0, 0.5, 2, 1}
	const chunk = 512
	const blocks = 200

	for _, ratio := range ratios {
		for name, r := range newBlockResamplers(t, ratio, chunk, 2) {
			in := makeBlock(2, int(float64(chunk)/ratio)+8)
			out := makeBlock(2, chunk)

			consumed := 0
			for range blocks {
				n := r.InputFramesNext()
				low := int(math.Floor(float64(chunk-1)/ratio)) - 1
				high := int(math.Ceil(float64(chunk)/ratio)) + 1
				if n < low || n > high {
					t.Fatalf("%s ratio %.4f: InputFramesNext() = %d, want in [%d, %d]", name, ratio, n, low, high)
				}
				if err := r.Process(in, out); err != nil {
					t.Fatalf("%s: Process() error = %v", name, err)
				}
				consumed += n
			}

			want := float64(chunk*blocks) / ratio
			if math.Abs(float64(consumed)-want) > 2 {
				t.Errorf("%s ratio %.4f: consumed %d frames, want ≈%.1f", name, ratio, consumed, want)
			}
		}
	}
}

func TestBlockResampler_PreservesDC(t *testing.T) {
	t.Parallel()

	for _, ratio := range []float64{48000.0 / 44100.0, 0.5, 1.5} {
		for name, r := range newBlockResamplers(t, ratio, 256, 2) {
			in := makeBlock(2, int(256/ratio)+8)
			for c := range in {
				for i := range in[c] {
					in[c][i] = 0.5
				}
			}
			out := makeBlock(2, 256)

			// The first block carries the filter delay over zero history.
			for range 3 {
				if err := r.Process(in, out); err != nil {
					t.Fatal(err)
				}
			}
			for c := range out {
				for i, v := range out[c] {
					if math.Abs(float64(v)-0.5) > 1e-3 {
						t.Fatalf("%s ratio %.3f: out[%d][%d] = %v, want 0.5", name, ratio, c, i, v)
					}
				}
			}
		}
	}
}

func TestBlockResampler_ChannelsAreIndependent(t *testing.T) {
	t.Parallel()

	for name, r := range newBlockResamplers(t, 1.25, 128, 2) {
		in := makeBlock(2, 256)
		for i := range in[0] {
			in[0][i] = 0.8
			in[1][i] = -0.3
		}
		out := makeBlock(2, 128)
		for range 4 {
			if err := r.Process(in, out); err != nil {
				t.Fatal(err)
			}
		}
		if math.Abs(float64(out[0][64])-0.8) > 1e-3 || math.Abs(float64(out[1][64])+0.3) > 1e-3 {
			t.Errorf("%s: channel values = %v/%v, want 0.8/-0.3", name, out[0][64], out[1][64])
		}
	}
}

func TestSincFixedOut_AttenuatesAboveCutoff(t *testing.T) {
	t.Parallel()

	// Halving the rate must suppress a tone above the new Nyquist frequency.
	r, err := NewSincFixedOut(0.5, DefaultSincParams(), 512, 1)
	if err != nil {
		t.Fatal(err)
	}

	const rate = 48000.0
	const tone = 20000.0
	out := makeBlock(1, 512)
	frame := 0
	var peak float64
	for block := range 8 {
		n := r.InputFramesNext()
		in := makeBlock(1, n)
		for i := range in[0] {
			in[0][i] = float32(math.Sin(2 * math.Pi * tone * float64(frame+i) / rate))
		}
		frame += n
		if err := r.Process(in, out); err != nil {
			t.Fatal(err)
		}
		if block < 2 {
			continue
		}
		for _, v := range out[0] {
			peak = math.Max(peak, math.Abs(float64(v)))
		}
	}

	if peak > 0.01 {
		t.Errorf("peak above cutoff = %v, want < 0.01", peak)
	}
}

func TestBlockResampler_Reset(t *testing.T) {
	t.Parallel()

	r, err := NewCubicFixedOut(1, 16, 1)
	if err != nil {
		t.Fatal(err)
	}
	first := r.InputFramesNext()

	in := makeBlock(1, 32)
	out := makeBlock(1, 16)
	for range 3 {
		_ = r.Process(in, out)
	}
	r.Reset()

	if got := r.InputFramesNext(); got != first {
		t.Errorf("InputFramesNext() after Reset = %d, want %d", got, first)
	}
}

func BenchmarkSincFixedOut_Process(b *testing.B) {
	r, err := NewSincFixedOut(48000.0/44100.0, DefaultSincParams(), 512, 2)
	if err != nil {
		b.Fatal(err)
	}
	in := makeBlock(2, 1024)
	out := makeBlock(2, 512)

	b.ReportAllocs()

	for b.Loop() {
		if err := r.Process(in, out); err != nil {
			b.Fatal(err)
		}
	}
}
