// SPDX-License-Identifier: EPL-2.0

package player

import (
	"errors"
	"testing"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/track"
)

func TestNewResampler_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := NewResampler("linear", 1, 512, audio.DefaultSincParams()); err == nil {
		t.Error("expected an error for an unknown kind")
	}
	if _, err := NewResampler(ResamplerSinc, 0, 512, audio.DefaultSincParams()); !errors.Is(err, audio.ErrInvalidRatio) {
		t.Errorf("err = %v, want ErrInvalidRatio", err)
	}
}

func TestResampler_BlocksAndReads(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{ResamplerSinc, ResamplerCubic} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()

			// 22050 Hz into 44100 Hz.
			r, err := NewResampler(kind, 2, 256, audio.DefaultSincParams())
			if err != nil {
				t.Fatal(err)
			}
			src := newFakeSource(100_000, 0.25)

			if r.Remaining() != 0 {
				t.Fatalf("Remaining before Process = %d", r.Remaining())
			}
			if err := r.Process(src); err != nil {
				t.Fatal(err)
			}
			if r.Remaining() != r.OutputFrames() || r.OutputFrames() != 256 {
				t.Fatalf("Remaining = %d, OutputFrames = %d", r.Remaining(), r.OutputFrames())
			}
			// Half as many input frames for a 2x ratio, give or take the rounding.
			if src.pos < 120 || src.pos > 136 {
				t.Errorf("consumed %d input frames", src.pos)
			}

			dst := make([]float32, 2*100)
			if n := r.Read(dst, 1); n != 100 {
				t.Errorf("Read = %d frames, want 100", n)
			}
			if n := r.Read(make([]float32, 2*1000), 1); n != 156 {
				t.Errorf("second Read = %d frames, want 156", n)
			}
			if n := r.Read(dst, 1); n != 0 {
				t.Errorf("Read on drained block = %d", n)
			}

			if err := r.Process(src); err != nil {
				t.Fatal(err)
			}
			r.Reset()
			if r.Remaining() != 0 {
				t.Errorf("Remaining after Reset = %d", r.Remaining())
			}
		})
	}
}

func TestResampler_PassesSourceErrors(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(ResamplerCubic, 1, 64, audio.SincParams{})
	if err != nil {
		t.Fatal(err)
	}

	src := newFakeSource(10, 0)
	src.done = true
	if err := r.Process(src); !errors.Is(err, track.ErrEndOfStream) {
		t.Errorf("err = %v, want ErrEndOfStream", err)
	}

	src = newFakeSource(1000, 0)
	src.failAt = 0
	if err := r.Process(src); !errors.Is(err, errBroken) {
		t.Errorf("err = %v, want errBroken", err)
	}
}

func TestResampler_ReadNoAllocs(t *testing.T) {
	r, err := NewResampler(ResamplerSinc, 44100.0/48000, 512, audio.DefaultSincParams())
	if err != nil {
		t.Fatal(err)
	}
	src := newFakeSource(1<<30, 0.1)
	dst := make([]float32, 2*512)

	allocs := testing.AllocsPerRun(100, func() {
		if err := r.Process(src); err != nil {
			t.Fatal(err)
		}
		r.Read(dst, 0.8)
	})
	if allocs != 0 {
		t.Errorf("Process+Read allocated %v times per run", allocs)
	}
}

func BenchmarkResampler_Sinc(b *testing.B) {
	r, err := NewResampler(ResamplerSinc, 48000.0/44100, 512, audio.DefaultSincParams())
	if err != nil {
		b.Fatal(err)
	}
	src := newFakeSource(1<<62, 0.1)
	dst := make([]float32, 2*512)

	for b.Loop() {
		if err := r.Process(src); err != nil {
			b.Fatal(err)
		}
		r.Read(dst, 1)
	}
}
