// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ik5/tfplayer/internal/audiotest"
)

func readAll(t *testing.T, src Source, bufSize int) []float32 {
	t.Helper()

	buf := make([]float32, bufSize)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestStereoMixer_Layouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		value    func(sample, channel int) float32
		wantL    float32
		wantR    float32
	}{
		{
			name:     "mono duplicates",
			channels: 1,
			value:    func(int, int) float32 { return 0.25 },
			wantL:    0.25,
			wantR:    0.25,
		},
		{
			name:     "stereo passes through",
			channels: 2,
			value: func(_ int, c int) float32 {
				if c == 0 {
					return 0.1
				}
				return -0.1
			},
			wantL: 0.1,
			wantR: -0.1,
		},
		{
			name:     "quad folds even and odd",
			channels: 4,
			value:    func(_ int, c int) float32 { return float32(c) * 0.1 },
			wantL:    0.1, // (0.0 + 0.2) / 2
			wantR:    0.2, // (0.1 + 0.3) / 2
		},
		{
			name:     "five channels",
			channels: 5,
			value:    func(_ int, c int) float32 { return float32(c) * 0.1 },
			wantL:    0.2, // (0.0 + 0.2 + 0.4) / 3
			wantR:    0.2, // (0.1 + 0.3) / 2
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewMockSource(8000, tt.channels, 100, tt.value)
			mixer := NewStereoMixer(src)
			if mixer.Channels() != 2 {
				t.Fatalf("Channels() = %d, want 2", mixer.Channels())
			}

			got := readAll(t, mixer, 64)
			if len(got) != 200 {
				t.Fatalf("read %d samples, want 200", len(got))
			}
			for f := 0; f < len(got); f += 2 {
				if diff := got[f] - tt.wantL; diff > 1e-6 || diff < -1e-6 {
					t.Fatalf("left[%d] = %v, want %v", f/2, got[f], tt.wantL)
				}
				if diff := got[f+1] - tt.wantR; diff > 1e-6 || diff < -1e-6 {
					t.Fatalf("right[%d] = %v, want %v", f/2, got[f+1], tt.wantR)
				}
			}
		})
	}
}

func TestStereoMixer_OddDst(t *testing.T) {
	t.Parallel()

	mixer := NewStereoMixer(audiotest.NewSilentSource(8000, 1, 10))
	if _, err := mixer.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples(odd) error = %v, want ErrInvalidDstSize", err)
	}
}

func TestStereoMixer_SeekAndDuration(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(1000, 1, 2000)
	mixer := NewStereoMixer(src)

	if got := mixer.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
	if err := mixer.Seek(time.Second); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if src.Position() != 1000 {
		t.Errorf("source position = %d, want 1000", src.Position())
	}

	if err := mixer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !src.Closed() {
		t.Error("Close() did not close the wrapped source")
	}
}

func BenchmarkStereoMixer_Mono(b *testing.B) {
	src := audiotest.NewSineSource(44100, 1, 1<<30, 440)
	mixer := NewStereoMixer(src)
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		_, _ = mixer.ReadSamples(buf)
	}
}
