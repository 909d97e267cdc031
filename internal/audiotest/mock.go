// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds test doubles shared by the package tests.
package audiotest

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
	"time"
)

// ErrInjected is returned by a MockSource once its failure point is reached.
var ErrInjected = errors.New("audiotest: injected failure")

// MockSource is a test helper that generates audio data for testing.
// It satisfies audio.Source, audio.Seekable and audio.Bounded without
// importing the audio package.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	failAt       int // Frame index that triggers ErrInjected, or -1
	waveform     func(sample int, channel int) float32
	closed       atomic.Bool
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		failAt:       -1,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewConstantSource(sampleRate, channels, totalSamples, 0)
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return value
	})
}

// NewRampSource creates a mock source whose value encodes the frame index,
// which makes seeks and ordering visible in tests.
func NewRampSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		return float32(sample) / float32(totalSamples)
	})
}

// FailAt makes ReadSamples return ErrInjected once frame is reached.
func (m *MockSource) FailAt(frame int) *MockSource {
	m.failAt = frame
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed.Load() }

// Position returns the next frame index to be generated.
func (m *MockSource) Position() int { return m.generated }

// Reset resets the generated sample counter to allow re-reading
func (m *MockSource) Reset() {
	m.generated = 0
}

// Duration is the total length of the generated signal.
func (m *MockSource) Duration() time.Duration {
	return time.Duration(int64(m.totalSamples) * int64(time.Second) / int64(m.sampleRate))
}

// Seek moves the generator to the frame at pos, clamped to the end.
func (m *MockSource) Seek(pos time.Duration) error {
	frame := int(int64(pos) * int64(m.sampleRate) / int64(time.Second))
	m.generated = max(0, min(frame, m.totalSamples))
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAt >= 0 && m.generated >= m.failAt {
		return 0, ErrInjected
	}
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)
	if m.failAt >= 0 {
		framesToWrite = min(framesToWrite, m.failAt-m.generated)
	}

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}
