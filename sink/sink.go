// SPDX-License-Identifier: EPL-2.0

// Package sink owns the output device and the consumer half of the sample
// ring. The device pulls samples through Process, which never blocks,
// locks or allocates; on underrun it plays silence.
package sink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/internal/ringbuf"
	"github.com/ik5/tfplayer/internal/telemetry"
)

// Channels is fixed: every sample in the ring is interleaved stereo.
const Channels = 2

// Backend names.
const (
	BackendOto   = "oto"
	BackendBeep  = "beep"
	BackendClock = "clock"
	BackendNone  = "none"
)

var (
	ErrUnknownBackend     = errors.New("sink: unknown backend")
	ErrBackendUnavailable = errors.New("sink: backend not available in this build")
)

// Options selects and sizes the device.
type Options struct {
	Backend       string
	SampleRate    int
	BufferSeconds float64
	Metrics       *telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendOto
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.BufferSeconds <= 0 {
		o.BufferSeconds = 1
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.New()
	}

	return o
}

// device is a started output stream that calls Sink.Process.
type device interface {
	Play() error
	Pause() error
	Close() error
}

// Sink is the hardware boundary. The producer half of its ring belongs to
// the player goroutine.
type Sink struct {
	rate     int
	producer *ringbuf.Producer
	consumer *ringbuf.Consumer
	dev      device
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
}

// New opens the backend paused with a ring of BufferSeconds of stereo
// audio.
func New(opts Options, logger zerolog.Logger) (*Sink, error) {
	opts = opts.withDefaults()

	capacity := int(float64(opts.SampleRate)*opts.BufferSeconds) * Channels
	prod, cons := ringbuf.New(capacity)

	s := &Sink{
		rate:     opts.SampleRate,
		producer: prod,
		consumer: cons,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "sink").Logger(),
	}

	dev, err := s.open(strings.ToLower(opts.Backend))
	if err != nil {
		return nil, fmt.Errorf("opening %s output: %w", opts.Backend, err)
	}
	s.dev = dev

	s.logger.Info().
		Str("backend", opts.Backend).
		Int("sample_rate", s.rate).
		Int("ring_samples", capacity).
		Msg("output opened")

	return s, nil
}

func (s *Sink) open(backend string) (device, error) {
	switch backend {
	case BackendClock:
		return newClockDevice(s), nil
	case BackendNone:
		return nopDevice{}, nil
	case BackendOto, BackendBeep:
		return openNative(backend, s)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func (s *Sink) SampleRate() int { return s.rate }

// Producer is the write half of the ring. Only one goroutine may use it.
func (s *Sink) Producer() *ringbuf.Producer { return s.producer }

// Play starts pulling from the ring.
func (s *Sink) Play() error { return s.dev.Play() }

// Pause stops pulling; samples already queued stay in the ring.
func (s *Sink) Pause() error { return s.dev.Pause() }

func (s *Sink) Close() error {
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

// Process fills data from the ring and pads an underrun with silence. It
// runs on the audio thread.
func (s *Sink) Process(data []float32) {
	n := s.consumer.Read(data)
	if n < len(data) {
		clear(data[n:])
		s.metrics.Underruns.Inc()
	}
	s.metrics.SamplesPlayed.Add(float64(n))
}

// Drain moves up to len(dst) queued samples into dst without padding. It
// is for offline backends whose caller plays the role of the device.
func (s *Sink) Drain(dst []float32) int {
	n := s.consumer.Read(dst)
	s.metrics.SamplesPlayed.Add(float64(n))
	return n
}

// Queued is the number of samples waiting in the ring.
func (s *Sink) Queued() int { return s.consumer.Slots() }

type nopDevice struct{}

func (nopDevice) Play() error  { return nil }
func (nopDevice) Pause() error { return nil }
func (nopDevice) Close() error { return nil }
