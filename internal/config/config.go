// SPDX-License-Identifier: EPL-2.0

// Package config loads the player configuration: built-in defaults, then
// an optional YAML file, then individual overrides from the command line.
package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/hls"
	"github.com/ik5/tfplayer/internal/telemetry"
	"github.com/ik5/tfplayer/player"
	"github.com/ik5/tfplayer/plugins"
	"github.com/ik5/tfplayer/progressive"
	"github.com/ik5/tfplayer/sink"
)

type Config struct {
	Output  Output  `koanf:"output"`
	Player  Player  `koanf:"player"`
	Stream  Stream  `koanf:"stream"`
	Log     Log     `koanf:"log"`
	Metrics Metrics `koanf:"metrics"`
}

type Output struct {
	Backend       string  `koanf:"backend"`
	SampleRate    int     `koanf:"sampleRate"`
	BufferSeconds float64 `koanf:"bufferSeconds"`
}

type Player struct {
	Volume            float64       `koanf:"volume"`
	LowWater          int           `koanf:"lowWater"`
	IdleSleep         time.Duration `koanf:"idleSleep"`
	BackpressureSleep time.Duration `koanf:"backpressureSleep"`
	ReportInterval    time.Duration `koanf:"reportInterval"`
	Resampler         string        `koanf:"resampler"`
	ChunkFrames       int           `koanf:"chunkFrames"`
	SincLen           int           `koanf:"sincLen"`
}

type Stream struct {
	Lookahead     time.Duration `koanf:"lookahead"`
	Retries       int           `koanf:"retries"`
	Backoff       time.Duration `koanf:"backoff"`
	PollInterval  time.Duration `koanf:"pollInterval"`
	ByteRate      int64         `koanf:"byteRate"`
	SegmentFormat string        `koanf:"segmentFormat"`
	// Timeout bounds the wait for response headers and, for HLS, a whole
	// segment download. Progressive bodies are streamed and never time out.
	// 0 for none.
	Timeout time.Duration `koanf:"timeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Metrics struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `koanf:"addr"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Output: Output{
			Backend:       sink.BackendOto,
			SampleRate:    44100,
			BufferSeconds: 1,
		},
		Player: Player{
			Volume:            1,
			LowWater:          512,
			IdleSleep:         100 * time.Millisecond,
			BackpressureSleep: 100 * time.Millisecond,
			ReportInterval:    time.Second,
			Resampler:         player.ResamplerSinc,
			ChunkFrames:       512,
			SincLen:           audio.DefaultSincParams().Len,
		},
		Stream: Stream{
			Lookahead:     10 * time.Second,
			Retries:       5,
			Backoff:       time.Second,
			PollInterval:  time.Second,
			ByteRate:      hls.DefaultByteRate,
			SegmentFormat: plugins.DefaultSegmentFormat,
			Timeout:       30 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Loader accumulates configuration layers.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader starts from Defaults.
func NewLoader() (*Loader, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	return &Loader{k: k}, nil
}

// LoadFile merges a YAML file over the current values.
func (l *Loader) LoadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Set overrides a single dotted key such as "output.backend".
func (l *Loader) Set(key string, value any) error {
	return l.k.Set(key, value)
}

func (l *Loader) Config() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Load reads defaults and, when path is not empty, the YAML file at path.
func Load(path string) (*Config, error) {
	l, err := NewLoader()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := l.LoadFile(path); err != nil {
			return nil, err
		}
	}

	return l.Config()
}

func (c *Config) SinkOptions(m *telemetry.Metrics) sink.Options {
	return sink.Options{
		Backend:       c.Output.Backend,
		SampleRate:    c.Output.SampleRate,
		BufferSeconds: c.Output.BufferSeconds,
		Metrics:       m,
	}
}

func (c *Config) PlayerOptions(m *telemetry.Metrics) player.Options {
	sinc := audio.DefaultSincParams()
	if c.Player.SincLen > 0 {
		sinc.Len = c.Player.SincLen
	}

	return player.Options{
		LowWater:          c.Player.LowWater,
		IdleSleep:         c.Player.IdleSleep,
		BackpressureSleep: c.Player.BackpressureSleep,
		ReportInterval:    c.Player.ReportInterval,
		Volume:            lo.ToPtr(float32(c.Player.Volume)),
		Resampler:         c.Player.Resampler,
		ChunkFrames:       c.Player.ChunkFrames,
		Sinc:              sinc,
		Metrics:           m,
	}
}

// streamClient has no overall timeout: it would cut progressive bodies,
// which are read at playback speed.
func (c *Config) streamClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = c.Stream.Timeout

	return &http.Client{Transport: tr}
}

func (c *Config) PluginOptions(m *telemetry.Metrics) plugins.Options {
	return plugins.Options{
		Client:        c.streamClient(),
		SegmentFormat: c.Stream.SegmentFormat,
		HLS: hls.Options{
			Lookahead:      c.Stream.Lookahead,
			Retries:        c.Stream.Retries,
			Backoff:        c.Stream.Backoff,
			PollInterval:   c.Stream.PollInterval,
			ByteRate:       c.Stream.ByteRate,
			RequestTimeout: c.Stream.Timeout,
			Metrics:        m,
		},
		Progressive: progressive.Options{
			Retries:  c.Stream.Retries,
			Backoff:  c.Stream.Backoff,
			ByteRate: c.Stream.ByteRate,
			Metrics:  m,
		},
	}
}
