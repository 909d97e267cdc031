// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Source is a decoded PCM stream.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Seekable is implemented by sources that can jump to a time position.
// The next ReadSamples call returns samples starting at pos.
type Seekable interface {
	Seek(pos time.Duration) error
}

// Bounded is implemented by sources that know their total length.
type Bounded interface {
	Duration() time.Duration
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.RWMutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[strings.ToLower(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	d, ok := r.codecs[strings.ToLower(format)]
	return d, ok
}

// Lookup picks a decoder from the extension of name, which may be a file
// path or a URL path.
func (r *Registry) Lookup(name string) (Decoder, string, bool) {
	format := FormatOf(name)
	if format == "" {
		return nil, "", false
	}

	d, ok := r.Get(format)
	return d, format, ok
}

// Formats lists the registered format keys in lexical order.
func (r *Registry) Formats() []string {
	r.mtx.RLock()
	keys := lo.Keys(r.codecs)
	r.mtx.RUnlock()

	slices.Sort(keys)
	return keys
}

// FormatOf returns the lower case extension of name without the dot.
func FormatOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// FramesToDuration converts a frame count at rate into a duration.
func FramesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(rate))
}

// DurationToFrames converts pos into a frame index at rate.
func DurationToFrames(pos time.Duration, rate int) int64 {
	if pos <= 0 || rate <= 0 {
		return 0
	}
	return int64(pos) * int64(rate) / int64(time.Second)
}
