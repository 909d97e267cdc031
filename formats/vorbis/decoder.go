// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"
	"time"

	"github.com/ik5/tfplayer/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	// Read returns the number of float32 values written, all channels included.
	Read([]float32) (int, error)
}

// oggSeeker is the random access part of oggvorbis.Reader. Length and
// positions count frames (samples per channel).
type oggSeeker interface {
	Length() int64
	SetPosition(pos int64) error
}

type source struct {
	dec        oggReader
	seeker     oggSeeker
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

func (s *source) Duration() time.Duration {
	if s.seeker == nil {
		return 0
	}
	return audio.FramesToDuration(s.seeker.Length(), s.sampleRate)
}

func (s *source) Seek(pos time.Duration) error {
	if s.seeker == nil {
		return audio.ErrNotSeekable
	}

	frame := audio.DurationToFrames(pos, s.sampleRate)
	if n := s.seeker.Length(); n > 0 {
		frame = min(frame, n)
	}
	if err := s.seeker.SetPosition(frame); err != nil {
		return fmt.Errorf("seeking vorbis: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) < s.channels {
		return 0, nil
	}

	// Keep whole frames so channels stay aligned across calls.
	n, err := s.dec.Read(dst[:len(dst)/s.channels*s.channels])
	if n == 0 && err != nil {
		return 0, err
	}

	return n, err
}

// Decoder decodes Ogg Vorbis streams. Over an io.ReadSeeker the source can
// also seek and report its length.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src := &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}
	if _, ok := r.(io.Seeker); ok {
		src.seeker = dec
	}

	return src, nil
}
