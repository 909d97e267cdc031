// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/tfplayer/audio"
)

// go-mp3 always emits interleaved stereo int16.
const (
	channels      = 2
	bytesPerFrame = 4
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// mp3Seeker is the random access part of gomp3.Decoder, usable only when
// the decoder was built over an io.Seeker.
type mp3Seeker interface {
	Seek(offset int64, whence int) (int64, error)
	Length() int64
}

type source struct {
	dec        mp3Reader
	seeker     mp3Seeker
	sampleRate int
	buf        []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) Duration() time.Duration {
	if s.seeker == nil {
		return 0
	}
	if n := s.seeker.Length(); n > 0 {
		return audio.FramesToDuration(n/bytesPerFrame, s.sampleRate)
	}
	return 0
}

func (s *source) Seek(pos time.Duration) error {
	if s.seeker == nil {
		return audio.ErrNotSeekable
	}

	off := audio.DurationToFrames(pos, s.sampleRate) * bytesPerFrame
	if n := s.seeker.Length(); n >= 0 {
		off = min(off, n)
	}
	if _, err := s.seeker.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking mp3: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		return 0, err
	}

	samples := n / 2
	for i := range samples {
		val := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(val) / 32768.0
	}

	return samples, err
}

// Decoder decodes MPEG-1/2 Layer III streams.
//
// When the reader is an io.Seeker go-mp3 scans every frame up front to
// learn the stream length; the resulting source is then audio.Seekable and
// audio.Bounded. Network readers should be wrapped so that they only expose
// io.Reader, which keeps decoding incremental.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src := &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}
	if _, ok := r.(io.Seeker); ok {
		src.seeker = dec
	}

	return src, nil
}
