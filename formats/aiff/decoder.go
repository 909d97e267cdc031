// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/tfplayer/audio"
)

// aiffReader is an interface for aiff.Decoder to allow testing
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// source wraps go-audio aiff.Decoder to implement audio.Source
type source struct {
	dec        aiffReader
	reopen     func() (aiffReader, error) // rewinds to the first frame
	sampleRate int
	channels   int
	bitDepth   int
	frames     int64
	intBuf     *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *source) Duration() time.Duration {
	return audio.FramesToDuration(s.frames, s.sampleRate)
}

// Seek rewinds the container and decodes forward to pos; go-audio offers
// no frame index for AIFF.
func (s *source) Seek(pos time.Duration) error {
	if s.reopen == nil {
		return audio.ErrNotSeekable
	}

	dec, err := s.reopen()
	if err != nil {
		return fmt.Errorf("rewinding aiff: %w", err)
	}
	s.dec = dec

	remaining := audio.DurationToFrames(pos, s.sampleRate) * int64(s.channels)
	scratch := make([]float32, 4096/s.channels*s.channels)
	for remaining > 0 {
		n, err := s.ReadSamples(scratch[:min(int64(len(scratch)), remaining)])
		remaining -= int64(n)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *source) scale() float32 {
	switch s.bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	maxVal := s.scale()
	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]) / maxVal
	}

	// A short read without error marks the end of the sound data.
	if n < len(dst) && err == nil {
		return n, io.EOF
	}

	return n, err
}

func open(rs io.ReadSeeker) (*aiff.Decoder, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	return dec, nil
}

// Decoder reads PCM AIFF files. go-audio needs random access, so plain
// readers are buffered in memory first; the source is always seekable.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec, err := open(rs)
	if err != nil {
		return nil, err
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, ErrUnsupportedBitDepth
	}

	format := dec.Format()
	if format == nil || format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	return &source{
		dec: dec,
		reopen: func() (aiffReader, error) {
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			return open(rs)
		},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   int(dec.BitDepth),
		frames:     int64(dec.NumSampleFrames),
	}, nil
}
