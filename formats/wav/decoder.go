// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ik5/tfplayer/audio"
)

// streamingSize marks a data chunk whose length was not known when written.
const streamingSize = 0xFFFFFFFF

type wavSource struct {
	r          io.Reader
	seeker     io.Seeker // nil when r cannot seek
	sampleRate int
	channels   int
	dataStart  int64
	dataSize   int64 // -1 when unbounded
	remaining  int64 // -1 when unbounded
	buf        []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }
func (s *wavSource) BufSize() int    { return cap(s.buf) / 2 }

func (s *wavSource) blockAlign() int64 { return int64(s.channels) * 2 }

// Duration is derived from the data chunk size, 0 for streamed files.
func (s *wavSource) Duration() time.Duration {
	if s.dataSize < 0 {
		return 0
	}
	return audio.FramesToDuration(s.dataSize/s.blockAlign(), s.sampleRate)
}

func (s *wavSource) Seek(pos time.Duration) error {
	if s.seeker == nil {
		return audio.ErrNotSeekable
	}

	off := audio.DurationToFrames(pos, s.sampleRate) * s.blockAlign()
	if s.dataSize >= 0 {
		off = min(off, s.dataSize)
	}
	if _, err := s.seeker.Seek(s.dataStart+off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking wav data: %w", err)
	}

	s.remaining = -1
	if s.dataSize >= 0 {
		s.remaining = s.dataSize - off
	}
	return nil
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if s.remaining == 0 {
		return 0, io.EOF
	}

	want := int64(len(dst) * 2)
	if s.remaining > 0 {
		want = min(want, s.remaining)
	}
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	if s.remaining > 0 {
		s.remaining -= int64(n)
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / 2
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
		dst[i] = float32(v) / 32768.0
	}

	if samples == 0 && err != nil {
		return 0, io.EOF
	}
	return samples, nil
}

// Decoder reads 16-bit PCM RIFF/WAVE streams. Unknown chunks before the
// data chunk are skipped. When the reader is also an io.Seeker the
// returned source implements audio.Seekable.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWavFile
	}

	offset := int64(len(riff))
	var (
		haveFmt    bool
		channels   int
		sampleRate int
	)

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}
			return nil, ErrUnsupportedWavChunks
		}
		offset += int64(len(hdr))

		id := string(hdr[:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(fmtChunk[0:2])
			channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			bitsPerSample := binary.LittleEndian.Uint16(fmtChunk[14:16])
			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, ErrOnlyPCM16bitSupported
			}
			if channels == 0 || sampleRate == 0 {
				return nil, ErrUnsupportedWavLayout
			}
			if err := skip(r, size-16+size&1); err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}
			src := &wavSource{
				r:          r,
				sampleRate: sampleRate,
				channels:   channels,
				dataStart:  offset,
				dataSize:   size,
				remaining:  size,
				buf:        make([]byte, 4096),
			}
			if size == streamingSize {
				src.dataSize, src.remaining = -1, -1
			}
			if sk, ok := r.(io.Seeker); ok {
				src.seeker = sk
			}
			return src, nil

		default:
			if err := skip(r, size+size&1); err != nil {
				return nil, err
			}
		}
		offset += size + size&1
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}
	return nil
}
