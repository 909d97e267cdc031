// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// StereoMixer converts any channel layout into interleaved stereo.
// Mono is duplicated into both channels, stereo passes through and wider
// layouts fold even channels into left and odd channels into right.
type StereoMixer struct {
	src Source
	tmp []float32
}

func NewStereoMixer(src Source) *StereoMixer {
	return &StereoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *StereoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *StereoMixer) Channels() int   { return 2 }
func (m *StereoMixer) BufSize() int    { return m.src.BufSize() }
func (m *StereoMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// Seek forwards to the wrapped source when it supports seeking.
func (m *StereoMixer) Seek(pos time.Duration) error {
	s, ok := m.src.(Seekable)
	if !ok {
		return ErrNotSeekable
	}

	return s.Seek(pos)
}

// Duration reports the wrapped source length, or 0 when unknown.
func (m *StereoMixer) Duration() time.Duration {
	if b, ok := m.src.(Bounded); ok {
		return b.Duration()
	}

	return 0
}

func (m *StereoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	channels := m.src.Channels()
	if channels == 2 {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / 2
	samplesNeeded := frames * channels
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	got := n / channels

	switch channels {
	case 1:
		for f := range got {
			dst[f<<1] = m.tmp[f]
			dst[f<<1+1] = m.tmp[f]
		}
	default:
		left := float32(1) / float32((channels+1)/2)
		right := float32(1) / float32(channels/2)
		for f := range got {
			base := f * channels
			var l, r float32
			for c := 0; c < channels; c += 2 {
				l += m.tmp[base+c]
			}
			for c := 1; c < channels; c += 2 {
				r += m.tmp[base+c]
			}
			dst[f<<1] = l * left
			dst[f<<1+1] = r * right
		}
	}

	return got * 2, err
}
