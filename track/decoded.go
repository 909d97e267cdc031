// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/tfplayer/audio"
)

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 64

// Decoded adapts an audio.Source into a Source. Any channel layout is
// folded to stereo. A short final block is padded with silence and the
// following call reports ErrEndOfStream.
type Decoded struct {
	src     *audio.StereoMixer
	closers []io.Closer
	tmp     []float32
	done    bool
}

// NewDecoded wraps src. closers are closed after src, e.g. the file or
// connection the decoder reads from.
func NewDecoded(src audio.Source, closers ...io.Closer) *Decoded {
	return &Decoded{
		src:     audio.NewStereoMixer(src),
		closers: closers,
	}
}

// NewTrack builds a Track around a decoded stream. Duration comes from
// audio.Bounded when the decoder knows it.
func NewTrack(src audio.Source, closers ...io.Closer) *Track {
	d := NewDecoded(src, closers...)

	return &Track{
		SampleRate: float64(src.SampleRate()),
		Signal:     d,
		Info:       Info{Duration: d.Duration()},
	}
}

// Duration of the wrapped stream, 0 when unknown.
func (d *Decoded) Duration() time.Duration { return d.src.Duration() }

// SampleRate of the wrapped stream.
func (d *Decoded) SampleRate() int { return d.src.SampleRate() }

func (d *Decoded) Seek(pos time.Duration) error {
	if err := d.src.Seek(pos); err != nil {
		return err
	}

	d.done = false
	return nil
}

func (d *Decoded) Next(buf [][2]float32) error {
	if d.done {
		return ErrEndOfStream
	}

	need := len(buf) * 2
	if cap(d.tmp) < need {
		d.tmp = make([]float32, need)
	}
	tmp := d.tmp[:need]

	filled, empty := 0, 0
	for filled < need {
		n, err := d.src.ReadSamples(tmp[filled:])
		filled += n

		switch {
		case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
			d.done = true
			if filled == 0 {
				return ErrEndOfStream
			}
			clear(tmp[filled:])
			filled = need
		case err != nil:
			return fmt.Errorf("decoding: %w", err)
		case n == 0:
			empty++
			if empty >= maxEmptyReads {
				return ErrNoProgress
			}
		default:
			empty = 0
		}
	}

	for i := range buf {
		buf[i] = [2]float32{tmp[2*i], tmp[2*i+1]}
	}
	return nil
}

func (d *Decoded) Close() error {
	errs := []error{d.src.Close()}
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}
