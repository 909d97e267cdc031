// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/tfplayer/audio"
)

// OpenFunc opens a fresh decoded stream whose first sample is at pos.
type OpenFunc func(pos time.Duration) (audio.Source, error)

// Reopening is a Source for transports whose decoder cannot seek inside an
// open stream. Every Seek drops the current decoder and opens a new one
// at the target position.
type Reopening struct {
	open     OpenFunc
	cur      *Decoded
	duration time.Duration
	closers  []io.Closer
	ended    bool
}

// NewReopening opens the stream at zero. duration may be 0 when unknown;
// otherwise seeks at or past it end the track. closers are released by
// Close after the decoder, e.g. a segment fetcher.
func NewReopening(open OpenFunc, duration time.Duration, closers ...io.Closer) (*Reopening, error) {
	src, err := open(0)
	if err != nil {
		return nil, err
	}

	return &Reopening{
		open:     open,
		cur:      NewDecoded(src),
		duration: duration,
		closers:  closers,
	}, nil
}

// SampleRate of the current decoder. It can differ after a Seek when the
// reopened stream has another rate.
func (r *Reopening) SampleRate() int { return r.cur.SampleRate() }

// Seek keeps the current decoder when the new one cannot be opened.
func (r *Reopening) Seek(pos time.Duration) error {
	if r.duration > 0 && pos >= r.duration {
		r.ended = true
		return nil
	}

	src, err := r.open(max(pos, 0))
	if err != nil {
		return fmt.Errorf("reopening at %v: %w", pos, err)
	}

	old := r.cur
	r.cur = NewDecoded(src)
	r.ended = false

	return old.Close()
}

func (r *Reopening) Next(buf [][2]float32) error {
	if r.ended {
		return ErrEndOfStream
	}
	return r.cur.Next(buf)
}

func (r *Reopening) Close() error {
	errs := []error{r.cur.Close()}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}
