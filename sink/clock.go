// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"sync"
	"time"
)

// clockPeriod is how much audio the clock device consumes per tick.
const clockPeriod = 10 * time.Millisecond

// clockDevice consumes the ring at the nominal rate and discards the
// samples. It stands in for hardware on headless hosts and in tests.
type clockDevice struct {
	s *Sink

	mu      sync.Mutex
	playing bool
	stop    chan struct{}
	done    chan struct{}
	buf     []float32
}

func newClockDevice(s *Sink) *clockDevice {
	return &clockDevice{
		s:   s,
		buf: make([]float32, s.rate*Channels*int(clockPeriod)/int(time.Second)),
	}
}

func (d *clockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing {
		return nil
	}
	d.playing = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.stop, d.done)

	return nil
}

func (d *clockDevice) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(clockPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.s.Process(d.buf)
		}
	}
}

func (d *clockDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing {
		return nil
	}
	d.playing = false
	close(d.stop)
	<-d.done

	return nil
}

func (d *clockDevice) Close() error { return d.Pause() }
