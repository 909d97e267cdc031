// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/track"
)

// Controller is the caller side of a running player. It is safe for
// concurrent use.
type Controller struct {
	cmds     chan Command
	state    *SharedState
	nbQueued func() int64
	events   <-chan Event

	// mu guards stopped. Senders hold it shared while enqueueing, so once
	// stopped is set no command can land in cmds.
	mu       sync.RWMutex
	stopped  bool
	stopping chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Spawn starts the player goroutine writing into out.
func Spawn(out Output, opts Options, logger zerolog.Logger) (*Controller, error) {
	opts = opts.withDefaults()

	// Fail early on a bad resampler kind instead of on the first track.
	if _, err := NewResampler(opts.Resampler, 1, opts.ChunkFrames, opts.Sinc); err != nil {
		return nil, err
	}

	cmds := make(chan Command, opts.CommandBuffer)
	p := newPlayer(cmds, out, opts, logger)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cmds:     cmds,
		state:    p.state,
		nbQueued: p.nbQueued.Load,
		events:   p.events.out,
		stopping: make(chan struct{}),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		p.Run(ctx)

		close(c.stopping)
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		// Commands sent while Run was shutting down.
		p.closePending()
	}()

	return c, nil
}

func (c *Controller) send(cmd Command) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stopped {
		return ErrStopped
	}

	select {
	case c.cmds <- cmd:
		return nil
	case <-c.stopping:
		return ErrStopped
	}
}

// QueueTrack hands t to the player. On error the caller still owns t.
func (c *Controller) QueueTrack(t *track.Track) error {
	return c.send(QueueTrack{Track: t})
}

func (c *Controller) Play() error  { return c.send(Play{}) }
func (c *Controller) Pause() error { return c.send(Pause{}) }
func (c *Controller) Skip() error  { return c.send(Skip{}) }
func (c *Controller) Clear() error { return c.send(Clear{}) }

// PlayPause toggles pause based on the last published state.
func (c *Controller) PlayPause() error {
	st := c.state.Load()
	if st.Kind != Playing {
		return ErrWrongState
	}
	if st.Paused {
		return c.Play()
	}
	return c.Pause()
}

// Seek moves the current track to pos. Negative positions seek to 0.
func (c *Controller) Seek(pos time.Duration) error {
	return c.send(Seek{Pos: pos})
}

// SetVolume sets the gain, clamped to [0, MaxVolume].
func (c *Controller) SetVolume(v float32) error {
	return c.send(SetVolume{Volume: v})
}

// State returns the last published state.
func (c *Controller) State() State { return c.state.Load() }

// NbQueued is the number of tracks waiting behind the current one.
func (c *Controller) NbQueued() int { return int(c.nbQueued()) }

// Events delivers StateChanged and TrackEnd in order. The channel is
// closed once the player stops.
func (c *Controller) Events() <-chan Event { return c.events }

// Done is closed when the player goroutine has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Close stops the player, closes every track it owns and waits for it.
func (c *Controller) Close() error {
	c.once.Do(c.cancel)
	<-c.done
	return nil
}
