// SPDX-License-Identifier: EPL-2.0

package player

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/internal/ringbuf"
	"github.com/ik5/tfplayer/internal/telemetry"
	"github.com/ik5/tfplayer/track"
)

var errBroken = errors.New("broken source")

// fakeSource yields a constant value for frames frames, then pads the
// last block and reports ErrEndOfStream.
type fakeSource struct {
	frames int
	value  float32
	failAt int
	pos    int
	done   bool
	seeks  []time.Duration
	rate   int
	closed atomic.Bool
}

func newFakeSource(frames int, value float32) *fakeSource {
	return &fakeSource{frames: frames, value: value, failAt: -1, rate: 44100}
}

func (s *fakeSource) Seek(pos time.Duration) error {
	s.seeks = append(s.seeks, pos)
	s.pos = int(int64(pos) * int64(s.rate) / int64(time.Second))
	s.done = s.pos >= s.frames
	return nil
}

func (s *fakeSource) Next(buf [][2]float32) error {
	if s.failAt >= 0 && s.pos+len(buf) > s.failAt {
		return errBroken
	}
	if s.done {
		return track.ErrEndOfStream
	}
	for i := range buf {
		v := float32(0)
		if s.pos < s.frames {
			v = s.value
		}
		buf[i] = [2]float32{v, v}
		s.pos++
	}
	s.done = s.pos >= s.frames
	return nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func newFakeTrack(src *fakeSource) *track.Track {
	return &track.Track{
		SampleRate: float64(src.rate),
		Signal:     src,
		Info:       track.Info{Duration: src.duration()},
	}
}

func (s *fakeSource) duration() time.Duration {
	return time.Duration(s.frames) * time.Second / time.Duration(s.rate)
}

type fakeOutput struct {
	rate   int
	prod   *ringbuf.Producer
	cons   *ringbuf.Consumer
	plays  atomic.Int32
	pauses atomic.Int32
}

func newFakeOutput(capacity int) *fakeOutput {
	p, c := ringbuf.New(capacity)
	return &fakeOutput{rate: 44100, prod: p, cons: c}
}

func (o *fakeOutput) SampleRate() int             { return o.rate }
func (o *fakeOutput) Producer() *ringbuf.Producer { return o.prod }
func (o *fakeOutput) Play() error                 { o.plays.Add(1); return nil }
func (o *fakeOutput) Pause() error                { o.pauses.Add(1); return nil }

func testOptions() Options {
	return Options{
		IdleSleep:         5 * time.Millisecond,
		BackpressureSleep: 5 * time.Millisecond,
		Resampler:         ResamplerCubic,
		Metrics:           telemetry.New(),
	}.withDefaults()
}

// newTestPlayer returns a player driven by hand through Tick.
func newTestPlayer(t *testing.T, out *fakeOutput) (*Player, chan<- Command) {
	t.Helper()

	cmds := make(chan Command, 16)
	p := newPlayer(cmds, out, testOptions(), zerolog.Nop())
	t.Cleanup(p.shutdown)

	return p, cmds
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case e, ok := <-events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return nil
}

func expectState(t *testing.T, events <-chan Event, kind Kind, paused bool) State {
	t.Helper()

	e := nextEvent(t, events)
	sc, ok := e.(StateChanged)
	if !ok {
		t.Fatalf("got %T %+v, want StateChanged", e, e)
	}
	if sc.State.Kind != kind || sc.State.Paused != paused {
		t.Fatalf("state = %v, want kind %v paused %v", sc.State, kind, paused)
	}
	return sc.State
}

func expectTrackEnd(t *testing.T, events <-chan Event) TrackEnd {
	t.Helper()

	e := nextEvent(t, events)
	te, ok := e.(TrackEnd)
	if !ok {
		t.Fatalf("got %T %+v, want TrackEnd", e, e)
	}
	return te
}
