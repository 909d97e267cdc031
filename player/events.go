// SPDX-License-Identifier: EPL-2.0

package player

import "github.com/ik5/tfplayer/track"

// Event travels from the player goroutine to the caller.
type Event interface {
	isEvent()
}

// StateChanged carries the state after a transition, or a periodic
// position heartbeat while playing.
type StateChanged struct{ State State }

// TrackEnd is sent when a track stops on its own. Err is nil at a normal
// end of stream and holds the failure when the track was dropped because
// of an error.
type TrackEnd struct {
	Track track.Info
	Err   error
}

func (StateChanged) isEvent() {}
func (TrackEnd) isEvent()     {}

// eventQueue is an unbounded FIFO in front of a channel. Sends never
// block the player; the pump goroutine hands events out in order.
type eventQueue struct {
	in  chan Event
	out chan Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		in:  make(chan Event, 16),
		out: make(chan Event),
	}
	go q.pump()

	return q
}

func (q *eventQueue) pump() {
	var pending []Event

	for {
		var (
			out  chan Event
			next Event
		)
		if len(pending) > 0 {
			out, next = q.out, pending[0]
		}

		select {
		case e, ok := <-q.in:
			if !ok {
				// Undelivered events are dropped once the player stops.
				close(q.out)
				return
			}
			pending = append(pending, e)
		case out <- next:
			pending[0] = nil
			pending = pending[1:]
		}
	}
}

func (q *eventQueue) send(e Event) { q.in <- e }

func (q *eventQueue) close() { close(q.in) }
