// SPDX-License-Identifier: EPL-2.0

package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/ik5/tfplayer/track"
)

type Kind int

const (
	Idle Kind = iota
	Playing
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// State is a snapshot of the player. Track, Offset and Paused are only
// meaningful while Kind is Playing.
type State struct {
	Kind   Kind
	Track  track.Info
	Offset time.Duration
	Paused bool
}

func playingState(info track.Info) State {
	return State{Kind: Playing, Track: info}
}

func (s State) String() string {
	if s.Kind == Idle {
		return "idle"
	}
	if s.Paused {
		return fmt.Sprintf("paused at %v/%v", s.Offset, s.Track.Duration)
	}
	return fmt.Sprintf("playing at %v/%v", s.Offset, s.Track.Duration)
}

// setPaused reports whether the flag changed.
func (s *State) setPaused(paused bool) (bool, error) {
	if s.Kind != Playing {
		return false, ErrWrongState
	}
	if s.Paused == paused {
		return false, nil
	}
	s.Paused = paused
	return true, nil
}

func (s *State) seek(pos time.Duration) error {
	if s.Kind != Playing {
		return ErrWrongState
	}
	s.Offset = pos
	return nil
}

// SharedState is the published State. The player goroutine is the only
// writer.
type SharedState struct {
	mu sync.RWMutex
	s  State
}

// Load returns a copy of the current state.
func (ss *SharedState) Load() State {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.s
}

func (ss *SharedState) store(s State) {
	ss.mu.Lock()
	ss.s = s
	ss.mu.Unlock()
}

// update applies f under the write lock and returns the new state.
func (ss *SharedState) update(f func(*State) error) (State, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	err := f(&ss.s)
	return ss.s, err
}
