// SPDX-License-Identifier: EPL-2.0

package player

import (
	"time"

	"github.com/ik5/tfplayer/track"
)

// Command travels from the Controller to the player goroutine.
type Command interface {
	isCommand()
}

type (
	// Clear drops the queue and the current track.
	Clear struct{}
	// QueueTrack appends a track; the player owns it from then on.
	QueueTrack struct{ Track *track.Track }
	Play       struct{}
	Pause      struct{}
	Seek       struct{ Pos time.Duration }
	// Skip drops the current track without a TrackEnd event.
	Skip      struct{}
	SetVolume struct{ Volume float32 }
)

func (Clear) isCommand()      {}
func (QueueTrack) isCommand() {}
func (Play) isCommand()       {}
func (Pause) isCommand()      {}
func (Seek) isCommand()       {}
func (Skip) isCommand()       {}
func (SetVolume) isCommand()  {}
