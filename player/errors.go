// SPDX-License-Identifier: EPL-2.0

package player

import "errors"

var (
	// ErrWrongState is returned for operations that need a track loaded.
	ErrWrongState = errors.New("player: wrong state")
	// ErrStopped is returned once the player goroutine has exited.
	ErrStopped = errors.New("player: stopped")
)
