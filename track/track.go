// SPDX-License-Identifier: EPL-2.0

// Package track defines what the player consumes: a Source of stereo
// frames, the Track that pairs it with its native rate and metadata, and
// the Plugin contract that turns a URL into a Track.
package track

import (
	"context"
	"net/url"
	"time"
)

// Source yields decoded stereo frames at the track's native rate.
type Source interface {
	// Seek repositions the stream so the next Next call starts at pos.
	Seek(pos time.Duration) error
	// Next fills every frame of buf or returns an error; there are no
	// partial fills. ErrEndOfStream marks the normal end of the track.
	Next(buf [][2]float32) error
	// Close stops background work and releases the transport.
	Close() error
}

// RateSource is a Source whose native rate may change when Seek reopens
// the underlying decoder.
type RateSource interface {
	Source
	SampleRate() int
}

// Info describes a resolved track.
type Info struct {
	Duration time.Duration
}

// Track is a ready to play Source plus its metadata and native rate.
// The player owns it from QueueTrack until it is finished, skipped or
// cleared, and closes it at that point.
type Track struct {
	SampleRate float64
	Signal     Source
	Info       Info
}

// Plugin turns a URL into a Track. HandleURL returns ErrUnsupportedURL
// when the plugin does not apply, so the next plugin can be tried.
type Plugin interface {
	Name() string
	HandleURL(ctx context.Context, u *url.URL) (*Track, error)
}
