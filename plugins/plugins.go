// SPDX-License-Identifier: EPL-2.0

// Package plugins holds the track.Plugin implementations shipped with the
// player: local files, progressive HTTP downloads and HLS playlists.
package plugins

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/formats"
	"github.com/ik5/tfplayer/hls"
	"github.com/ik5/tfplayer/progressive"
	"github.com/ik5/tfplayer/track"
)

// ErrUnknownFormat is returned when no decoder is registered for a URL's
// extension.
var ErrUnknownFormat = errors.New("no decoder for format")

// Options is shared by the bundled plugins. Zero fields take defaults.
type Options struct {
	Client *http.Client
	// Registry maps extensions to decoders; nil means formats.NewRegistry.
	Registry *audio.Registry
	// SegmentFormat is the registry key used to decode HLS segments.
	SegmentFormat string
	HLS           hls.Options
	Progressive   progressive.Options
}

// Default returns the bundled plugins in resolution order. HLS comes
// before HTTP so playlists are not fetched as plain files.
func Default(opts Options, logger zerolog.Logger) []track.Plugin {
	opts.Registry = registry(opts.Registry)

	return []track.Plugin{
		NewLocal(opts.Registry, logger),
		NewHLS(opts, logger),
		NewHTTP(opts, logger),
	}
}

func isHTTP(u *url.URL) bool {
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

func isPlaylist(u *url.URL) bool {
	switch audio.FormatOf(u.Path) {
	case "m3u8", "m3u":
		return true
	}
	return false
}

func client(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func registry(r *audio.Registry) *audio.Registry {
	if r == nil {
		return formats.NewRegistry()
	}
	return r
}
