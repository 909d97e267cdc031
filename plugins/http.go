// SPDX-License-Identifier: EPL-2.0

package plugins

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/progressive"
	"github.com/ik5/tfplayer/track"
)

// HTTP plays audio files served over http or https with Range support.
type HTTP struct {
	client   *http.Client
	registry *audio.Registry
	opts     progressive.Options
	logger   zerolog.Logger
}

func NewHTTP(opts Options, logger zerolog.Logger) *HTTP {
	return &HTTP{
		client:   client(opts.Client),
		registry: registry(opts.Registry),
		opts:     opts.Progressive,
		logger:   logger,
	}
}

func (*HTTP) Name() string { return "http" }

func (h *HTTP) HandleURL(ctx context.Context, u *url.URL) (*track.Track, error) {
	if !isHTTP(u) || isPlaylist(u) {
		return nil, track.ErrUnsupportedURL
	}

	dec, format, ok := h.registry.Lookup(u.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, audio.FormatOf(u.Path))
	}

	// mp3 would scan the whole body to measure it when given a seeker.
	if format == "mp3" {
		return progressive.OpenStream(ctx, h.client, u.String(), dec, h.opts, h.logger)
	}
	return progressive.OpenSeekable(ctx, h.client, u.String(), dec, h.opts, h.logger)
}
