// SPDX-License-Identifier: EPL-2.0

package plugins

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/hls"
	"github.com/ik5/tfplayer/track"
)

// DefaultSegmentFormat is used when Options.SegmentFormat is empty.
const DefaultSegmentFormat = "mp3"

// HLS plays .m3u8 playlists whose segments are all in one format.
type HLS struct {
	client   *http.Client
	registry *audio.Registry
	format   string
	opts     hls.Options
	logger   zerolog.Logger
}

func NewHLS(opts Options, logger zerolog.Logger) *HLS {
	format := opts.SegmentFormat
	if format == "" {
		format = DefaultSegmentFormat
	}

	return &HLS{
		client:   client(opts.Client),
		registry: registry(opts.Registry),
		format:   format,
		opts:     opts.HLS,
		logger:   logger,
	}
}

func (*HLS) Name() string { return "hls" }

func (h *HLS) HandleURL(ctx context.Context, u *url.URL) (*track.Track, error) {
	if !isHTTP(u) || !isPlaylist(u) {
		return nil, track.ErrUnsupportedURL
	}

	dec, ok := h.registry.Get(h.format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, h.format)
	}

	return hls.Open(ctx, h.client, u.String(), dec, h.opts, h.logger)
}
