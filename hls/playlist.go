// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
	"github.com/samber/lo"
)

// maxPlaylistHops bounds master -> media playlist indirections.
const maxPlaylistHops = 2

// ParsePlaylist decodes an M3U8 document. For a media playlist it returns
// the segments with URIs resolved against base. For a master playlist it
// returns no segments and the URL of the highest bandwidth variant.
func ParsePlaylist(r io.Reader, base *url.URL) ([]SegmentInfo, *url.URL, error) {
	p, kind, err := m3u8.DecodeFrom(bufio.NewReader(r), false)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing playlist: %w", err)
	}

	switch kind {
	case m3u8.MASTER:
		master, ok := p.(*m3u8.MasterPlaylist)
		if !ok || len(master.Variants) == 0 {
			return nil, nil, ErrEmptyPlaylist
		}

		best := lo.MaxBy(master.Variants, func(a, b *m3u8.Variant) bool {
			return a.Bandwidth > b.Bandwidth
		})
		u, err := base.Parse(best.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("variant uri %q: %w", best.URI, err)
		}
		return nil, u, nil

	case m3u8.MEDIA:
		media, ok := p.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, nil, ErrEmptyPlaylist
		}

		var segs []SegmentInfo
		for _, s := range media.Segments {
			if s == nil {
				continue
			}
			u, err := base.Parse(s.URI)
			if err != nil {
				return nil, nil, fmt.Errorf("segment uri %q: %w", s.URI, err)
			}
			segs = append(segs, SegmentInfo{
				URL:      u.String(),
				Duration: time.Duration(s.Duration * float64(time.Second)),
			})
		}
		if len(segs) == 0 {
			return nil, nil, ErrEmptyPlaylist
		}
		return segs, nil, nil
	}

	return nil, nil, fmt.Errorf("parsing playlist: unknown playlist type %v", kind)
}

// LoadPlaylist fetches a playlist, following a master playlist to its best
// variant.
func LoadPlaylist(ctx context.Context, client *http.Client, rawURL string, byteRate int64) (*SegmentInfos, error) {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("playlist url: %w", err)
	}

	for range maxPlaylistHops {
		body, err := fetch(ctx, client, u.String())
		if err != nil {
			return nil, fmt.Errorf("fetching playlist: %w", err)
		}

		segs, variant, err := ParsePlaylist(bytes.NewReader(body), u)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			return NewSegmentInfos(segs, byteRate), nil
		}
		u = variant
	}

	return nil, fmt.Errorf("%w: too many nested playlists", ErrEmptyPlaylist)
}
