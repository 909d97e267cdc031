// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/track"
)

// Open loads the playlist at playlistURL and returns a track decoded with
// dec. The track owns a Fetcher and a SegmentCache; closing the track
// stops both. Seeking rebuilds the MediaSource and the decoder.
func Open(ctx context.Context, client *http.Client, playlistURL string, dec audio.Decoder, opts Options, logger zerolog.Logger) (*track.Track, error) {
	opts = opts.withDefaults()

	infos, err := LoadPlaylist(ctx, client, playlistURL, opts.ByteRate)
	if err != nil {
		return nil, err
	}

	cache := NewSegmentCache(infos.Len())
	fetcher, err := SpawnFetcher(ctx, client, infos, cache, opts, logger)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	readCtx := context.WithoutCancel(ctx)
	open := func(pos time.Duration) (audio.Source, error) {
		ms := NewMediaSource(readCtx, infos, cache, pos)
		// Reader only: the decoders must not scan the whole stream to
		// find its length.
		return dec.Decode(struct{ io.Reader }{ms})
	}

	src, err := track.NewReopening(open, infos.Duration(), fetcher, cache)
	if err != nil {
		return nil, errors.Join(err, fetcher.Close(), cache.Close())
	}

	logger.Debug().
		Str("component", "hls").
		Int("segments", infos.Len()).
		Dur("duration", infos.Duration()).
		Int("sample_rate", src.SampleRate()).
		Msg("hls track opened")

	return &track.Track{
		SampleRate: float64(src.SampleRate()),
		Signal:     src,
		Info:       track.Info{Duration: infos.Duration()},
	}, nil
}
