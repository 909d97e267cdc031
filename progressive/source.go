// SPDX-License-Identifier: EPL-2.0

package progressive

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

// OpenSeekable decodes url with a decoder that seeks through its reader
// (wav, vorbis, aiff). Track seeks become Range requests.
func OpenSeekable(ctx context.Context, client *http.Client, url string, dec audio.Decoder, opts Options, logger zerolog.Logger) (*track.Track, error) {
	h, err := Open(ctx, client, url, opts, logger)
	if err != nil {
		return nil, err
	}

	src, err := dec.Decode(h)
	if err != nil {
		return nil, errors.Join(err, h.Close())
	}

	return track.NewTrack(src, h), nil
}

// OpenStream decodes url with a decoder that only sees an io.Reader
// (mp3: given a seeker it would download the whole file to measure it).
// Duration and seek targets come from the constant byte rate in opts; a
// seek reopens the decoder at the matching byte.
func OpenStream(ctx context.Context, client *http.Client, url string, dec audio.Decoder, opts Options, logger zerolog.Logger) (*track.Track, error) {
	opts = opts.withDefaults()

	h, err := Open(ctx, client, url, opts, logger)
	if err != nil {
		return nil, err
	}

	var duration time.Duration
	if h.ByteLen() >= 0 {
		duration = time.Duration(h.ByteLen() * int64(time.Second) / opts.ByteRate)
	}

	open := func(pos time.Duration) (audio.Source, error) {
		off := int64(pos) / int64(time.Millisecond) * opts.ByteRate / 1000
		if _, err := h.Seek(off, io.SeekStart); err != nil {
			return nil, err
		}
		return dec.Decode(struct{ io.Reader }{h})
	}

	src, err := track.NewReopening(open, duration, h)
	if err != nil {
		return nil, errors.Join(err, h.Close())
	}

	return &track.Track{
		SampleRate: float64(src.SampleRate()),
		Signal:     src,
		Info:       track.Info{Duration: duration},
	}, nil
}
