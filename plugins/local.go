// SPDX-License-Identifier: EPL-2.0

package plugins

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/track"
)

// Local plays file:// URLs. The decoder gets the *os.File, so duration
// and seeking come from the decoder itself.
type Local struct {
	registry *audio.Registry
	logger   zerolog.Logger
}

func NewLocal(reg *audio.Registry, logger zerolog.Logger) *Local {
	return &Local{
		registry: registry(reg),
		logger:   logger.With().Str("component", "plugin.local").Logger(),
	}
}

func (*Local) Name() string { return "local" }

func (l *Local) HandleURL(_ context.Context, u *url.URL) (*track.Track, error) {
	if u.Scheme != "file" {
		return nil, track.ErrUnsupportedURL
	}

	path := filepath.FromSlash(u.Path)
	dec, format, ok := l.registry.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := dec.Decode(f)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("decoding %s: %w", path, err), f.Close())
	}

	t := track.NewTrack(src, f)
	l.logger.Debug().Str("path", path).Str("format", format).Dur("duration", t.Info.Duration).Msg("opened")

	return t, nil
}
