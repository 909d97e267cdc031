// SPDX-License-Identifier: EPL-2.0

package track

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Resolver tries an ordered list of plugins and returns the first Track.
type Resolver struct {
	plugins []Plugin
	logger  zerolog.Logger
}

func NewResolver(logger zerolog.Logger, plugins ...Plugin) *Resolver {
	return &Resolver{
		plugins: plugins,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// Plugins lists the plugin names in resolution order.
func (r *Resolver) Plugins() []string {
	return lo.Map(r.plugins, func(p Plugin, _ int) string { return p.Name() })
}

// Resolve parses raw and hands it to each plugin in turn. Strings without a
// scheme are treated as local paths.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Track, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}

	for _, p := range r.plugins {
		t, err := p.HandleURL(ctx, u)
		if errors.Is(err, ErrUnsupportedURL) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}

		r.logger.Debug().
			Str("plugin", p.Name()).
			Str("url", u.Redacted()).
			Dur("duration", t.Info.Duration).
			Float64("sample_rate", t.SampleRate).
			Msg("track resolved")
		return t, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Redacted())
}

// ParseURL accepts URLs and bare file paths; paths become file:// URLs.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return u, nil
	}

	abs, absErr := filepath.Abs(raw)
	if absErr != nil {
		return nil, fmt.Errorf("resolving path %q: %w", raw, absErr)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}
