// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Fetcher keeps the lookahead window of a SegmentCache filled from the
// network. It runs until Close.
type Fetcher struct {
	client *http.Client
	infos  *SegmentInfos
	cache  *SegmentCache
	opts   Options
	logger zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// SpawnFetcher downloads segment 0 before returning, so the decoder can
// probe the container right away, then starts the background loop. The
// loop outlives ctx; only Close stops it.
func SpawnFetcher(ctx context.Context, client *http.Client, infos *SegmentInfos, cache *SegmentCache, opts Options, logger zerolog.Logger) (*Fetcher, error) {
	if infos.Len() == 0 {
		return nil, ErrEmptyPlaylist
	}
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client: client,
		infos:  infos,
		cache:  cache,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "hls_fetcher").Logger(),
		done:   make(chan struct{}),
	}

	first, err := f.fetchRetry(ctx, 0)
	if err != nil {
		return nil, err
	}
	cache.Store(0, first)
	f.opts.Metrics.SegmentsFetched.Inc()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel
	go f.run(runCtx)

	return f, nil
}

func (f *Fetcher) run(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	f.logger.Debug().Int("segments", f.infos.Len()).Msg("fetcher started")

	for {
		f.fill(ctx)

		select {
		case <-ctx.Done():
			f.logger.Debug().Msg("fetcher stopped")
			return
		case <-ticker.C:
		case <-f.cache.Changed():
		}
	}
}

// fill fetches, in order, every missing segment between the cursor and
// cursor+Lookahead.
func (f *Fetcher) fill(ctx context.Context) {
	pos := f.cache.Position()
	now := f.infos.TimeAtPosition(pos.Segment, pos.Offset)
	target := min(now+f.opts.Lookahead, f.infos.Duration())

	for _, idx := range f.cache.Missing(f.infos.SegmentsBetween(now, target)) {
		if ctx.Err() != nil {
			return
		}

		data, err := f.fetchRetry(ctx, idx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(err).Int("segment", idx).Msg("segment fetch failed")
			f.opts.Metrics.SegmentsFailed.Inc()
			f.cache.MarkFailed(idx, err)
			continue
		}

		f.logger.Trace().Int("segment", idx).Int("bytes", len(data)).Msg("segment cached")
		f.opts.Metrics.SegmentsFetched.Inc()
		f.cache.Store(idx, data)
	}
}

func (f *Fetcher) fetchRetry(ctx context.Context, idx int) ([]byte, error) {
	url := f.infos.At(idx).URL

	var data []byte
	op := func() error {
		var err error
		reqCtx := ctx
		if f.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
			defer cancel()
		}
		data, err = fetch(reqCtx, f.client, url)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.opts.Backoff), uint64(f.opts.Retries-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		f.opts.Metrics.FetchRetries.Inc()
		f.logger.Warn().Err(err).Int("segment", idx).Dur("retry_in", wait).Msg("segment fetch retry")
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, fmt.Errorf("fetching segment %d: %w", idx, err)
	}

	return data, nil
}

// Close stops the loop and waits for it to exit. An in-flight request is
// cancelled.
func (f *Fetcher) Close() error {
	f.once.Do(func() {
		f.cancel()
		<-f.done
	})

	return nil
}

// fetch GETs url. Client errors are permanent; everything else may be
// retried.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %s: %s", ErrBadStatus, url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
