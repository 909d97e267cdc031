// SPDX-License-Identifier: EPL-2.0

// Package progressive reads a single HTTP resource as an io.ReadSeeker.
// Seeking drops the response and the next Read reopens the resource with
// a Range request at the new position.
package progressive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/internal/telemetry"
)

// Options tunes retries. Zero fields take the defaults.
type Options struct {
	// Retries is the number of attempts per request, 5 by default.
	Retries int
	// Backoff is the constant pause between attempts, 1s by default.
	Backoff time.Duration
	// ByteRate is the assumed byte rate of streams whose decoder cannot
	// seek, 16000 B/s by default.
	ByteRate int64
	Metrics  *telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.Retries <= 0 {
		o.Retries = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.ByteRate <= 0 {
		o.ByteRate = 128_000 / 8
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.New()
	}

	return o
}

// HTTPProgressive is a Read+Seek view of one URL.
type HTTPProgressive struct {
	ctx    context.Context
	client *http.Client
	url    string
	opts   Options
	logger zerolog.Logger

	length   int64
	position int64
	body     io.ReadCloser
	ended    bool
	closed   bool
}

// Open issues the first GET. ctx bounds every later request too.
func Open(ctx context.Context, client *http.Client, url string, opts Options, logger zerolog.Logger) (*HTTPProgressive, error) {
	if client == nil {
		client = http.DefaultClient
	}

	h := &HTTPProgressive{
		ctx:    ctx,
		client: client,
		url:    url,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "progressive").Logger(),
		length: -1,
	}

	err := backoff.RetryNotify(h.connect, h.newBackOff(), h.notify)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}

	return h, nil
}

// ByteLen is the Content-Length of the resource, -1 when unknown.
func (h *HTTPProgressive) ByteLen() int64 { return h.length }

// IsSeekable reports whether SeekEnd and range reopening make sense.
func (h *HTTPProgressive) IsSeekable() bool { return h.length >= 0 }

// Position is the offset of the next byte Read returns.
func (h *HTTPProgressive) Position() int64 { return h.position }

func (h *HTTPProgressive) newBackOff() backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(h.opts.Backoff), uint64(h.opts.Retries-1)),
		h.ctx,
	)
}

func (h *HTTPProgressive) notify(err error, wait time.Duration) {
	h.opts.Metrics.FetchRetries.Inc()
	h.logger.Warn().Err(err).Int64("position", h.position).Dur("retry_in", wait).Msg("http retry")
}

// connect opens the body at the current position.
func (h *HTTPProgressive) connect() error {
	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	if h.position > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", h.position))
		h.opts.Metrics.RangeRequests.Inc()
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if h.ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		if h.length < 0 && resp.ContentLength >= 0 {
			h.length = h.position + resp.ContentLength
		}

	case resp.StatusCode == http.StatusOK:
		if resp.ContentLength >= 0 {
			h.length = resp.ContentLength
		}
		// The server ignored the range: skip to the position ourselves.
		if h.position > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, h.position); err != nil {
				resp.Body.Close()
				return fmt.Errorf("skipping to %d: %w", h.position, err)
			}
		}

	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		h.ended = true
		return backoff.Permanent(ErrRangeNotSatisfiable)

	default:
		resp.Body.Close()
		err := fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	h.logger.Trace().Int64("position", h.position).Int("status", resp.StatusCode).Msg("connected")
	h.body = resp.Body
	return nil
}

func (h *HTTPProgressive) closeBody() {
	if h.body != nil {
		_ = h.body.Close()
		h.body = nil
	}
}

func (h *HTTPProgressive) atEnd() bool {
	return h.ended || (h.length >= 0 && h.position >= h.length)
}

// Read reopens the resource at the current position after a seek or a
// broken connection, retrying with a constant backoff.
func (h *HTTPProgressive) Read(p []byte) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if h.atEnd() {
		return 0, io.EOF
	}

	var n int
	op := func() error {
		// A body that was already streaming gets one immediate reconnect;
		// only a fresh connection that fails waits for the backoff.
		fresh := false
		for {
			if h.body == nil {
				if err := h.connect(); err != nil {
					return err
				}
				fresh = true
			}

			var err error
			n, err = h.body.Read(p)
			h.position += int64(n)

			switch {
			case err == nil:
				return nil
			case errors.Is(err, io.EOF) && (h.length < 0 || h.position >= h.length):
				h.closeBody()
				return backoff.Permanent(io.EOF)
			}

			// Truncated body or broken connection: reconnect at position.
			h.closeBody()
			if n > 0 {
				return nil
			}
			if !fresh {
				h.logger.Debug().Err(err).Int64("position", h.position).Msg("stream broke, reconnecting")
				continue
			}
			if h.ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}

	err := backoff.RetryNotify(op, h.newBackOff(), h.notify)
	if errors.Is(err, ErrRangeNotSatisfiable) {
		return n, io.EOF
	}

	return n, err
}

// Seek moves the position without touching the network. SeekEnd needs a
// known length.
func (h *HTTPProgressive) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = h.position + offset
	case io.SeekEnd:
		if h.length < 0 {
			return 0, ErrUnknownLength
		}
		abs = h.length + offset
	default:
		return 0, fmt.Errorf("progressive: invalid whence %d", whence)
	}

	if abs < 0 {
		return 0, ErrNegativePosition
	}
	if abs == h.position {
		return abs, nil
	}

	h.closeBody()
	h.position = abs
	h.ended = false

	return abs, nil
}

func (h *HTTPProgressive) Close() error {
	h.closeBody()
	h.closed = true
	return nil
}
