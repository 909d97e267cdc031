// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"time"

	"github.com/ik5/tfplayer/internal/telemetry"
)

// Options tunes the fetcher. Zero fields take the defaults below.
type Options struct {
	// Lookahead is how far ahead of the cursor segments are kept cached.
	Lookahead time.Duration
	// Retries is the number of attempts per segment.
	Retries int
	// Backoff is the constant pause between attempts.
	Backoff time.Duration
	// PollInterval is the pause between lookahead passes when the cursor
	// does not move.
	PollInterval time.Duration
	// ByteRate is the assumed constant stream byte rate.
	ByteRate int64
	// RequestTimeout bounds one segment download, 0 for none.
	RequestTimeout time.Duration
	Metrics        *telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.Lookahead <= 0 {
		o.Lookahead = 10 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.ByteRate <= 0 {
		o.ByteRate = DefaultByteRate
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.New()
	}

	return o
}
