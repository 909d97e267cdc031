// SPDX-License-Identifier: EPL-2.0

package track

import "errors"

var (
	// ErrEndOfStream is returned by Source.Next once the track is exhausted.
	ErrEndOfStream = errors.New("end of stream")

	// ErrUnsupportedURL is returned by a Plugin that does not handle a URL.
	ErrUnsupportedURL = errors.New("unsupported url")

	// ErrNoProgress is returned when a decoder keeps returning no samples.
	ErrNoProgress = errors.New("decoder made no progress")
)
