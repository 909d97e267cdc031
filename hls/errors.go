// SPDX-License-Identifier: EPL-2.0

package hls

import "errors"

var (
	ErrEmptyPlaylist = errors.New("hls: playlist has no segments")
	ErrSegmentFailed = errors.New("hls: segment fetch failed")
	ErrBadStatus     = errors.New("hls: unexpected HTTP status")
	ErrCacheClosed   = errors.New("hls: segment cache closed")
)
