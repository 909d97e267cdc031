// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrNotSeekable is returned by Seek when the underlying reader cannot seek.
	ErrNotSeekable = errors.New("source is not seekable")

	// ErrInvalidRatio is returned for a resampling ratio that is not positive.
	ErrInvalidRatio = errors.New("resampling ratio must be positive")

	// ErrInvalidChunk is returned for a non-positive block size or channel count.
	ErrInvalidChunk = errors.New("chunk size and channel count must be positive")

	// ErrShortBuffer is returned by Process when in or out cannot hold a block.
	ErrShortBuffer = errors.New("buffer too short for resampler block")
)
