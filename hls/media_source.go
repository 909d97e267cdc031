// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var errNegativePosition = errors.New("hls: negative position")

// MediaSource presents the cached segments as one io.ReadSeeker. Read
// blocks until the segment under the cursor is cached; Seek only moves
// the cursor and lets the fetcher catch up.
type MediaSource struct {
	ctx   context.Context
	infos *SegmentInfos
	cache *SegmentCache

	seg    []byte
	loaded bool
	idx    int
	off    int64
}

// NewMediaSource starts reading at playback time pos. Reads give up when
// ctx ends or the cache is closed.
func NewMediaSource(ctx context.Context, infos *SegmentInfos, cache *SegmentCache, pos time.Duration) *MediaSource {
	m := &MediaSource{ctx: ctx, infos: infos, cache: cache}

	idx, off, ok := infos.SegmentAt(pos)
	if !ok {
		idx, off = infos.Len(), 0
	}
	m.moveTo(idx, off)

	return m
}

// Position is the current read cursor.
func (m *MediaSource) Position() Position { return Position{Segment: m.idx, Offset: m.off} }

func (m *MediaSource) ended() bool { return m.idx >= m.infos.Len() }

func (m *MediaSource) moveTo(idx int, off int64) {
	m.idx, m.off = idx, off
	m.seg, m.loaded = nil, false
	m.cache.SetPosition(m.Position())
}

func (m *MediaSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) && !m.ended() {
		if !m.loaded {
			if n > 0 {
				// Hand back what we have instead of blocking on the next
				// segment.
				break
			}

			data, err := m.cache.WaitSegment(m.ctx, m.idx)
			if err != nil {
				return 0, err
			}
			m.seg, m.loaded = data, true
		}

		if m.off >= int64(len(m.seg)) {
			m.idx++
			m.off = 0
			m.seg, m.loaded = nil, false
			continue
		}

		c := copy(p[n:], m.seg[m.off:])
		n += c
		m.off += int64(c)
	}

	m.cache.SetPosition(m.Position())

	if n == 0 && m.ended() {
		return 0, io.EOF
	}

	return n, nil
}

// Seek maps a logical byte offset onto a segment through the constant
// byte rate.
func (m *MediaSource) Seek(offset int64, whence int) (int64, error) {
	cur := m.infos.ByteOffset(m.idx, m.off)

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		if offset == 0 {
			return cur, nil
		}
		abs = cur + offset
	case io.SeekEnd:
		abs = m.ByteLen() + offset
	default:
		return 0, fmt.Errorf("hls: invalid whence %d", whence)
	}

	if abs < 0 {
		return 0, errNegativePosition
	}

	idx, off := m.infos.PositionAt(abs)
	m.moveTo(idx, off)

	return abs, nil
}

// ByteLen is the logical stream length: ceil(byte rate * duration).
func (m *MediaSource) ByteLen() int64 { return m.infos.ByteLen() }

func (m *MediaSource) IsSeekable() bool { return true }
