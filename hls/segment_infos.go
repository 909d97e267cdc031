// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"time"

	"github.com/samber/lo"
)

// DefaultByteRate is the assumed stream byte rate: 128 kbit/s.
const DefaultByteRate = 128_000 / 8

// SegmentInfo is one playlist entry.
type SegmentInfo struct {
	URL      string
	Duration time.Duration
}

// SegmentInfos is the ordered segment list plus the time <-> byte mapping.
//
// A byte offset b inside a segment corresponds to ceil(b/rate) seconds
// after the segment start, and a time t to floor(t*rate) bytes. With that
// rounding SegmentAt(TimeAtPosition(i, b)) == (i, b) for every byte inside
// a segment.
type SegmentInfos struct {
	segments []SegmentInfo
	starts   []time.Duration
	total    time.Duration
	byteRate int64
}

// NewSegmentInfos builds the mapping. byteRate <= 0 selects DefaultByteRate.
func NewSegmentInfos(segments []SegmentInfo, byteRate int64) *SegmentInfos {
	if byteRate <= 0 {
		byteRate = DefaultByteRate
	}

	starts := make([]time.Duration, len(segments))
	var t time.Duration
	for i, s := range segments {
		starts[i] = t
		t += s.Duration
	}

	return &SegmentInfos{
		segments: segments,
		starts:   starts,
		total:    t,
		byteRate: byteRate,
	}
}

func (s *SegmentInfos) Len() int                { return len(s.segments) }
func (s *SegmentInfos) At(idx int) SegmentInfo  { return s.segments[idx] }
func (s *SegmentInfos) Duration() time.Duration { return s.total }
func (s *SegmentInfos) ByteRate() int64         { return s.byteRate }

// SegmentAt returns the segment covering t and the byte offset of t inside
// it. ok is false for negative times and for t >= Duration().
func (s *SegmentInfos) SegmentAt(t time.Duration) (idx int, offset int64, ok bool) {
	if t < 0 || t >= s.total {
		return 0, 0, false
	}

	for i, seg := range s.segments {
		if t < s.starts[i]+seg.Duration {
			return i, s.timeToBytes(t - s.starts[i]), true
		}
	}

	return 0, 0, false
}

// TimeAtPosition is the inverse of SegmentAt. Indexes past the last
// segment map to Duration().
func (s *SegmentInfos) TimeAtPosition(idx int, offset int64) time.Duration {
	if idx >= len(s.segments) {
		return s.total
	}
	idx = max(idx, 0)

	return s.starts[idx] + s.bytesToTime(offset)
}

// ByteLen is the logical length of the whole stream.
func (s *SegmentInfos) ByteLen() int64 {
	return ceilDiv(mulDiv(int64(s.total), s.byteRate, int64(time.Second)))
}

// ByteOffset converts a position into a logical stream offset.
func (s *SegmentInfos) ByteOffset(idx int, offset int64) int64 {
	return s.timeToBytes(s.TimeAtPosition(idx, offset))
}

// PositionAt converts a logical stream offset into a position. Offsets at
// or past the end return (Len(), 0).
func (s *SegmentInfos) PositionAt(byteOffset int64) (idx int, offset int64) {
	idx, offset, ok := s.SegmentAt(s.bytesToTime(max(byteOffset, 0)))
	if !ok {
		return len(s.segments), 0
	}

	return idx, offset
}

// SegmentsBetween lists the segment indexes overlapping [from, to].
func (s *SegmentInfos) SegmentsBetween(from, to time.Duration) []int {
	first, _, ok := s.SegmentAt(max(from, 0))
	if !ok {
		return nil
	}

	last, _, ok := s.SegmentAt(min(to, s.total-1))
	if !ok {
		last = len(s.segments) - 1
	}

	return lo.RangeFrom(first, last-first+1)
}

func (s *SegmentInfos) timeToBytes(d time.Duration) int64 {
	q, _ := mulDiv(int64(d), s.byteRate, int64(time.Second))
	return q
}

func (s *SegmentInfos) bytesToTime(b int64) time.Duration {
	return time.Duration(ceilDiv(mulDiv(b, int64(time.Second), s.byteRate)))
}

// mulDiv returns the quotient and remainder of a*b/c without overflowing
// for the magnitudes seen here (hours of audio, byte rates below 1e9).
func mulDiv(a, b, c int64) (int64, int64) {
	q, r := a/c, a%c
	rb := r * b

	return q*b + rb/c, rb % c
}

func ceilDiv(q, r int64) int64 {
	if r > 0 {
		return q + 1
	}
	return q
}
