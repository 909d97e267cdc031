// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"context"
	"fmt"
	"sync"
)

// Position is the reader cursor: a segment index and a byte offset inside
// that segment.
type Position struct {
	Segment int
	Offset  int64
}

// SegmentCache stores fetched segments for one stream. A single goroutine
// owns the data; methods send it requests, so the fetcher and the reader
// never share a lock.
type SegmentCache struct {
	reqs    chan any
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

type (
	setPositionReq struct{ pos Position }
	storeReq       struct {
		idx  int
		data []byte
	}
	failReq struct {
		idx int
		err error
	}
	waitReq struct {
		idx   int
		reply chan segmentResult
	}
	snapshotReq struct{ reply chan cacheSnapshot }
	missingReq  struct {
		idxs  []int
		reply chan []int
	}
)

type segmentResult struct {
	data []byte
	err  error
}

type cacheSnapshot struct {
	pos       Position
	buffering bool
}

type cacheState struct {
	pos       Position
	segments  [][]byte
	failed    []error
	waiters   map[int][]chan segmentResult
	buffering bool
}

// NewSegmentCache starts the owner goroutine for n segments. Close stops it.
func NewSegmentCache(n int) *SegmentCache {
	c := &SegmentCache{
		reqs:    make(chan any),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	st := &cacheState{
		segments: make([][]byte, n),
		failed:   make([]error, n),
		waiters:  make(map[int][]chan segmentResult),
	}
	go c.run(st)

	return c
}

func (c *SegmentCache) run(st *cacheState) {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.reqs:
			c.handle(st, req)
		}
	}
}

func (c *SegmentCache) handle(st *cacheState, req any) {
	switch r := req.(type) {
	case setPositionReq:
		st.pos = r.pos
		if st.has(r.pos.Segment) {
			st.buffering = false
		}
		c.notify()

	case storeReq:
		if !st.valid(r.idx) {
			return
		}
		st.segments[r.idx] = r.data
		st.failed[r.idx] = nil
		if r.idx == st.pos.Segment {
			st.buffering = false
		}
		st.wake(r.idx, segmentResult{data: r.data})

	case failReq:
		if !st.valid(r.idx) || st.segments[r.idx] != nil {
			return
		}
		st.failed[r.idx] = r.err
		st.wake(r.idx, segmentResult{err: fmt.Errorf("%w: segment %d: %w", ErrSegmentFailed, r.idx, r.err)})

	case waitReq:
		switch {
		case !st.valid(r.idx):
			r.reply <- segmentResult{err: fmt.Errorf("%w: segment %d out of range", ErrSegmentFailed, r.idx)}
		case st.has(r.idx):
			r.reply <- segmentResult{data: st.segments[r.idx]}
		case st.failed[r.idx] != nil:
			r.reply <- segmentResult{err: fmt.Errorf("%w: segment %d: %w", ErrSegmentFailed, r.idx, st.failed[r.idx])}
		default:
			if r.idx == st.pos.Segment {
				st.buffering = true
			}
			st.waiters[r.idx] = append(st.waiters[r.idx], r.reply)
		}

	case snapshotReq:
		r.reply <- cacheSnapshot{pos: st.pos, buffering: st.buffering}

	case missingReq:
		var out []int
		for _, idx := range r.idxs {
			if st.valid(idx) && !st.has(idx) {
				out = append(out, idx)
			}
		}
		r.reply <- out
	}
}

func (st *cacheState) valid(idx int) bool { return idx >= 0 && idx < len(st.segments) }
func (st *cacheState) has(idx int) bool   { return st.valid(idx) && st.segments[idx] != nil }

func (st *cacheState) wake(idx int, res segmentResult) {
	for _, w := range st.waiters[idx] {
		w <- res
	}
	delete(st.waiters, idx)
}

func (c *SegmentCache) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *SegmentCache) send(req any) bool {
	select {
	case c.reqs <- req:
		return true
	case <-c.done:
		return false
	}
}

// Changed fires after the cursor moves. It is coalesced: several moves
// may produce one notification.
func (c *SegmentCache) Changed() <-chan struct{} { return c.changed }

// SetPosition moves the reader cursor.
func (c *SegmentCache) SetPosition(pos Position) {
	c.send(setPositionReq{pos: pos})
}

func (c *SegmentCache) Position() Position {
	return c.snapshot().pos
}

// Buffering reports whether the reader is waiting on the segment under
// the cursor.
func (c *SegmentCache) Buffering() bool {
	return c.snapshot().buffering
}

func (c *SegmentCache) snapshot() cacheSnapshot {
	reply := make(chan cacheSnapshot, 1)
	if !c.send(snapshotReq{reply: reply}) {
		return cacheSnapshot{}
	}

	select {
	case s := <-reply:
		return s
	case <-c.done:
		return cacheSnapshot{}
	}
}

// Store records the bytes of segment idx and wakes its waiters. A nil
// slice is stored as empty.
func (c *SegmentCache) Store(idx int, data []byte) {
	if data == nil {
		data = []byte{}
	}
	c.send(storeReq{idx: idx, data: data})
}

// MarkFailed records that segment idx could not be fetched. Waiters get
// ErrSegmentFailed. A later Store clears the failure.
func (c *SegmentCache) MarkFailed(idx int, err error) {
	c.send(failReq{idx: idx, err: err})
}

// Missing filters idxs down to the segments not cached yet.
func (c *SegmentCache) Missing(idxs []int) []int {
	reply := make(chan []int, 1)
	if !c.send(missingReq{idxs: idxs, reply: reply}) {
		return nil
	}

	select {
	case out := <-reply:
		return out
	case <-c.done:
		return nil
	}
}

// WaitSegment blocks until segment idx is cached, has failed, ctx ends or
// the cache is closed.
func (c *SegmentCache) WaitSegment(ctx context.Context, idx int) ([]byte, error) {
	reply := make(chan segmentResult, 1)

	select {
	case c.reqs <- waitReq{idx: idx, reply: reply}:
	case <-c.done:
		return nil, ErrCacheClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.data, res.err
	case <-c.done:
		return nil, ErrCacheClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the owner goroutine. Pending and later waits return
// ErrCacheClosed.
func (c *SegmentCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
