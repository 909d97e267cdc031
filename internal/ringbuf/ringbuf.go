// SPDX-License-Identifier: EPL-2.0

// Package ringbuf is a fixed capacity single-producer single-consumer queue
// of float32 samples. Neither side locks or allocates after New, so the
// consumer may run inside a real-time audio callback.
package ringbuf

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrFull is returned by Push when no slot is free.
	ErrFull = errors.New("ringbuf: buffer full")
	// ErrEmpty is returned by Pop when nothing is readable.
	ErrEmpty = errors.New("ringbuf: buffer empty")
)

const cacheLine = 64

type ring struct {
	// head counts samples ever read; written by the consumer only.
	head atomic.Uint64
	_    [cacheLine - 8]byte
	// tail counts samples ever written; written by the producer only.
	tail atomic.Uint64
	_    [cacheLine - 8]byte

	buf  []float32
	size uint64
}

// Producer is the write half. It must be used from a single goroutine.
type Producer struct {
	r *ring
}

// Consumer is the read half. It must be used from a single goroutine.
type Consumer struct {
	r *ring
}

// New allocates a queue holding capacity samples and returns its two halves.
func New(capacity int) (*Producer, *Consumer) {
	if capacity <= 0 {
		capacity = 1
	}

	r := &ring{
		buf:  make([]float32, capacity),
		size: uint64(capacity),
	}

	return &Producer{r: r}, &Consumer{r: r}
}

// Capacity is the fixed number of samples the queue holds.
func (p *Producer) Capacity() int { return int(p.r.size) }

// Slots is the number of samples that can be written without overflow.
func (p *Producer) Slots() int {
	return int(p.r.size - (p.r.tail.Load() - p.r.head.Load()))
}

// Written is the total number of samples pushed since New.
func (p *Producer) Written() uint64 { return p.r.tail.Load() }

// Push appends one sample or returns ErrFull.
func (p *Producer) Push(v float32) error {
	tail := p.r.tail.Load()
	if tail-p.r.head.Load() == p.r.size {
		return ErrFull
	}

	p.r.buf[tail%p.r.size] = v
	p.r.tail.Store(tail + 1)
	return nil
}

// Write appends as many samples of src as fit and returns that count.
func (p *Producer) Write(src []float32) int {
	tail := p.r.tail.Load()
	free := p.r.size - (tail - p.r.head.Load())
	n := min(uint64(len(src)), free)
	if n == 0 {
		return 0
	}

	start := tail % p.r.size
	first := copy(p.r.buf[start:], src[:n])
	copy(p.r.buf, src[first:n])

	p.r.tail.Store(tail + n)
	return int(n)
}

// Capacity is the fixed number of samples the queue holds.
func (c *Consumer) Capacity() int { return int(c.r.size) }

// Slots is the number of samples ready to be read.
func (c *Consumer) Slots() int {
	return int(c.r.tail.Load() - c.r.head.Load())
}

// ReadCount is the total number of samples consumed since New.
func (c *Consumer) ReadCount() uint64 { return c.r.head.Load() }

// Pop removes one sample or returns ErrEmpty.
func (c *Consumer) Pop() (float32, error) {
	head := c.r.head.Load()
	if c.r.tail.Load() == head {
		return 0, ErrEmpty
	}

	v := c.r.buf[head%c.r.size]
	c.r.head.Store(head + 1)
	return v, nil
}

// Read moves up to len(dst) samples into dst and returns the count.
func (c *Consumer) Read(dst []float32) int {
	head := c.r.head.Load()
	n := min(uint64(len(dst)), c.r.tail.Load()-head)
	if n == 0 {
		return 0
	}

	start := head % c.r.size
	first := copy(dst[:n], c.r.buf[start:])
	copy(dst[first:n], c.r.buf)

	c.r.head.Store(head + n)
	return int(n)
}

// Discard drops up to n readable samples and returns how many were dropped.
func (c *Consumer) Discard(n int) int {
	head := c.r.head.Load()
	k := min(uint64(max(n, 0)), c.r.tail.Load()-head)
	c.r.head.Store(head + k)
	return int(k)
}
