// SPDX-License-Identifier: EPL-2.0

package ringbuf

import (
	"errors"
	"sync"
	"testing"
)

func fill(n int, start float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = start + float32(i)
	}
	return s
}

func TestRing_PartialPushWhenShort(t *testing.T) {
	t.Parallel()

	prod, cons := New(100)

	if n := prod.Write(fill(40, 0)); n != 40 {
		t.Fatalf("first Write() = %d, want 40", n)
	}
	if got := prod.Slots(); got != 60 {
		t.Fatalf("Slots() after 40 = %d, want 60", got)
	}

	// Only the free slots are accepted, the rest is left to the caller.
	if n := prod.Write(fill(90, 40)); n != 60 {
		t.Fatalf("second Write() = %d, want 60", n)
	}
	if got := prod.Slots(); got != 0 {
		t.Fatalf("Slots() when full = %d, want 0", got)
	}
	if err := prod.Push(1); !errors.Is(err, ErrFull) {
		t.Fatalf("Push() on full ring error = %v, want ErrFull", err)
	}

	dst := make([]float32, 40)
	if n := cons.Read(dst); n != 40 {
		t.Fatalf("Read() = %d, want 40", n)
	}
	for i, v := range dst {
		if v != float32(i) {
			t.Fatalf("dst[%d] = %v, want %v", i, v, float32(i))
		}
	}

	if n := prod.Write(fill(90, 100)); n != 40 {
		t.Fatalf("third Write() = %d, want 40", n)
	}

	if occupancy := prod.Written() - cons.ReadCount(); occupancy != uint64(cons.Slots()) {
		t.Errorf("written-read = %d, consumer slots = %d", occupancy, cons.Slots())
	}
	if cons.Slots() != 100 {
		t.Errorf("consumer Slots() = %d, want 100", cons.Slots())
	}
}

func TestRing_ReadThenPush(t *testing.T) {
	t.Parallel()

	prod, cons := New(100)
	prod.Write(fill(40, 0))
	cons.Read(make([]float32, 40))

	if got := prod.Slots(); got != 100 {
		t.Fatalf("Slots() after drain = %d, want 100", got)
	}
	if n := prod.Write(fill(90, 0)); n != 90 {
		t.Fatalf("Write(90) = %d, want 90", n)
	}
	if got := prod.Slots(); got != 10 {
		t.Errorf("Slots() = %d, want 10", got)
	}
}

func TestRing_WrapAroundOrder(t *testing.T) {
	t.Parallel()

	prod, cons := New(7)
	next := float32(0)
	want := float32(0)
	dst := make([]float32, 5)

	for range 50 {
		n := prod.Write(fill(3, next))
		next += float32(n)

		got := cons.Read(dst)
		for _, v := range dst[:got] {
			if v != want {
				t.Fatalf("read %v, want %v", v, want)
			}
			want++
		}
	}
}

func TestRing_PushPop(t *testing.T) {
	t.Parallel()

	prod, cons := New(2)
	if _, err := cons.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Pop() on empty ring error = %v, want ErrEmpty", err)
	}

	_ = prod.Push(0.5)
	_ = prod.Push(-0.5)

	v, err := cons.Pop()
	if err != nil || v != 0.5 {
		t.Fatalf("Pop() = %v, %v, want 0.5", v, err)
	}
	if n := cons.Discard(10); n != 1 {
		t.Errorf("Discard(10) = %d, want 1", n)
	}
	if cons.Slots() != 0 {
		t.Errorf("Slots() = %d, want 0", cons.Slots())
	}
}

func TestRing_ConcurrentConservation(t *testing.T) {
	t.Parallel()

	const total = 200_000
	prod, cons := New(1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		chunk := make([]float32, 97)
		next := 0
		for next < total {
			n := min(len(chunk), total-next)
			for i := range n {
				chunk[i] = float32(next + i)
			}
			// Never write past Slots().
			w := min(n, prod.Slots())
			if got := prod.Write(chunk[:w]); got != w {
				t.Errorf("Write() = %d, want %d", got, w)
				return
			}
			next += w
		}
	}()

	dst := make([]float32, 61)
	want := 0
	for want < total {
		n := cons.Read(dst)
		for _, v := range dst[:n] {
			if v != float32(want) {
				t.Fatalf("read %v, want %d", v, want)
			}
			want++
		}
		if occ := prod.Written() - cons.ReadCount(); occ > uint64(cons.Capacity()) {
			t.Fatalf("occupancy %d exceeds capacity", occ)
		}
	}
	wg.Wait()

	if prod.Written() != total || cons.ReadCount() != total {
		t.Errorf("written=%d read=%d, want %d", prod.Written(), cons.ReadCount(), total)
	}
}

func TestRing_NoAllocs(t *testing.T) {
	prod, cons := New(4096)
	src := fill(512, 0)
	dst := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		prod.Write(src)
		cons.Read(dst)
	})
	if allocs != 0 {
		t.Errorf("Write/Read allocated %v times per run, want 0", allocs)
	}
}

func BenchmarkRing_WriteRead(b *testing.B) {
	prod, cons := New(8192)
	src := fill(1024, 0)
	dst := make([]float32, 1024)

	b.ReportAllocs()

	for b.Loop() {
		prod.Write(src)
		cons.Read(dst)
	}
}
