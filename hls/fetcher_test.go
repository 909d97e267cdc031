// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func spawnFor(t *testing.T, srv *segmentServer, opts Options) (*SegmentInfos, *SegmentCache, *Fetcher) {
	t.Helper()

	infos, err := LoadPlaylist(context.Background(), srv.Client(), srv.playlistURL(), opts.ByteRate)
	if err != nil {
		t.Fatalf("LoadPlaylist: %v", err)
	}

	cache := NewSegmentCache(infos.Len())
	t.Cleanup(func() { _ = cache.Close() })

	f, err := SpawnFetcher(context.Background(), srv.Client(), infos, cache, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("SpawnFetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	return infos, cache, f
}

func TestSpawnFetcherFetchesFirstSegment(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 1000, 1000)
	opts := fastOptions()
	opts.PollInterval = time.Hour

	infos, err := LoadPlaylist(context.Background(), srv.Client(), srv.playlistURL(), opts.ByteRate)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewSegmentCache(infos.Len())
	defer cache.Close()

	f, err := SpawnFetcher(context.Background(), srv.Client(), infos, cache, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("SpawnFetcher: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	data, err := cache.WaitSegment(ctx, 0)
	if err != nil {
		t.Fatalf("segment 0 not cached on return: %v", err)
	}
	if len(data) != 1000 || data[0] != 1 {
		t.Errorf("segment 0 = %d bytes starting with %d", len(data), data[0])
	}
}

func TestFetcherLookahead(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 1000, 1000, 1000, 1000, 1000, 1000)
	opts := fastOptions()
	opts.Lookahead = 2 * time.Second

	_, cache, _ := spawnFor(t, srv, opts)

	waitFor(t, "segments 1 and 2", func() bool {
		return len(cache.Missing([]int{0, 1, 2})) == 0
	})

	time.Sleep(30 * time.Millisecond)
	if n := srv.hitCount(4); n != 0 {
		t.Errorf("segment 4 fetched %d times outside the window", n)
	}

	cache.SetPosition(Position{Segment: 3, Offset: 500})
	waitFor(t, "segments 3 to 5", func() bool {
		return len(cache.Missing([]int{3, 4, 5})) == 0
	})

	for i := range 6 {
		if n := srv.hitCount(i); n != 1 {
			t.Errorf("segment %d fetched %d times", i, n)
		}
	}
}

func TestFetcherRetries(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 100, 100)
	srv.failNext(1, 2)

	_, cache, _ := spawnFor(t, srv, fastOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cache.WaitSegment(ctx, 1); err != nil {
		t.Fatalf("WaitSegment: %v", err)
	}
	if n := srv.hitCount(1); n != 3 {
		t.Errorf("segment 1 requested %d times, want 3", n)
	}
}

func TestFetcherRequestTimeout(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 100, 100)
	srv.stallNext(1, 1)

	opts := fastOptions()
	opts.RequestTimeout = 50 * time.Millisecond
	_, cache, _ := spawnFor(t, srv, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cache.WaitSegment(ctx, 1); err != nil {
		t.Fatalf("WaitSegment: %v", err)
	}
	if n := srv.hitCount(1); n != 2 {
		t.Errorf("segment 1 requested %d times, want 2", n)
	}
}

func TestFetcherMarksFailedSegments(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 100, 100, 100)
	srv.remove(1)

	_, cache, _ := spawnFor(t, srv, fastOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := cache.WaitSegment(ctx, 1)
	if !errors.Is(err, ErrSegmentFailed) || !errors.Is(err, ErrBadStatus) {
		t.Fatalf("err = %v, want ErrSegmentFailed wrapping ErrBadStatus", err)
	}

	// Later segments are still fetched.
	if _, err := cache.WaitSegment(ctx, 2); err != nil {
		t.Errorf("segment 2: %v", err)
	}
}

func TestSpawnFetcherFirstSegmentFails(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 100)
	srv.failNext(0, 100)

	infos, err := LoadPlaylist(context.Background(), srv.Client(), srv.playlistURL(), 0)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewSegmentCache(infos.Len())
	defer cache.Close()

	_, err = SpawnFetcher(context.Background(), srv.Client(), infos, cache, fastOptions(), zerolog.Nop())
	if !errors.Is(err, ErrBadStatus) {
		t.Errorf("err = %v, want ErrBadStatus", err)
	}
	if n := srv.hitCount(0); n != 3 {
		t.Errorf("segment 0 requested %d times, want 3", n)
	}
}

func TestSpawnFetcherEmpty(t *testing.T) {
	t.Parallel()

	cache := NewSegmentCache(0)
	defer cache.Close()

	_, err := SpawnFetcher(context.Background(), nil, NewSegmentInfos(nil, 0), cache, Options{}, zerolog.Nop())
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("err = %v", err)
	}
}

func TestFetcherCloseStopsLoop(t *testing.T) {
	t.Parallel()

	srv := newSegmentServer(t, time.Second, 100, 100, 100)
	opts := fastOptions()
	opts.Lookahead = time.Millisecond

	_, cache, f := spawnFor(t, srv, opts)

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	before := srv.hitCount(2)
	cache.SetPosition(Position{Segment: 2})
	time.Sleep(30 * time.Millisecond)

	if after := srv.hitCount(2); after != before {
		t.Errorf("closed fetcher kept fetching: %d -> %d", before, after)
	}
}
