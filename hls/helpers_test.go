// SPDX-License-Identifier: EPL-2.0

package hls

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ik5/tfplayer/audio"
)

// segmentServer serves a media playlist whose segment i is filled with
// byte(i+1), plus per-segment failure injection.
type segmentServer struct {
	*httptest.Server

	mu       sync.Mutex
	sizes    []int
	hits     map[int]int
	failures map[int]int // remaining 500s per segment
	stalls   map[int]int // remaining requests that hang
	missing  map[int]bool
}

func newSegmentServer(t *testing.T, dur time.Duration, sizes ...int) *segmentServer {
	t.Helper()

	s := &segmentServer{
		sizes:    sizes,
		hits:     make(map[int]int),
		failures: make(map[int]int),
		stalls:   make(map[int]int),
		missing:  make(map[int]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/index.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		var b strings.Builder
		fmt.Fprintf(&b, "#EXTM3U\n#EXT-X-TARGETDURATION:%d\n", int(dur.Seconds()))
		for i := range sizes {
			fmt.Fprintf(&b, "#EXTINF:%.3f,\nseg%d.raw\n", dur.Seconds(), i)
		}
		b.WriteString("#EXT-X-ENDLIST\n")
		_, _ = io.WriteString(w, b.String())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var idx int
		if _, err := fmt.Sscanf(r.URL.Path, "/seg%d.raw", &idx); err != nil {
			http.NotFound(w, r)
			return
		}
		s.serveSegment(w, r, idx)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func (s *segmentServer) serveSegment(w http.ResponseWriter, r *http.Request, idx int) {
	s.mu.Lock()
	s.hits[idx]++
	fail := s.failures[idx] > 0
	if fail {
		s.failures[idx]--
	}
	stall := s.stalls[idx] > 0
	if stall {
		s.stalls[idx]--
	}
	gone := s.missing[idx]
	s.mu.Unlock()

	if stall {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
		}
	}

	switch {
	case idx < 0 || idx >= len(s.sizes) || gone:
		w.WriteHeader(http.StatusNotFound)
	case fail:
		w.WriteHeader(http.StatusInternalServerError)
	default:
		_, _ = w.Write([]byte(strings.Repeat(string(rune(idx+1)), s.sizes[idx])))
	}
}

func (s *segmentServer) hitCount(idx int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[idx]
}

func (s *segmentServer) failNext(idx, n int) {
	s.mu.Lock()
	s.failures[idx] = n
	s.mu.Unlock()
}

func (s *segmentServer) stallNext(idx, n int) {
	s.mu.Lock()
	s.stalls[idx] = n
	s.mu.Unlock()
}

func (s *segmentServer) remove(idx int) {
	s.mu.Lock()
	s.missing[idx] = true
	s.mu.Unlock()
}

func (s *segmentServer) playlistURL() string { return s.URL + "/index.m3u8" }

func fastOptions() Options {
	return Options{
		Lookahead:    10 * time.Second,
		Retries:      3,
		Backoff:      time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		ByteRate:     1000,
	}
}

// rawDecoder treats every byte as one unsigned 8-bit mono sample at
// 1000 Hz, so one byte equals one millisecond.
type rawDecoder struct{}

func (rawDecoder) Decode(r io.Reader) (audio.Source, error) {
	return &rawSource{r: r}, nil
}

type rawSource struct {
	r   io.Reader
	buf []byte
}

func (s *rawSource) SampleRate() int { return 1000 }
func (s *rawSource) Channels() int   { return 1 }
func (s *rawSource) BufSize() int    { return 256 }
func (s *rawSource) Close() error    { return nil }

func (s *rawSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf) < len(dst) {
		s.buf = make([]byte, len(dst))
	}
	n, err := s.r.Read(s.buf[:len(dst)])
	for i := range n {
		dst[i] = float32(s.buf[i])
	}
	return n, err
}
