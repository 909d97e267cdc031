// SPDX-License-Identifier: EPL-2.0

package progressive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/formats/wav"
	"github.com/ik5/tfplayer/track"
)

// byteDecoder reads one unsigned byte per mono sample at 1000 Hz.
type byteDecoder struct{}

func (byteDecoder) Decode(r io.Reader) (audio.Source, error) {
	if _, ok := r.(io.Seeker); ok {
		return nil, errors.New("stream decoder handed a seeker")
	}
	return &byteSource{r: r}, nil
}

type byteSource struct {
	r   io.Reader
	buf []byte
}

func (s *byteSource) SampleRate() int { return 1000 }
func (s *byteSource) Channels() int   { return 1 }
func (s *byteSource) BufSize() int    { return 256 }
func (s *byteSource) Close() error    { return nil }

func (s *byteSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf) < len(dst) {
		s.buf = make([]byte, len(dst))
	}
	n, err := s.r.Read(s.buf[:len(dst)])
	for i := range n {
		dst[i] = float32(s.buf[i])
	}
	return n, err
}

func TestOpenStream(t *testing.T) {
	t.Parallel()

	data := payload(5000)
	rec := &recorder{next: serveBytes(data)}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	opts := fastOptions()
	opts.ByteRate = 1000

	tr, err := OpenStream(context.Background(), srv.Client(), srv.URL, byteDecoder{}, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer tr.Signal.Close()

	if tr.SampleRate != 1000 || tr.Info.Duration != 5*time.Second {
		t.Fatalf("SampleRate = %v, Duration = %v", tr.SampleRate, tr.Info.Duration)
	}

	if err := tr.Signal.Seek(2 * time.Second); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([][2]float32, 10)
	if err := tr.Signal.Next(buf); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if buf[0][0] != float32(data[2000]) {
		t.Errorf("first frame = %v, want %v", buf[0][0], data[2000])
	}

	reqs := rec.requests()
	if reqs[len(reqs)-1] != "bytes=2000-" {
		t.Errorf("requests = %q", reqs)
	}

	if err := tr.Signal.Seek(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if err := tr.Signal.Next(buf); !errors.Is(err, track.ErrEndOfStream) {
		t.Errorf("err = %v, want ErrEndOfStream", err)
	}
}

func TestOpenSeekableWAV(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 8000*2) // 1s of stereo at 8 kHz
	for i := range samples {
		samples[i] = int16(i / 2)
	}
	var file bytes.Buffer
	if err := wav.WriteWAV16(&file, 8000, 2, samples); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{next: serveBytes(file.Bytes())}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	tr, err := OpenSeekable(context.Background(), srv.Client(), srv.URL, wav.Decoder{}, fastOptions(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSeekable: %v", err)
	}
	defer tr.Signal.Close()

	if tr.SampleRate != 8000 || tr.Info.Duration != time.Second {
		t.Fatalf("SampleRate = %v, Duration = %v", tr.SampleRate, tr.Info.Duration)
	}

	if err := tr.Signal.Seek(500 * time.Millisecond); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([][2]float32, 4)
	if err := tr.Signal.Next(buf); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if want := float32(4000) / 32768; buf[0][0] != want {
		t.Errorf("frame after seek = %v, want %v", buf[0][0], want)
	}

	reqs := rec.requests()
	if reqs[len(reqs)-1] != "bytes=16044-" {
		t.Errorf("requests = %q", reqs)
	}
}
