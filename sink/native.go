//go:build (linux && cgo) || windows || darwin

// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/ik5/tfplayer/utils"
)

// NativeAvailable reports whether the oto and beep backends are compiled in.
const NativeAvailable = true

func openNative(backend string, s *Sink) (device, error) {
	if backend == BackendBeep {
		return openBeep(s)
	}
	return openOto(s)
}

// otoDevice feeds an oto player through an io.Reader that converts the
// ring's float32 samples to little endian bytes.
type otoDevice struct {
	player *oto.Player
}

type otoReader struct {
	s       *Sink
	scratch []float32
}

func (r *otoReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	n -= n % Channels
	if n > len(r.scratch) {
		// oto asks for at most its buffer size, so this happens once.
		r.scratch = make([]float32, n)
	}

	r.s.Process(r.scratch[:n])
	utils.PutFloat32sLE(p, r.scratch[:n])

	return n * 4, nil
}

func openOto(s *Sink) (device, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.rate,
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready

	var r io.Reader = &otoReader{s: s, scratch: make([]float32, s.rate*Channels/10)}
	return &otoDevice{player: ctx.NewPlayer(r)}, nil
}

func (d *otoDevice) Play() error {
	d.player.Play()
	return nil
}

func (d *otoDevice) Pause() error {
	d.player.Pause()
	return nil
}

func (d *otoDevice) Close() error {
	d.player.Pause()
	return d.player.Close()
}

// beepDevice plays a streamer that pulls from the ring, gated by a Ctrl.
type beepDevice struct {
	ctrl *beep.Ctrl
}

func openBeep(s *Sink) (device, error) {
	sr := beep.SampleRate(s.rate)
	if err := speaker.Init(sr, sr.N(50*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("beep: %w", err)
	}

	scratch := make([]float32, sr.N(time.Second/10)*Channels)
	stream := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n := len(samples) * Channels
		if n > len(scratch) {
			scratch = make([]float32, n)
		}
		buf := scratch[:n]
		s.Process(buf)
		for i := range samples {
			samples[i] = [2]float64{float64(buf[2*i]), float64(buf[2*i+1])}
		}
		return len(samples), true
	})

	ctrl := &beep.Ctrl{Streamer: stream, Paused: true}
	speaker.Play(ctrl)

	return &beepDevice{ctrl: ctrl}, nil
}

func (d *beepDevice) setPaused(paused bool) {
	speaker.Lock()
	d.ctrl.Paused = paused
	speaker.Unlock()
}

func (d *beepDevice) Play() error {
	d.setPaused(false)
	return nil
}

func (d *beepDevice) Pause() error {
	d.setPaused(true)
	return nil
}

func (d *beepDevice) Close() error {
	d.setPaused(true)
	speaker.Clear()
	speaker.Close()
	return nil
}
