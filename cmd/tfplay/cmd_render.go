// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/ik5/tfplayer/formats/wav"
	"github.com/ik5/tfplayer/player"
	"github.com/ik5/tfplayer/sink"
	"github.com/ik5/tfplayer/utils"
)

type renderParams struct {
	output string
	start  time.Duration
}

func newRenderCmd(a *app) *cobra.Command {
	p := renderParams{}

	cmd := &cobra.Command{
		Use:   "render URL... ",
		Short: "Run the playback pipeline offline and write a 16-bit stereo WAV",
		Long: `Render plays the tracks through the same player and resampler as
"play" but without an audio device, and writes what the device would have
received as 16-bit stereo PCM.

Examples:
  tfplay render -o out.wav --sample-rate 48000 song.mp3
  tfplay render -o - https://example.com/live/index.m3u8 > out.wav
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.start, _ = cmd.Flags().GetDuration("start")
			return a.runRender(cmd.Context(), p, args, cmd.OutOrStdout())
		},
	}
	addOutputFlags(cmd)
	cmd.Flags().StringVarP(&p.output, "output", "o", "out.wav", `output file, "-" for stdout`)

	return cmd
}

func (a *app) runRender(ctx context.Context, p renderParams, urls []string, stdout io.Writer) error {
	opts := a.cfg.SinkOptions(a.metrics)
	opts.Backend = sink.BackendNone

	out, err := sink.New(opts, a.logger)
	if err != nil {
		return err
	}
	defer out.Close()

	ctrl, err := player.Spawn(out, a.cfg.PlayerOptions(a.metrics), a.logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	rec := newRecorder(out)
	rec.start()

	queued, err := a.queueAll(ctx, ctrl, urls, p.start)
	if err == nil {
		err = a.follow(ctx, ctrl, queued)
	}
	samples := rec.stop()
	if err != nil {
		return err
	}

	a.logger.Info().
		Dur("length", time.Duration(len(samples)/sink.Channels)*time.Second/time.Duration(out.SampleRate())).
		Str("output", p.output).
		Msg("rendered")

	return writeWAV(p.output, stdout, out.SampleRate(), samples)
}

// recorder plays the device role for an offline sink: it drains the ring
// as fast as the player fills it.
type recorder struct {
	sink    *sink.Sink
	samples []float32
	quit    chan struct{}
	wg      sync.WaitGroup
}

func newRecorder(s *sink.Sink) *recorder {
	return &recorder{sink: s, quit: make(chan struct{})}
}

func (r *recorder) start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		buf := make([]float32, 4096)
		for {
			n := r.sink.Drain(buf)
			r.samples = append(r.samples, buf[:n]...)
			if n > 0 {
				continue
			}

			select {
			case <-r.quit:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()
}

// stop collects what is left in the ring and returns every sample.
func (r *recorder) stop() []float32 {
	close(r.quit)
	r.wg.Wait()

	buf := make([]float32, 4096)
	for {
		n := r.sink.Drain(buf)
		if n == 0 {
			return r.samples
		}
		r.samples = append(r.samples, buf[:n]...)
	}
}

func writeWAV(path string, stdout io.Writer, rate int, samples []float32) error {
	pcm := make([]int16, len(samples))
	utils.Float32sToInt16s(pcm, samples)

	// Stdout cannot seek back to patch the header, so the whole payload
	// is written in one go.
	if path == "-" {
		return wav.WriteWAV16(stdout, rate, sink.Channels, pcm)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}

	enc := gowav.NewEncoder(f, rate, 16, sink.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: sink.Channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finishing %s: %w", path, err)
	}

	return f.Close()
}
