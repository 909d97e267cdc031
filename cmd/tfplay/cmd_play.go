// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/tfplayer/player"
	"github.com/ik5/tfplayer/sink"
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "output backend (oto, beep, clock, none)")
	cmd.Flags().Int("sample-rate", 0, "output sample rate in Hz")
	cmd.Flags().Float64("volume", 1, "volume multiplier, 0 to 1.5")
	cmd.Flags().String("resampler", "", "resampler (sinc or cubic)")
	cmd.Flags().Duration("start", 0, "seek the first track to this position")
}

func newPlayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play URL...",
		Short: "Play tracks in order on the audio device",
		Long: `Play resolves every argument with the bundled plugins and queues the
tracks. Arguments can be local paths, file:// URLs, http(s) audio files or
HLS playlists (.m3u8).

Examples:
  tfplay play song.ogg https://example.com/live/index.m3u8
  tfplay play --backend beep --volume 0.8 *.mp3
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlay(cmd, args)
		},
	}
	addOutputFlags(cmd)

	return cmd
}

func (a *app) runPlay(cmd *cobra.Command, urls []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.serveMetrics(ctx)

	out, err := sink.New(a.cfg.SinkOptions(a.metrics), a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			a.logger.Error().Err(err).Msg("closing output")
		}
	}()

	ctrl, err := player.Spawn(out, a.cfg.PlayerOptions(a.metrics), a.logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	start, _ := cmd.Flags().GetDuration("start")
	queued, err := a.queueAll(ctx, ctrl, urls, start)
	if err != nil {
		return err
	}

	return a.follow(ctx, ctrl, queued)
}

// queueAll resolves urls in order and hands the tracks to ctrl. Tracks
// that fail to resolve are logged and skipped. The first track starts at
// start.
func (a *app) queueAll(ctx context.Context, ctrl *player.Controller, urls []string, start time.Duration) (int, error) {
	r := a.resolver()

	queued := 0
	for _, raw := range urls {
		t, err := r.Resolve(ctx, raw)
		if err != nil {
			a.logger.Error().Err(err).Str("url", raw).Msg("cannot open track")
			continue
		}
		if queued == 0 && start > 0 {
			if err := t.Signal.Seek(start); err != nil {
				a.logger.Warn().Err(err).Dur("start", start).Msg("seek")
			}
		}
		if err := ctrl.QueueTrack(t); err != nil {
			_ = t.Signal.Close()
			return queued, err
		}
		queued++
	}

	if queued == 0 {
		return 0, errors.New("no playable tracks")
	}
	return queued, nil
}

// follow logs player events until every queued track has ended or ctx is
// done.
func (a *app) follow(ctx context.Context, ctrl *player.Controller, queued int) error {
	ended := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ctrl.Events():
			if !ok {
				return player.ErrStopped
			}

			switch e := ev.(type) {
			case player.StateChanged:
				a.logger.Debug().Stringer("state", e.State).Msg("state")
				if e.State.Kind == player.Idle && ended >= queued {
					return nil
				}

			case player.TrackEnd:
				ended++
				entry := a.logger.Info()
				if e.Err != nil {
					entry = a.logger.Warn().Err(e.Err)
				}
				entry.Dur("duration", e.Track.Duration).
					Str("progress", fmt.Sprintf("%d/%d", ended, queued)).
					Msg("track ended")
			}
		}
	}
}
