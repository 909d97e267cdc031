// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe URL...",
		Short: "Resolve tracks and print their duration and sample rate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProbe(cmd.Context(), args, cmd.OutOrStdout())
		},
	}
}

func (a *app) runProbe(ctx context.Context, urls []string, w io.Writer) error {
	r := a.resolver()

	for _, raw := range urls {
		t, err := r.Resolve(ctx, raw)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\tduration=%v\trate=%g\n", raw, t.Info.Duration, t.SampleRate)
		if err := t.Signal.Close(); err != nil {
			a.logger.Warn().Err(err).Str("url", raw).Msg("closing track")
		}
	}

	return nil
}
