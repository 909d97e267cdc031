// SPDX-License-Identifier: EPL-2.0

// Command tfplay plays, renders and inspects tracks with the tfplayer
// engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ik5/tfplayer/internal/config"
	"github.com/ik5/tfplayer/internal/logging"
	"github.com/ik5/tfplayer/internal/telemetry"
	"github.com/ik5/tfplayer/plugins"
	"github.com/ik5/tfplayer/track"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tfplay",
		Short:         "Play local files, HTTP downloads and HLS streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console or json)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(newPlayCmd(a), newRenderCmd(a), newProbeCmd(a))

	return root
}

// load layers defaults, the config file and the flags that were set.
func (a *app) load(cmd *cobra.Command) error {
	l, err := config.NewLoader()
	if err != nil {
		return err
	}
	if a.configPath != "" {
		if err := l.LoadFile(a.configPath); err != nil {
			return err
		}
	}

	overrides := map[string]string{
		"log-level":    "log.level",
		"log-format":   "log.format",
		"metrics-addr": "metrics.addr",
	}
	for flag, key := range overrides {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := l.Set(key, f.Value.String()); err != nil {
			return fmt.Errorf("applying --%s: %w", flag, err)
		}
	}
	if err := applyFlags(cmd, l); err != nil {
		return err
	}

	a.cfg, err = l.Config()
	if err != nil {
		return err
	}

	a.logger = logging.Setup(a.cfg.Log.Level, a.cfg.Log.Format)
	a.metrics = telemetry.New()

	return nil
}

// commandFlag maps a subcommand flag onto a config key.
type commandFlag struct {
	flag, key string
	value     func(cmd *cobra.Command) (any, error)
}

var commandFlags = []commandFlag{
	{"backend", "output.backend", func(cmd *cobra.Command) (any, error) { return cmd.Flags().GetString("backend") }},
	{"sample-rate", "output.sampleRate", func(cmd *cobra.Command) (any, error) { return cmd.Flags().GetInt("sample-rate") }},
	{"volume", "player.volume", func(cmd *cobra.Command) (any, error) { return cmd.Flags().GetFloat64("volume") }},
	{"resampler", "player.resampler", func(cmd *cobra.Command) (any, error) { return cmd.Flags().GetString("resampler") }},
}

func applyFlags(cmd *cobra.Command, l *config.Loader) error {
	for _, cf := range commandFlags {
		f := cmd.Flags().Lookup(cf.flag)
		if f == nil || !f.Changed {
			continue
		}
		v, err := cf.value(cmd)
		if err != nil {
			return err
		}
		if err := l.Set(cf.key, v); err != nil {
			return fmt.Errorf("applying --%s: %w", cf.flag, err)
		}
	}
	return nil
}

func (a *app) resolver() *track.Resolver {
	return track.NewResolver(a.logger, plugins.Default(a.cfg.PluginOptions(a.metrics), a.logger)...)
}

// serveMetrics exposes /metrics until ctx ends when metrics.addr is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
