package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-avd/internal/config"
	"github.com/teslashibe/go-avd/internal/log"
	"github.com/teslashibe/go-avd/pkg/adb"
	"github.com/teslashibe/go-avd/pkg/devicelock"
	"github.com/teslashibe/go-avd/pkg/emulator"
	"github.com/teslashibe/go-avd/pkg/hub"
	"github.com/teslashibe/go-avd/pkg/stream"
	"github.com/teslashibe/go-avd/pkg/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "listen address, overrides server.bind")
	return cmd
}

// buildServer assembles the control plane from configuration.
func buildServer(cfg *config.Config) *web.Server {
	logger := log.L()

	client := adb.New(cfg.Tools.ADB, cfg.Tools.Emulator, adb.WithLogger(logger))
	events := hub.New("events", logger)

	orch := emulator.New(client,
		emulator.WithBootTimeout(cfg.Emulator.BootTimeoutDuration()),
		emulator.WithVideoTimeout(cfg.Emulator.VideoTimeoutDuration()),
		emulator.WithCaptureTimeout(cfg.Emulator.CaptureTimeoutDuration()),
		emulator.WithPollInterval(cfg.Emulator.PollIntervalDuration()),
		emulator.WithBrowserURL(cfg.Emulator.BrowserURL),
		emulator.WithPublicURL(cfg.Server.PublicURL),
		emulator.WithLocker(devicelock.New(cfg.Emulator.LockDir)),
		emulator.WithObserver(func(e emulator.Event) {
			if err := events.BroadcastJSON(e); err != nil {
				logger.Warn("broadcast event", "error", err)
			}
		}),
		emulator.WithLogger(logger),
	)

	frames := stream.New(client,
		stream.WithInterval(cfg.Emulator.StreamInterval()),
		stream.WithLogger(logger),
	)

	return web.NewServer(web.Config{
		Bind:         cfg.Server.Bind,
		AllowOrigins: cfg.Server.AllowOrigins,
		Logger:       logger,
	}, orch, client, frames, events)
}

func runServe(parent context.Context, cfg *config.Config) error {
	log.Init(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting control plane",
		"version", version,
		"adb", cfg.Tools.ADB,
		"emulator", cfg.Tools.Emulator,
	)

	srv := buildServer(cfg)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
