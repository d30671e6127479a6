package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/scribe/pkg/blog"
	"github.com/rhuss/scribe/pkg/config"
	"github.com/rhuss/scribe/pkg/debug"
	transporthttp "github.com/rhuss/scribe/pkg/transport/http"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			debug.Init(cfg.Log.Debug, cfg.Log.Level, cfg.Log.Format)
			if cats := debug.Categories(); len(cats) > 0 {
				slog.Info("debug logging enabled", "categories", cats)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve wires the store, identity authority, auth chain and blog service
// and runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	authority, err := newAuthority(cfg, store)
	if err != nil {
		return err
	}

	authMW, err := newAuthMiddleware(cfg)
	if err != nil {
		return err
	}

	svc, err := blog.New(store, authority, blog.Config{
		UpstreamTimeout: cfg.Identity.UpstreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating blog service: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(svc,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithAuth(authMW),
		transporthttp.WithLogger(slog.Default()),
	)

	slog.Info("scribe starting",
		"version", version,
		"port", cfg.Server.Port,
		"identity", cfg.Identity.Provider,
		"storage", cfg.Storage.Type,
		"metrics", metricsPath,
	)
	return srv.Run(ctx)
}
