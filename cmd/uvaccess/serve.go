// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyudlts/ultraviolet-access/internal/api"
	"github.com/nyudlts/ultraviolet-access/internal/logging"
	"github.com/nyudlts/ultraviolet-access/internal/observability"
	"github.com/nyudlts/ultraviolet-access/internal/secretlink"
	"github.com/nyudlts/ultraviolet-access/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of both servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization sidecar",
		Long: `Run the HTTP sidecar the repository application calls to evaluate
record permissions (POST /v1/check) and obtain search filter clauses
(POST /v1/filter). Metrics and health probes are served on a separate
address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("listen", DefaultConfig().Listen, "authz endpoint address")
	cmd.Flags().String("metrics-listen", DefaultConfig().MetricsListen, "metrics endpoint address")
	cmd.Flags().String("log-format", DefaultConfig().LogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", DefaultConfig().LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().String("link-signing-key", "", "secret link token signing key")

	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	logging.SetDefault("uvaccess", version, logging.Options{
		Format: cfg.LogFormat,
		Level:  parseLevel(cfg.LogLevel),
	})

	obs := observability.NewServer(cfg.MetricsListen, nil)
	obsErr, err := obs.Start()
	if err != nil {
		return err
	}

	opts := []api.Option{api.WithMetrics(obs.Metrics())}
	if cfg.LinkSigningKey != "" {
		signer, err := secretlink.NewSigner([]byte(cfg.LinkSigningKey))
		if err != nil {
			return err
		}
		opts = append(opts, api.WithSigner(signer))
	} else {
		slog.Warn("link signing key not configured, link tokens disabled")
	}

	authz := api.NewServer(cfg.Listen, opts...)
	authzErr, err := authz.Start()
	if err != nil {
		stopServers(nil, obs)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-authzErr:
		if err != nil {
			errutil.LogError(slog.Default(), "authz server failed", err)
		}
	case err := <-obsErr:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	return stopServers(authz, obs)
}

// stopServers shuts both servers down within the shutdown timeout.
func stopServers(authz *api.Server, obs *observability.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if authz != nil {
		if err := authz.Stop(ctx); err != nil {
			firstErr = err
		}
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseLevel maps the config level name to a slog level.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
