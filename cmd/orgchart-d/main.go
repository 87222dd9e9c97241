package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rmax-ai/orgchart/pkg/api"
	"github.com/rmax-ai/orgchart/pkg/blob"
	"github.com/rmax-ai/orgchart/pkg/engine"
	"github.com/rmax-ai/orgchart/pkg/logging"
	"github.com/rmax-ai/orgchart/pkg/salary"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "orgchart-d: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orgchart-d: %v\n", err)
		os.Exit(2)
	}
	logger = logger.With().Str("component", "orgchart-d").Logger()
	logger.Info().Msg("system_started")

	policy := salary.DefaultPolicy()
	policy.MaxDepth = cfg.MaxDepth
	org := engine.NewManager(engine.WithLogger(logger), engine.WithPolicy(policy))

	if cfg.RosterPath != "" {
		roster, err := engine.LoadRosterConfig(cfg.RosterPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RosterPath).Msg("failed_to_load_roster")
		}
		ids, err := org.Seed(roster)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RosterPath).Msg("failed_to_seed_roster")
		}
		stats := org.Stats()
		logger.Info().
			Str("path", cfg.RosterPath).
			Int("seeded", len(ids)).
			Int("relations", stats.Relations).
			Msg("roster_seeded")
	}

	srv := api.NewServer(org, cfg.Addr, logger)
	if cfg.ExportDir != "" {
		exports, err := blob.NewLocalBlobStore(cfg.ExportDir)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.ExportDir).Msg("failed_to_init_exports")
		}
		srv.SetExports(exports)
		logger.Info().Str("path", cfg.ExportDir).Msg("exports_enabled")
	}
	if cfg.TLSCertFile != "" {
		srv.SetTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("shutdown_initiated")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server_failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("failed_to_stop_server")
	}

	logger.Info().Msg("shutdown_complete")
}
