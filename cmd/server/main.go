package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trackline/sprint-insights/internal/analytics"
	"github.com/trackline/sprint-insights/internal/api"
	"github.com/trackline/sprint-insights/internal/config"
	"github.com/trackline/sprint-insights/internal/health"
	"github.com/trackline/sprint-insights/internal/metrics"
	"github.com/trackline/sprint-insights/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Str("auth_mode", cfg.AuthMode).
		Msg("starting sprint insights")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Record store
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store")
	}
	defer st.Close()

	if cfg.SeedFile != "" {
		if err := st.LoadSeed(ctx, cfg.SeedFile); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to load seed data")
		}
	}

	// Metrics and health
	collector := metrics.New()
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := st.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Analytics engine
	engine := analytics.New(st, logger,
		analytics.WithMetrics(collector),
		analytics.WithLimits(analytics.Limits{
			MaxCFDDays:     cfg.CFDMaxDays,
			MaxSprintCount: cfg.MaxSprintCount,
		}),
	)

	// HTTP API
	handlers := api.NewHandlers(engine, st, checker, api.Defaults{
		CFDDays:       cfg.CFDDefaultDays,
		VelocityCount: cfg.VelocitySprintCount,
		MetricsCount:  cfg.MetricsSprintCount,
	}, logger)

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
		TLSCert:     cfg.TLSCert,
		TLSKey:      cfg.TLSKey,
	}, handlers, collector, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("shutdown timed out")
	}
}
