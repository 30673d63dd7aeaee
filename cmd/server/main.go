package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"studentdesk/internal/app"
	"studentdesk/internal/config"
	"studentdesk/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	logger.Info().
		Str("storage", cfg.Storage.Driver).
		Str("sessions", cfg.Session.Store).
		Bool("api_auth", cfg.API.RequireAuth).
		Msg("starting student manager")

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise application")
	}

	application.Scheduler().Start()

	go func() {
		if err := application.Server().Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, application)
}

func waitForShutdown(logger zerolog.Logger, application *app.App) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server exited cleanly")
}
