package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mixtape/internal/config"
	"mixtape/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("mixtape stopped")
	}
}

func run() error {
	_ = godotenv.Load("config/local.env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})
	logging.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("close storage")
		}
	}()

	app, err := newApp(cfg, backend, logger)
	if err != nil {
		return err
	}

	if cfg.SeedDemo {
		if err := bootstrapDemoData(ctx, app); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr).
			Str("backend", cfg.Storage.Backend).
			Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
