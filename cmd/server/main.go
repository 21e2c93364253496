// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtsync/internal/app"
	"github.com/codr1/courtsync/internal/config"
	"github.com/codr1/courtsync/internal/scheduler"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func setupLogger(environment string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	shutdownTimeout := time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second

	setupLogger(cfg.App.Environment, cfg.Features.EnableDebug)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close services")
		}
	}()

	if err := startScheduler(application); err != nil {
		log.Error().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	// Create server instance
	server := newServer(cfg, application)

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotInitialized) {
			log.Warn().Err(err).Msg("Failed to stop scheduler")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

// startScheduler registers the periodic reconciliation passes. Without a
// calendar provider or with sync disabled nothing is scheduled.
func startScheduler(a *app.App) error {
	if !a.Config.Sync.Enabled || !a.CalendarEnabled() {
		log.Info().
			Bool("sync_enabled", a.Config.Sync.Enabled).
			Str("calendar", a.Config.Calendar.Provider).
			Msg("Calendar reconciliation jobs disabled")
		return nil
	}
	if err := scheduler.Init(); err != nil {
		return err
	}
	if err := scheduler.RegisterReconcileJobs(a.Engine, scheduler.ReconcileSchedule{
		TodayCron: a.Config.Sync.TodayCron,
		MonthCron: a.Config.Sync.MonthCron,
		Timeout:   a.Config.Sync.RunTimeout,
	}); err != nil {
		return err
	}
	return scheduler.Start()
}
