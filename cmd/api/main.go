// Package main is the entry point for the SunTracker API server.
//
// It loads configuration from the environment, connects the Postgres event
// cache, wires the geocoder and solar-events provider clients behind their
// circuit breakers, and serves the HTTP API with graceful shutdown on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"suntracker/internal/api/handlers"
	"suntracker/internal/config"
	"suntracker/internal/core"
	"suntracker/internal/db"
	"suntracker/internal/external"
	"suntracker/internal/solar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("suntracker API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	// Database pool. Closed by the entry point after the HTTP server drains.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := db.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	eventRepo := db.NewEventRepository(pool)

	// Each upstream gets its own breaker so a failing geocoder cannot trip
	// the solar provider's circuit, and vice versa.
	geocoderHTTP := external.NewBaseClient(
		&http.Client{Timeout: cfg.Geocoder.Timeout},
		"geocoder",
		external.DefaultRetryPolicy(),
		cfg.Geocoder.UserAgent,
	)
	geocoder := external.NewGeocoder(geocoderHTTP, cfg.Geocoder.BaseURL, logger)

	providerHTTP := external.NewBaseClient(
		&http.Client{Timeout: cfg.Provider.Timeout},
		"solar-provider",
		external.RetryPolicy{
			MaxRetries: cfg.Provider.MaxRetries,
			MinWait:    cfg.Provider.RetryMin,
			MaxWait:    cfg.Provider.RetryMax,
		},
		cfg.Provider.UserAgent,
	)
	providerClient := solar.NewClient(providerHTTP, cfg.Provider.BaseURL, logger)

	resolver := solar.NewService(eventRepo, providerClient, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, &databaseProbe{pool: pool})

	eventsHandler := handlers.NewEventsHandler(geocoder, resolver, cfg.Limits.MaxRangeDays, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		eventsHandler.RegisterRoutes(r)
	})

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}

// databaseProbe reports database connectivity for the /health endpoint.
type databaseProbe struct {
	pool *pgxpool.Pool
}

func (p *databaseProbe) Name() string { return "database" }

func (p *databaseProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
