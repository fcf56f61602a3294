// Command api is the break reminder service: the scheduler loop, the
// realtime bridge, and the read-only HTTP API in one process.
//
// Usage:
//
//	breakd-api
//	API_PORT=8080 breakd-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/opsfloor/breakd/internal/api"
	"github.com/opsfloor/breakd/internal/cache"
	"github.com/opsfloor/breakd/internal/config"
	"github.com/opsfloor/breakd/internal/db"
	"github.com/opsfloor/breakd/internal/maintenance"
	"github.com/opsfloor/breakd/internal/realtime"
	"github.com/opsfloor/breakd/internal/reminders"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load workplace timezone", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	appCache := cache.New(cfg.CacheEnabled)

	// Realtime bridge: hub + LISTEN/NOTIFY consumer
	hub := realtime.NewHub()
	go realtime.Listen(ctx, cfg.DatabaseURL, hub, logger)

	// Reminder scheduler
	store := reminders.NewStore(pool.Pool)
	scheduler := reminders.NewScheduler(store, store, store, loc, cfg.TickInterval, logger)
	go scheduler.Start(ctx)

	// Housekeeping tickers (cleanup, next-day session pre-creation)
	go maintenance.Start(ctx, pool.Pool, loc, maintenance.Config{
		CleanupInterval: cfg.CleanupInterval,
		PrepareInterval: cfg.PrepareInterval,
	}, logger)

	// HTTP API
	router := api.NewRouter(api.Deps{
		Pool:      pool,
		Scheduler: scheduler,
		Hub:       hub,
		Cache:     appCache,
		Location:  loc,
	}, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting break reminder API",
			"addr", addr,
			"environment", cfg.Environment,
			"zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt; the scheduler finishes its in-flight tick before
	// its goroutine sees the cancelled context.
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
