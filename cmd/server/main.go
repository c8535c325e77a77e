// Command server runs the clipmerge HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/maauso/clipmerge-api/internal/bootstrap"
	"github.com/maauso/clipmerge-api/internal/config"
	"github.com/maauso/clipmerge-api/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	logger.Info("starting clipmerge API",
		slog.Int("port", cfg.Port),
		slog.String("temp_dir", cfg.TempDir),
		slog.String("render", fmt.Sprintf("%dx%d", cfg.RenderWidth, cfg.RenderHeight)),
		slog.String("layout", cfg.Layout),
		slog.String("job_store", cfg.JobStore),
		slog.Int("max_concurrent_merges", cfg.MaxConcurrentMerges),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("close dependencies", slog.String("error", err.Error()))
		}
	}()

	handlers := server.NewHandlers(deps.MergeService, logger)
	srv := &http.Server{
		Addr:        net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Handler:     server.NewRouter(handlers, logger, server.Config{AllowedOrigins: cfg.AllowedOrigins}),
		ReadTimeout: 120 * time.Second,
		// Completed merges are returned inline as base64.
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
