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

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/erazemk/galerija/internal/api"
	"github.com/erazemk/galerija/internal/catalog"
	"github.com/erazemk/galerija/internal/db"
	"github.com/erazemk/galerija/internal/metrics"
	"github.com/erazemk/galerija/internal/reconcile"
	"github.com/erazemk/galerija/internal/storage/filestore"
	"github.com/erazemk/galerija/internal/storage/wal"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the image server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := ctx.logger

			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another galerija server is using %s", cfg.Server.DataDir)
			}
			defer func() { _ = lock.Unlock() }()

			database, err := db.Open(cfg.Server.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer database.Close()

			if err := db.EnsureSchema(database); err != nil {
				return fmt.Errorf("ensure database schema: %w", err)
			}
			logger.Info("database ready", "path", cfg.Server.Database)

			files, err := filestore.New(cfg.Server.UploadsDir)
			if err != nil {
				return err
			}
			journal, err := wal.New(cfg.Server.JournalDir, logger)
			if err != nil {
				return err
			}

			rec := reconcile.New(database, files, journal, logger)
			recovered, err := rec.Recover(cmd.Context())
			if err != nil {
				return fmt.Errorf("recover pending submits: %w", err)
			}
			if recovered > 0 {
				logger.Info("recovered interrupted submits", "count", recovered)
			}

			router := api.NewRouter(api.Options{
				DB:            database,
				Files:         files,
				Reconciler:    rec,
				Catalog:       catalog.New(database, cfg.Server.ListingCacheSize, cfg.ListingCacheTTL()),
				MaxBodyBytes:  cfg.Server.MaxBodyBytes,
				AllowedOrigin: cfg.Server.AllowedOrigin,
				Logger:        logger,
			})

			server := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           metrics.Middleware(api.LoggingMiddleware(logger)(router)),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			return runServer(cmd.Context(), server, cfg.ShutdownTimeout(), logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}

// runServer serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down within timeout.
func runServer(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-quit:
			logger.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("shutdown requested")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done

	logger.Info("server stopped, closing database")
	return nil
}
