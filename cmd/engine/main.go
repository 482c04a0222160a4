// Package main is the entry point for the partner report engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/partnerpulse/engine/internal/cache"
	"github.com/partnerpulse/engine/internal/config"
	"github.com/partnerpulse/engine/internal/memo"
	"github.com/partnerpulse/engine/internal/report"
	"github.com/partnerpulse/engine/internal/server"
	"github.com/partnerpulse/engine/internal/snapshot"
	"github.com/partnerpulse/engine/internal/source"
)

// ShutdownTimeout bounds how long a graceful shutdown may take.
const ShutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("partner report engine starting",
		"version", "1.0.0",
	)

	slog.Info("config_loaded",
		"mysql_dsn", cfg.MaskedMySQLDSN(),
		"api_base_url", cfg.APIBaseURL,
		"dataset_path", cfg.DatasetPath,
		"snapshot_path", cfg.SnapshotPath,
		"fresh_window", cfg.FreshWindow,
		"stale_tolerance", cfg.StaleTolerance,
		"memo_expiry", cfg.MemoExpiry,
		"port", cfg.Port,
	)

	// Durable snapshot storage
	kv, err := openSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	// Upstream dataset source
	src, closeSource, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to build dataset source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	// Wire the engine: cache -> memoizer -> facade
	store := cache.New(src, kv, cfg.FreshWindow, cfg.StaleTolerance)
	svc := report.New(store, memo.New(cfg.MemoExpiry))

	router := server.NewRouter(svc, cfg.CORSOrigins)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("engine_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_error", "error", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	slog.Info("shutdown_signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("shutdown_incomplete", "error", err)
	}

	slog.Info("shutdown_complete")
}

// openSnapshotStore opens the SQLite snapshot store, or an in-memory store
// when persistence is disabled.
func openSnapshotStore(path string) (snapshot.Store, error) {
	if path == "" {
		slog.Warn("snapshot_persistence_disabled")
		return snapshot.NewMemory(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return snapshot.OpenSQLite(path)
}

// buildSource picks the upstream dataset source from configuration: MySQL,
// then the REST API, then the static JSON document.
func buildSource(cfg *config.Config) (source.Source, func(), error) {
	switch {
	case cfg.MySQLDSN != "":
		src, err := source.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("source_selected", "kind", "mysql")
		return src, func() { src.Close() }, nil
	case cfg.APIBaseURL != "":
		slog.Info("source_selected", "kind", "http", "url", cfg.APIBaseURL)
		return source.NewHTTP(cfg.APIBaseURL, cfg.HTTPTimeout), func() {}, nil
	default:
		slog.Info("source_selected", "kind", "file", "path", cfg.DatasetPath)
		return source.NewFile(cfg.DatasetPath), func() {}, nil
	}
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}
