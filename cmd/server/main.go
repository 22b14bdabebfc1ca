package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/metrics"
	"github.com/JonMunkholm/outreach/internal/store"
	"github.com/JonMunkholm/outreach/internal/web"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup (the database
// pool) always runs before the process exits.
func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"data_dir", cfg.Data.Dir,
		"publish_enabled", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
		"max_concurrent_runs", cfg.Pipeline.MaxConcurrentRuns,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	opts := cfg.Options()
	if cfg.Data.OptionsFile != "" {
		overlay, err := config.LoadOptionsFile(cfg.Data.OptionsFile)
		if err != nil {
			slog.Error("failed to load options file", "path", cfg.Data.OptionsFile, "error", err)
			return 1
		}
		opts = opts.Merge(overlay)
		slog.Info("options file loaded", "path", cfg.Data.OptionsFile, "keys", len(overlay))
	}

	ctx := context.Background()

	// A nil interface disables publishing; never pass a typed nil.
	var publisher web.Publisher
	if cfg.Database.Enabled() {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to open reporting database", "error", err)
			return 1
		}
		defer pool.Close()
		publisher = store.NewPublisher(pool, cfg.Database.Table, cfg.Database.PublishTimeout)
	} else {
		slog.Info("no database configured, publishing disabled")
	}

	server := web.NewServer(cfg, opts, publisher, metrics.New())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		serveErr <- server.Start()
	}()

	code := 0
	select {
	case <-sigCh:
		slog.Info("shutting down...")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Wait for active pipeline runs to complete (with timeout)
	if err := server.Drain(shutdownCtx); err != nil {
		slog.Warn("pipeline runs did not complete in time", "error", err)
	}

	slog.Info("server stopped")
	return code
}
