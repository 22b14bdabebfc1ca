// Command pipeline runs one load, clean and preprocess pass over the newest
// event-log export and prints a preview of the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/loader"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/pipeline"
	"github.com/JonMunkholm/outreach/internal/preview"
	"github.com/JonMunkholm/outreach/internal/store"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitNoInput = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	file := flag.String("file", "", "Export to process (default: newest match in the input directory)")
	optionsFile := flag.String("config", "", "Path to YAML pipeline options file")
	rows := flag.Int("preview", 10, "Number of rows to preview (0 prints every row)")
	publish := flag.Bool("publish", false, "Copy the processed records into the reporting database")
	flag.Parse()

	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return exitFailed
	}

	// stdout carries the preview and notices.
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	opts := cfg.Options()
	path := *optionsFile
	if path == "" {
		path = cfg.Data.OptionsFile
	}
	if path != "" {
		overlay, err := config.LoadOptionsFile(path)
		if err != nil {
			slog.Error("failed to load options file", "path", path, "error", err)
			return exitFailed
		}
		opts = opts.Merge(overlay)
	}

	ctx := context.Background()

	result, err := pipeline.Run(ctx, *file, opts)
	if err != nil {
		if errors.Is(err, loader.ErrNoInputFound) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitNoInput
		}
		slog.Error("pipeline failed", "error", err)
		return exitFailed
	}

	if err := preview.Render(os.Stdout, result.Table, *rows); err != nil {
		slog.Error("failed to render preview", "error", err)
		return exitFailed
	}

	fmt.Fprintln(os.Stdout)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Notices); err != nil {
		slog.Error("failed to write notices", "error", err)
		return exitFailed
	}

	if !*publish {
		return exitOK
	}

	if !cfg.Database.Enabled() {
		slog.Error("publish requested but DATABASE_URL is not set")
		return exitFailed
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open reporting database", "error", err)
		return exitFailed
	}
	defer pool.Close()

	n, err := store.NewPublisher(pool, cfg.Database.Table, cfg.Database.PublishTimeout).
		Publish(logging.ContextWithRunID(ctx, result.RunID), result.RunID, result.Table)
	if err != nil {
		slog.Error("publish failed", "run_id", result.RunID, "error", err)
		return exitFailed
	}
	slog.Info("published", "run_id", result.RunID, "rows", n)
	return exitOK
}
