// Package pipeline runs the Loader, Cleaner and Preprocessor stages in
// sequence over one event-log export.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/outreach/internal/cleaner"
	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/loader"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/preprocess"
	"github.com/JonMunkholm/outreach/internal/table"
)

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Table    *table.Table
	Options  config.Options
	Notices  table.Notices
	Duration time.Duration
}

// Run loads the export at path (or the newest discovered export when path
// is empty), cleans it and preprocesses it. Options flow forward through
// every stage; the returned Options carry whatever the stages added.
//
// Only a missing or unreadable input aborts the run. Row and cell defects
// are recovered inside the stages and summarized in Result.Notices.
//
// ctx is used for log correlation only; a run is not cancellable.
func Run(ctx context.Context, path string, opts config.Options) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	var notices table.Notices

	loaded, opts, n, err := loader.Load(path, opts)
	if err != nil {
		logger.Error("load failed", "pattern", loader.DiscoveryPattern(opts), "path", path, "error", err)
		return nil, fmt.Errorf("load: %w", err)
	}
	notices.Merge(n)
	logger.Info("loaded",
		"file", n.SourceFile,
		"rows", n.RowsLoaded,
		"columns", len(loaded.Columns()),
	)
	if n.DecodingBytesDropped > 0 {
		logger.Warn("dropped undecodable bytes", "bytes", n.DecodingBytesDropped)
	}
	if n.RaggedRows > 0 {
		logger.Warn("truncated rows wider than header", "rows", n.RaggedRows)
	}

	cleaned, opts, n, err := cleaner.Clean(loaded, opts)
	if err != nil {
		logger.Error("clean failed", "error", err)
		return nil, fmt.Errorf("clean: %w", err)
	}
	notices.Merge(n)
	logger.Info("cleaned",
		"rows", cleaned.Len(),
		"dropped_zero_date", n.ZeroDateRows,
		"dropped_incomplete", n.IncompleteRows,
		"cells_filled", n.CellsFilled,
	)
	if n.AttendeeFallbacks > 0 {
		logger.Debug("attendee counts defaulted",
			"count", n.AttendeeFallbacks,
			"fallback", opts.AttendeeFallback(),
		)
	}

	processed, opts, n := preprocess.Preprocess(cleaned, opts)
	notices.Merge(n)
	logger.Info("preprocessed", "rows", processed.Len(), "invalid_dates", n.InvalidDates)

	elapsed := time.Since(start)
	logger.Info("pipeline complete", "rows", processed.Len(), "duration_ms", elapsed.Milliseconds())

	return &Result{
		RunID:    runID,
		Table:    processed,
		Options:  opts,
		Notices:  notices,
		Duration: elapsed,
	}, nil
}
