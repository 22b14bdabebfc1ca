package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/pipeline"
	"github.com/JonMunkholm/outreach/internal/table"
)

// RecordsResponse is the payload of GET /api/records.
type RecordsResponse struct {
	RunID      string                   `json:"runId"`
	SourceFile string                   `json:"sourceFile"`
	Columns    []string                 `json:"columns"`
	Total      int                      `json:"total"`
	Records    []map[string]table.Value `json:"records"`
	Notices    table.Notices            `json:"notices"`
	Options    config.Options           `json:"options"`
	DurationMS int64                    `json:"durationMs"`
}

// PublishResponse is the payload of POST /api/publish.
type PublishResponse struct {
	RunID      string        `json:"runId"`
	SourceFile string        `json:"sourceFile"`
	Published  int64         `json:"published"`
	Notices    table.Notices `json:"notices"`
}

// HealthResponse is the payload of GET /healthz.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Publish bool                   `json:"publish"`
	Runs    pipeline.LimiterStatus `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Publish: s.publisher != nil,
		Runs:    s.limiter.Status(),
	})
}

// handleRecords runs the pipeline on the newest export and returns the
// processed table. ?limit=N caps the number of records returned.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	res, err := s.run(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	records := res.Table.Records()
	if limit := parseIntParam(r, "limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	writeJSON(w, http.StatusOK, RecordsResponse{
		RunID:      res.RunID,
		SourceFile: res.Notices.SourceFile,
		Columns:    res.Table.Columns(),
		Total:      res.Table.Len(),
		Records:    records,
		Notices:    res.Notices,
		Options:    res.Options,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// handlePublish runs the pipeline and copies the result into the
// reporting database.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		respondError(w, r, errPublishDisabled, statusFor(errPublishDisabled))
		return
	}

	res, err := s.run(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx := logging.ContextWithRunID(r.Context(), res.RunID)
	n, err := s.publisher.Publish(ctx, res.RunID, res.Table)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.metrics.ObservePublish(n)

	writeJSON(w, http.StatusOK, PublishResponse{
		RunID:      res.RunID,
		SourceFile: res.Notices.SourceFile,
		Published:  n,
		Notices:    res.Notices,
	})
}

// run executes one pipeline pass over the discovered export and records
// its metrics. Clients cannot name a file; only discovery is exposed.
func (s *Server) run(r *http.Request) (*pipeline.Result, error) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := pipeline.Run(r.Context(), "", s.opts.Clone())
	if err != nil {
		s.metrics.ObserveRun(table.Notices{}, 0, time.Since(start), err)
		return nil, err
	}
	s.metrics.ObserveRun(res.Notices, res.Table.Len(), res.Duration, nil)
	return res, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
