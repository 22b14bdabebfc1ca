// Package store publishes preprocessed event records to the reporting
// database using the PostgreSQL COPY protocol.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/outreach/internal/cleaner"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/preprocess"
	"github.com/JonMunkholm/outreach/internal/table"
)

// DB is the subset of pgx used by the publisher.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyColumns lists the destination columns in the order CopyRows emits
// values.
var CopyColumns = []string{
	"run_id",
	"record_id",
	"event_title",
	"event_type",
	"event_date",
	"total_attendees",
	"funding_source",
	"legacy",
	"source_line",
	"attributes",
}

// columnsByName maps the canonical table columns stored in dedicated
// database columns. Every other table column goes into attributes.
var columnsByName = map[string]bool{
	preprocess.ColID:          true,
	cleaner.ColEventTitle:     true,
	cleaner.ColEventType:      true,
	cleaner.ColDate:           true,
	cleaner.ColTotalAttendees: true,
	cleaner.ColFundingSource:  true,
	preprocess.ColLegacy:      true,
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	run_id          uuid NOT NULL,
	record_id       bigint NOT NULL,
	event_title     text NOT NULL,
	event_type      text NOT NULL,
	event_date      date,
	total_attendees bigint NOT NULL,
	funding_source  text,
	legacy          text NOT NULL,
	source_line     integer,
	attributes      jsonb NOT NULL DEFAULT '{}',
	published_at    timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, record_id)
)`

// Publisher copies processed tables into one database table.
type Publisher struct {
	db      DB
	table   pgx.Identifier
	timeout time.Duration
}

// NewPublisher creates a publisher writing to tableName, which may be
// schema-qualified ("reporting.outreach_events"). A zero timeout disables
// the per-publish deadline.
func NewPublisher(db DB, tableName string, timeout time.Duration) *Publisher {
	return &Publisher{
		db:      db,
		table:   pgx.Identifier(strings.Split(tableName, ".")),
		timeout: timeout,
	}
}

// EnsureSchema creates the destination table if it does not exist.
func (p *Publisher) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, fmt.Sprintf(createTableSQL, p.table.Sanitize())); err != nil {
		return fmt.Errorf("create table %s: %w", p.table.Sanitize(), err)
	}
	return nil
}

// Publish copies every row of t under runID and returns the number of rows
// written. The table must have passed through the preprocessor.
func (p *Publisher) Publish(ctx context.Context, runID string, t *table.Table) (int64, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	rows, err := CopyRows(runID, t)
	if err != nil {
		return 0, err
	}

	if err := p.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	n, err := p.db.CopyFrom(ctx, p.table, CopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", p.table.Sanitize(), err)
	}

	logging.FromContext(ctx).Info("published records",
		"table", p.table.Sanitize(),
		"rows", n,
		"run_id", runID,
	)
	return n, nil
}

// CopyRows converts t into COPY rows matching CopyColumns.
func CopyRows(runID string, t *table.Table) ([][]any, error) {
	id := ToPgUUID(runID)
	if !id.Valid {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}
	for _, c := range []string{preprocess.ColID, preprocess.ColLegacy} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("table is missing column %q; run the preprocessor first", c)
		}
	}

	var extra []string
	for _, c := range t.Columns() {
		if !columnsByName[c] {
			extra = append(extra, c)
		}
	}

	rows := make([][]any, 0, t.Len())
	for _, r := range t.Rows() {
		attrs := make(map[string]table.Value, len(extra))
		for _, c := range extra {
			attrs[c] = r.Get(c)
		}
		attributes, err := json.Marshal(attrs)
		if err != nil {
			return nil, fmt.Errorf("encode attributes of row %d: %w", r.Index, err)
		}

		rows = append(rows, []any{
			id,
			ToPgInt8(r.Get(preprocess.ColID)),
			ToPgText(r.Get(cleaner.ColEventTitle)),
			ToPgText(r.Get(cleaner.ColEventType)),
			ToPgDate(r.Get(cleaner.ColDate)),
			ToPgInt8(r.Get(cleaner.ColTotalAttendees)),
			ToPgText(r.Get(cleaner.ColFundingSource)),
			ToPgText(r.Get(preprocess.ColLegacy)),
			ToPgInt4(r.Line),
			attributes,
		})
	}
	return rows, nil
}
