package store

// convert.go maps record-table cells to PostgreSQL values for COPY.
//
// The cleaner fills unknown cells with the N/A sentinel, and the
// preprocessor marks unparseable dates as invalid. Both become NULL in the
// database. All ToPg* functions return pgtype values with Valid=false for
// those cells.

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/outreach/internal/cleaner"
	"github.com/JonMunkholm/outreach/internal/table"
)

// ToPgText converts a cell to pgtype.Text.
// Returns invalid for missing cells, the N/A sentinel and blank text.
func ToPgText(v table.Value) pgtype.Text {
	if v.IsMissing() || v.Kind() == table.KindInvalidDate {
		return pgtype.Text{Valid: false}
	}
	s := strings.TrimSpace(v.String())
	if s == "" || s == cleaner.Sentinel {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts a cell to pgtype.Int8. Decimal cells are truncated and
// numeric text is parsed; anything else is invalid.
func ToPgInt8(v table.Value) pgtype.Int8 {
	switch v.Kind() {
	case table.KindInt:
		i, _ := v.IntValue()
		return pgtype.Int8{Int64: i, Valid: true}
	case table.KindFloat:
		f, _ := v.FloatValue()
		return pgtype.Int8{Int64: int64(f), Valid: true}
	case table.KindString:
		s, _ := v.Text()
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return pgtype.Int8{Int64: i, Valid: true}
		}
	}
	return pgtype.Int8{Valid: false}
}

// ToPgDate converts a parsed date cell to pgtype.Date.
// Invalid dates and cells that were never parsed are invalid.
func ToPgDate(v table.Value) pgtype.Date {
	t, ok := v.Time()
	if !ok {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// ToPgInt4 converts a source line number to pgtype.Int4.
// Returns invalid if the line is unknown (zero).
func ToPgInt4(i int) pgtype.Int4 {
	if i <= 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}
