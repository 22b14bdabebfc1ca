// Package preprocess derives the reporting columns from a cleaned table.
package preprocess

import (
	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/table"
)

// Derived column names.
const (
	ColID     = "id"
	ColDate   = "Date"
	ColLegacy = "Legacy"
)

// Era labels.
const (
	EraLegacy  = "LEGACY"
	EraCurrent = "CURRENT"
)

// Preprocess returns a copy of t with the record identifier, parsed dates
// and the Legacy era column. id holds the row index the table arrived with;
// rows are then reindexed 0..n-1.
//
// The Cleaner already reindexes, so id equals the new index for tables
// coming from the pipeline. The stable link back to the export is Row.Line,
// published as source_line.
//
// The returned options are a copy of opts with data_preprocessed set, and
// Notices.Preprocessed reports the same fact explicitly.
func Preprocess(t *table.Table, opts config.Options) (*table.Table, config.Options, table.Notices) {
	var notices table.Notices
	out := t.Clone()

	out.AddColumn(ColID, func(r table.Row) table.Value {
		return table.Int(int64(r.Index))
	})
	out.Reindex()

	out.AddColumn(ColDate, func(r table.Row) table.Value {
		v := ParseDate(r.Get(ColDate))
		if v.Kind() == table.KindInvalidDate {
			notices.InvalidDates++
		}
		return v
	})

	cutoff := opts.LegacyCutoffYear()
	out.AddColumn(ColLegacy, func(r table.Row) table.Value {
		return table.String(Era(r.Get(ColDate), cutoff))
	})

	notices.Preprocessed = true
	return out, opts.With(config.KeyDataPreprocessed, true), notices
}

// Era labels a parsed date LEGACY when its year is before cutoffYear and
// CURRENT otherwise. Invalid or unparsed dates are CURRENT: an unknown year
// never compares below the cutoff.
func Era(v table.Value, cutoffYear int) string {
	t, ok := v.Time()
	if ok && t.Year() < cutoffYear {
		return EraLegacy
	}
	return EraCurrent
}
