// Package cleaner filters malformed event records and normalizes the
// surviving ones.
//
// Clean runs a fixed sequence of steps:
//
//  1. drop rows whose Date is a literal zero
//  2. rename source headers to canonical names (RenameRules)
//  3. drop rows missing a mandatory field (MandatoryColumns)
//  4. repair HTML entities in text columns (TextRepairColumns)
//  5. coerce Total Attendees to an integer, substituting the fallback
//  6. add Funding Source if the export lacks it, then fill remaining
//     missing cells with Sentinel
//  7. reindex rows 0..n-1
//
// The rename must precede the mandatory-field drop so the check sees
// canonical names.
package cleaner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/table"
)

// Clean returns a filtered, normalized copy of t. The input table is not
// modified and the options are returned unchanged.
//
// Attendee counts that cannot be read as integers are silently replaced by
// the attendee_fallback option (default 10). This masks bad source data on
// purpose; the substitutions are counted in Notices.AttendeeFallbacks.
func Clean(t *table.Table, opts config.Options) (*table.Table, config.Options, table.Notices, error) {
	var notices table.Notices
	out := t.Clone()

	notices.ZeroDateRows = out.Filter(func(r table.Row) bool {
		return !r.Get(ColDate).IsZero()
	})

	if err := out.RenameColumns(renameMapping(RenameRules)); err != nil {
		return nil, opts, notices, fmt.Errorf("rename columns: %w", err)
	}

	notices.IncompleteRows = out.Filter(hasMandatoryFields)

	for column, repairs := range TextRepairColumns {
		if !out.HasColumn(column) {
			continue
		}
		out.Map(column, func(r table.Row) table.Value {
			return repairText(r.Get(column), repairs)
		})
	}

	fallback := opts.AttendeeFallback()
	out.AddColumn(ColTotalAttendees, func(r table.Row) table.Value {
		n, ok := CoerceOrDefault(r.Get(ColTotalAttendees), fallback)
		if !ok {
			notices.AttendeeFallbacks++
		}
		return table.Int(int64(n))
	})

	if !out.HasColumn(ColFundingSource) {
		out.AddColumn(ColFundingSource, func(table.Row) table.Value { return table.Missing() })
	}

	notices.CellsFilled = out.FillMissing(table.String(Sentinel))
	out.Reindex()

	return out, opts, notices, nil
}

// CoerceOrDefault reads v as an integer attendee count. It returns the
// count and true on success, or fallback and false when v is missing or
// not numeric. Decimal values are truncated toward zero.
func CoerceOrDefault(v table.Value, fallback int) (int, bool) {
	switch v.Kind() {
	case table.KindInt:
		i, _ := v.IntValue()
		return int(i), true
	case table.KindFloat:
		f, _ := v.FloatValue()
		return int(f), true
	case table.KindString:
		s, _ := v.Text()
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return fallback, false
}

func hasMandatoryFields(r table.Row) bool {
	for _, c := range MandatoryColumns {
		if !r.Has(c) {
			return false
		}
	}
	return true
}

func repairText(v table.Value, repairs []TextRepair) table.Value {
	s, ok := v.Text()
	if !ok {
		return v
	}
	for _, rep := range repairs {
		s = strings.ReplaceAll(s, rep.Old, rep.New)
	}
	return table.String(s)
}
