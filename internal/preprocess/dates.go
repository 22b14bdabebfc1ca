package preprocess

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/outreach/internal/table"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
		"20060102",
	}
	// Form exports stamp submissions with a time of day.
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
	}
)

// ParseDate converts a Date cell into a calendar date. Values that are
// already dates (or already marked invalid) pass through unchanged, so
// ParseDate is safe to apply to its own output. Integers are read as
// YYYYMMDD. Anything else that fails to parse becomes table.InvalidDate.
func ParseDate(v table.Value) table.Value {
	switch v.Kind() {
	case table.KindDate, table.KindInvalidDate:
		return v
	case table.KindInt:
		i, _ := v.IntValue()
		return parseDateText(strconv.FormatInt(i, 10))
	case table.KindString:
		s, _ := v.Text()
		return parseDateText(s)
	default:
		return table.InvalidDate()
	}
}

func parseDateText(s string) table.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return table.InvalidDate()
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.Date(t)
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.Date(t)
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return table.Date(t)
		}
	}

	return table.InvalidDate()
}
