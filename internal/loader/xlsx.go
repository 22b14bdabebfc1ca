package loader

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first worksheet of a workbook export.
// Cell text is taken as displayed, so dates formatted in the sheet arrive in
// the same textual form a CSV export would carry.
func readXLSX(path string) ([]record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	records := make([]record, len(rows))
	for i, row := range rows {
		records[i] = record{line: i + 1, fields: row}
	}
	return records, nil
}
