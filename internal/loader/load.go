// Package loader locates an event-log export and parses it into a record table.
//
// Two header layouts exist in the wild. Exports picked up by discovery put
// the header on the first row; files handed over explicitly carry one extra
// leading row (a form title) above the header. Load preserves that
// asymmetry: the header row index is 0 for discovered files and 1 for
// explicit paths.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/table"
)

// Header row positions.
const (
	HeaderRowDiscovered = 0
	HeaderRowExplicit   = 1
)

// Load reads the export at path, or discovers the newest matching export when
// path is empty, and returns it as a table with a fresh contiguous row index.
// The options are returned unmodified.
func Load(path string, opts config.Options) (*table.Table, config.Options, table.Notices, error) {
	var notices table.Notices

	headerRow := HeaderRowExplicit
	if path == "" {
		found, err := Discover(opts)
		if err != nil {
			return nil, opts, notices, err
		}
		path = found
		headerRow = HeaderRowDiscovered
	}
	notices.SourceFile = path

	var (
		records []record
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path)
	default:
		records, notices.DecodingBytesDropped, err = readCSV(path)
	}
	if err != nil {
		return nil, opts, notices, err
	}

	t, ragged, err := buildTable(records, headerRow)
	if err != nil {
		return nil, opts, notices, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	notices.RaggedRows = ragged
	notices.RowsLoaded = t.Len()

	return t, opts, notices, nil
}

// record is one physical row of the source together with its line number.
type record struct {
	line   int
	fields []string
}

// readCSV parses a delimited file, discarding undecodable bytes.
// Returns the records and the number of bytes dropped.
func readCSV(path string) ([]record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	decoded := NewDroppingUTF8Reader(skipBOM(f))
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []record
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, decoded.Dropped, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}

	return records, decoded.Dropped, nil
}

// buildTable turns raw records into a table using the record at headerRow
// as column names. Rows above the header are ignored, fully blank rows are
// skipped and fields beyond the header width are discarded.
func buildTable(records []record, headerRow int) (*table.Table, int, error) {
	if len(records) <= headerRow {
		return nil, 0, fmt.Errorf("no header row at index %d (file has %d rows)", headerRow, len(records))
	}

	t, err := table.New(headerNames(records[headerRow].fields))
	if err != nil {
		return nil, 0, err
	}
	width := len(t.Columns())

	ragged := 0
	for _, rec := range records[headerRow+1:] {
		if isBlank(rec.fields) {
			continue
		}
		fields := rec.fields
		if len(fields) > width {
			ragged++
			fields = fields[:width]
		}
		values := make([]table.Value, len(fields))
		for i, raw := range fields {
			values[i] = table.Infer(raw)
		}
		if err := t.Append(rec.line, values...); err != nil {
			return nil, 0, err
		}
	}

	t.Reindex()
	return t, ragged, nil
}

// headerNames keeps source header text verbatim (trailing spaces included,
// the rename table depends on them), names empty headers "Unnamed: N" and
// suffixes repeated names with ".1", ".2", ...
func headerNames(fields []string) []string {
	names := make([]string, len(fields))
	used := make(map[string]bool, len(fields))
	repeats := make(map[string]int)
	for i, h := range fields {
		base := h
		if strings.TrimSpace(base) == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		name := base
		for used[name] {
			repeats[base]++
			name = base + "." + strconv.Itoa(repeats[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
