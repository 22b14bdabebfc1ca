// Package preview renders the head of a record table as an aligned text
// grid for terminal output.
package preview

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/JonMunkholm/outreach/internal/table"
)

// MaxCellWidth bounds the display width of a single cell. Longer cells are
// truncated with an ellipsis; source headers run to over a hundred runes.
var MaxCellWidth = 32

const (
	indexHeader = "#"
	ellipsis    = "…"
)

// Render writes the first maxRows rows of t to w, one line per row, led by
// the row index. maxRows <= 0 renders every row. Widths are measured in
// terminal columns, so wide characters stay aligned.
func Render(w io.Writer, t *table.Table, maxRows int) error {
	rows := t.Rows()
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	columns := t.Columns()
	grid := make([][]string, 0, len(rows)+1)

	header := make([]string, 0, len(columns)+1)
	header = append(header, indexHeader)
	for _, c := range columns {
		header = append(header, cell(c))
	}
	grid = append(grid, header)

	for _, r := range rows {
		line := make([]string, 0, len(columns)+1)
		line = append(line, strconv.Itoa(r.Index))
		for _, c := range columns {
			line = append(line, cell(r.Get(c).String()))
		}
		grid = append(grid, line)
	}

	widths := make([]int, len(header))
	for _, line := range grid {
		for i, s := range line {
			if sw := runewidth.StringWidth(s); sw > widths[i] {
				widths[i] = sw
			}
		}
	}

	for i, line := range grid {
		if _, err := io.WriteString(w, formatLine(line, widths)); err != nil {
			return err
		}
		if i == 0 {
			if _, err := io.WriteString(w, separator(widths)); err != nil {
				return err
			}
		}
	}

	if hidden := t.Len() - len(rows); hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if MaxCellWidth > 0 && runewidth.StringWidth(s) > MaxCellWidth {
		s = runewidth.Truncate(s, MaxCellWidth, ellipsis)
	}
	return s
}

func formatLine(line []string, widths []int) string {
	var sb strings.Builder
	for i, s := range line {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(s)
		if i < len(line)-1 {
			if pad := widths[i] - runewidth.StringWidth(s); pad > 0 {
				sb.WriteString(strings.Repeat(" ", pad))
			}
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func separator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w)
	}
	return strings.Join(parts, "  ") + "\n"
}
