package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/outreach/internal/cleaner"
	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/loader"
	"github.com/JonMunkholm/outreach/internal/preprocess"
	"github.com/JonMunkholm/outreach/internal/store"
	"github.com/JonMunkholm/outreach/internal/table"
)

const exportHeader = `Timestamp,Event/Activity Title ,Type of Event,Date,Total # of Attendees (approximate),"Funding Source (please list all funding sources for the event, including CIERA, and/or specific grants if you know them)"` + "\n"

func writeExport(t *testing.T, dir, body string) {
	t.Helper()
	input := filepath.Join(dir, "input")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(input, "export.csv"), []byte(exportHeader+body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func options(dir string) config.Options {
	return config.Options{
		config.KeyDataDir:      dir,
		config.KeyInputDirname: "input",
		config.KeyFilePattern:  "*.csv",
	}
}

func TestRun_Scenario(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir,
		"5/1/2013 10:00,Dropped,Tour,0,4,CIERA\n"+
			"5/1/2013 10:00,Talk A,Seminar,2013-05-01,abc,CIERA &amp; NSF\n")

	res, err := Run(context.Background(), "", options(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("RunID = %q, want a UUID", res.RunID)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (zero-date row removed)", res.Table.Len())
	}

	row := res.Table.Row(0)
	want := map[string]table.Value{
		cleaner.ColEventTitle:     table.String("Talk A"),
		cleaner.ColEventType:      table.String("Seminar"),
		cleaner.ColDate:           table.Date(time.Date(2013, time.May, 1, 0, 0, 0, 0, time.UTC)),
		cleaner.ColTotalAttendees: table.Int(10),
		cleaner.ColFundingSource:  table.String("CIERA & NSF"),
		preprocess.ColLegacy:      table.String(preprocess.EraLegacy),
		preprocess.ColID:          table.Int(0),
	}
	for col, v := range want {
		if got := row.Get(col); !got.Equal(v) {
			t.Errorf("%s = %v, want %v", col, got, v)
		}
	}

	if !res.Options.Bool(config.KeyDataPreprocessed) {
		t.Error("data_preprocessed should be set on the returned options")
	}
	n := res.Notices
	if n.RowsLoaded != 2 || n.ZeroDateRows != 1 || n.AttendeeFallbacks != 1 || !n.Preprocessed {
		t.Errorf("Notices = %+v", n)
	}
	if filepath.Base(n.SourceFile) != "export.csv" {
		t.Errorf("SourceFile = %q, want export.csv", n.SourceFile)
	}
}

func TestRun_Invariants(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir,
		"x,Talk A,Seminar,2012-01-01,12,\n"+
			"x,,Seminar,2013-01-01,5,\n"+
			"x,Talk C,Workshop,2014-06-01,many,NSF\n"+
			"x,Talk D,,2015-01-01,3,\n"+
			"x,Talk E,Tour,not a date,7.0,\n")

	res, err := Run(context.Background(), "", options(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tbl := res.Table
	if got, want := tbl.Indices(), []int{0, 1, 2}; !slices.Equal(got, want) {
		t.Errorf("Indices = %v, want %v", got, want)
	}
	for _, r := range tbl.Rows() {
		for _, c := range cleaner.MandatoryColumns {
			if r.Get(c).IsMissing() {
				t.Errorf("row %d: %s missing", r.Index, c)
			}
		}
		for _, c := range tbl.Columns() {
			if r.Get(c).IsMissing() {
				t.Errorf("row %d: %s missing after cleaning", r.Index, c)
			}
		}
		if k := r.Get(cleaner.ColTotalAttendees).Kind(); k != table.KindInt {
			t.Errorf("row %d: Total Attendees kind = %v, want KindInt", r.Index, k)
		}
		if k := r.Get(cleaner.ColDate).Kind(); k != table.KindDate && k != table.KindInvalidDate {
			t.Errorf("row %d: Date kind = %v, want a date", r.Index, k)
		}
	}

	wantLegacy := []string{preprocess.EraLegacy, preprocess.EraCurrent, preprocess.EraCurrent}
	for i, v := range tbl.Column(preprocess.ColLegacy) {
		if s, _ := v.Text(); s != wantLegacy[i] {
			t.Errorf("row %d Legacy = %q, want %q", i, s, wantLegacy[i])
		}
	}
	if v := tbl.Row(1).Get(cleaner.ColTotalAttendees); !v.Equal(table.Int(10)) {
		t.Errorf("fallback attendees = %v, want 10", v)
	}
	if v := tbl.Row(2).Get(cleaner.ColTotalAttendees); !v.Equal(table.Int(7)) {
		t.Errorf("decimal attendees = %v, want 7", v)
	}
	if res.Notices.IncompleteRows != 2 || res.Notices.InvalidDates != 1 {
		t.Errorf("Notices = %+v", res.Notices)
	}
}

func TestRun_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.csv")
	body := "Outreach form responses\n" + exportHeader + "x,Talk A,Seminar,2016-01-01,12,NSF\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("Len = %d, want 1", res.Table.Len())
	}
	if s, _ := res.Table.Row(0).Get(preprocess.ColLegacy).Text(); s != preprocess.EraCurrent {
		t.Errorf("Legacy = %q, want CURRENT", s)
	}
}

func TestRun_NoInput(t *testing.T) {
	res, err := Run(context.Background(), "", options(t.TempDir()))
	if res != nil {
		t.Error("Run() should not produce a result without input")
	}
	if !errors.Is(err, loader.ErrNoInputFound) {
		t.Fatalf("Run() error = %v, want ErrNoInputFound", err)
	}
}

func TestRun_PlaceholderTokens(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir,
		"x,N/A,Seminar,2013-05-01,4,NSF\n"+
			"x,Talk B,NaN,2013-05-01,4,NSF\n"+
			"x,Talk C,Tour,NA,4,NSF\n"+
			"x,Talk D,Tour,2015-02-03,12,NULL\n")

	res, err := Run(context.Background(), "", options(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("Len = %d, want 1", res.Table.Len())
	}
	if res.Notices.IncompleteRows != 3 {
		t.Errorf("IncompleteRows = %d, want 3", res.Notices.IncompleteRows)
	}

	row := res.Table.Row(0)
	if got := row.Get(cleaner.ColFundingSource); !got.Equal(table.String(cleaner.Sentinel)) {
		t.Errorf("%s = %v, want %v", cleaner.ColFundingSource, got, cleaner.Sentinel)
	}
	for _, c := range []string{cleaner.ColEventTitle, cleaner.ColEventType} {
		if v := store.ToPgText(row.Get(c)); !v.Valid {
			t.Errorf("%s = %+v, want a non-NULL database value", c, v)
		}
	}
}
