package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/nao1215/flatparser/internal/model"
	"github.com/nao1215/flatparser/internal/table"
)

// setupTestDB creates a temporary ledger for testing.
func setupTestDB(t *testing.T) *Ledger {
	t.Helper()

	l, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleRun(parser string, started time.Time) *model.RunReport {
	run := model.NewRunReport(model.OperationScrape, parser)
	run.StartedAt = started
	run.FinishedAt = started.Add(3 * time.Second)
	run.Input = "flats.csv"
	run.Output = "houses.csv"
	run.Workers = 4
	run.Total = 2
	run.Succeeded = 1
	run.Failed = 1
	run.Rows = 1
	run.Outcomes = []model.TaskOutcome{
		{Index: 0, Label: "Lenina 1", Status: "succeeded", Records: 1, Origin: table.Row{"address": "Lenina 1"}},
		{Index: 1, Label: "Mira 5", Status: "failed", Reason: "no house details found", Origin: table.Row{"address": "Mira 5"}},
	}
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		l, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer l.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if l.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", l.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		l, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := l.SaveRun(context.Background(), sampleRun("domaekb", time.Now())); err != nil {
			t.Fatal(err)
		}
		_ = l.Close()

		l, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer l.Close()

		runs, err := l.ListRuns(context.Background(), "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run after reopen, got %d", len(runs))
		}
	})
}

func TestSaveRunAndGetRun(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("domaekb", started)
	if err := l.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	if run.Outcomes[0].RowHash == "" {
		t.Error("expected row hash to be filled on save")
	}

	got, err := l.GetRun(ctx, run.ID.String()[:8])
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}

	if got.ID != run.ID || got.Parser != "domaekb" || got.Operation != model.OperationScrape {
		t.Errorf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started.Add(3*time.Second)) {
		t.Errorf("timestamps not preserved: %v %v", got.StartedAt, got.FinishedAt)
	}
	if got.Workers != 4 || got.Total != 2 || got.Succeeded != 1 || got.Failed != 1 || got.Rows != 1 {
		t.Errorf("counters not preserved: %+v", got)
	}

	want := []model.TaskOutcome{
		{Index: 0, Label: "Lenina 1", Status: "succeeded", Records: 1, RowHash: Fingerprint(table.Row{"address": "Lenina 1"})},
		{Index: 1, Label: "Mira 5", Status: "failed", Reason: "no house details found", RowHash: Fingerprint(table.Row{"address": "Mira 5"})},
	}
	if diff := cmp.Diff(want, got.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRunRejectsNilID(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	run := sampleRun("domaekb", time.Now())
	run.ID = uuid.Nil
	if err := l.SaveRun(context.Background(), run); err == nil {
		t.Error("expected error for nil id")
	}
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()
	run := sampleRun("domaekb", time.Now())
	if err := l.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := l.SaveRun(ctx, run); err == nil {
		t.Fatal("expected duplicate id to fail")
	}

	outcomes, err := l.GetOutcomes(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Errorf("expected the first save to be intact, got %d outcomes", len(outcomes))
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := sampleRun("domaekb", base)
	second := sampleRun("google_maps", base.Add(time.Hour))
	third := sampleRun("domaekb", base.Add(2*time.Hour))
	for _, r := range []*model.RunReport{first, second, third} {
		if err := l.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := l.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		var ids []uuid.UUID
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		if diff := cmp.Diff([]uuid.UUID{third.ID, second.ID, first.ID}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if runs[0].Outcomes != nil {
			t.Error("ListRuns must not load outcomes")
		}
	})

	t.Run("filters by parser and limits", func(t *testing.T) {
		t.Parallel()

		runs, err := l.ListRuns(ctx, "domaekb", 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].ID != third.ID {
			t.Errorf("expected only the newest domaekb run, got %+v", runs)
		}
	})
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	_, err := l.GetRun(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	_, err = l.GetRun(context.Background(), "")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound for empty id, got %v", err)
	}
}

func TestFindOutcomesByRow(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var runs []*model.RunReport
	for i := range 2 {
		run := sampleRun("domaekb", base.Add(time.Duration(i)*time.Hour))
		if err := l.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		runs = append(runs, run)
	}

	outcomes, err := l.FindOutcomesByRow(ctx, table.Row{"address": "Mira 5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != "failed" || o.Parser != "domaekb" || o.Operation != model.OperationScrape {
			t.Errorf("unexpected outcome %+v", o)
		}
	}
	if outcomes[0].RunID != runs[1].ID {
		t.Errorf("expected newest run first, got %s", outcomes[0].RunID)
	}
	if !outcomes[0].StartedAt.Equal(runs[1].StartedAt) {
		t.Errorf("StartedAt = %v, want %v", outcomes[0].StartedAt, runs[1].StartedAt)
	}

	none, err := l.FindOutcomesByRow(ctx, table.Row{})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected no outcomes for an empty row, got %+v", none)
	}
}

func TestSaveRunEmptyOrigin(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	run := model.NewRunReport(model.OperationScrape, "domaekb")
	run.Outcomes = []model.TaskOutcome{
		{Index: 0, Label: "a", Status: "failed", Origin: table.Row{}},
		{Index: 1, Label: "b", Status: "failed"},
	}
	if err := l.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	for _, o := range run.Outcomes {
		if o.RowHash != "" {
			t.Errorf("outcome %d: expected no row hash, got %q", o.Index, o.RowHash)
		}
	}

	var nulls int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_outcomes WHERE row_hash IS NULL`).Scan(&nulls); err != nil {
		t.Fatal(err)
	}
	if nulls != 2 {
		t.Errorf("expected 2 NULL row hashes, got %d", nulls)
	}

	// The hash of an empty row must not find these outcomes either.
	var matched int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_outcomes WHERE row_hash = ?`, Fingerprint(table.Row{})).Scan(&matched); err != nil {
		t.Fatal(err)
	}
	if matched != 0 {
		t.Errorf("expected no outcome with the empty-row hash, got %d", matched)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint(table.Row{"address": "Lenina 1", "price": "100"})
	b := Fingerprint(table.Row{"price": "100", "address": "Lenina 1"})
	if a != b {
		t.Error("fingerprint must not depend on key order")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == Fingerprint(table.Row{"address": "Lenina 1", "price": "1000"}) {
		t.Error("different rows must differ")
	}
	if Fingerprint(table.Row{"ab": "c"}) == Fingerprint(table.Row{"a": "bc"}) {
		t.Error("key/value boundaries must be unambiguous")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	if !parseTimestamp("").IsZero() {
		t.Error("empty string must give zero time")
	}
	if !parseTimestamp("not a time").IsZero() {
		t.Error("garbage must give zero time")
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := parseTimestamp("2026-01-02 03:04:05"); !got.Equal(want) {
		t.Errorf("unexpected time %v", got)
	}
	if got := parseTimestamp(formatTimestamp(want)); !got.Equal(want) {
		t.Errorf("round trip failed: %v", got)
	}
}
