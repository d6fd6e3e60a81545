package transform

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/flatparser/internal/table"
)

// newFlatStore returns a store resembling scraped flat listings.
func newFlatStore() *table.Store {
	store := table.NewStore("address", "district", "house_type")
	store.Rows = []table.Row{
		{"address": "Lenina 1", "district": "Center", "house_type": "panel"},
		{"address": "Mira 5", "district": "North", "house_type": ""},
		{"address": "Kirova 7", "district": "Center"},
	}
	return store
}

func TestBinarizerApply(t *testing.T) {
	t.Parallel()

	t.Run("creates one column per distinct value", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		b := NewBinarizer([]string{"district", "house_type"})

		if err := b.Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff([]string{"Center", "panel", "North"}, b.Added()); diff != "" {
			t.Errorf("added columns mismatch (-want +got):\n%s", diff)
		}
		for _, name := range b.Added() {
			if !store.Columns.Has(name) {
				t.Errorf("expected column %q in store", name)
			}
		}
	})

	t.Run("marks every non-empty value with 1", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		variables := []string{"district", "house_type"}

		if err := NewBinarizer(variables).Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i, row := range store.Rows {
			for _, variable := range variables {
				value, ok := row[variable]
				if !ok || value == "" {
					continue
				}
				if row[value] != "1" {
					t.Errorf("row %d: expected %q=1, got %q", i, value, row[value])
				}
			}
		}
		if _, ok := store.Rows[1][""]; ok {
			t.Error("empty value must not become a column")
		}
	})

	t.Run("second run adds the same columns without duplicates", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		b := NewBinarizer([]string{"district"})

		if err := b.Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := b.Added()
		columns := store.Columns.Len()

		if err := b.Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(first, b.Added()); diff != "" {
			t.Errorf("added columns drifted (-first +second):\n%s", diff)
		}
		if store.Columns.Len() != columns {
			t.Errorf("expected %d columns after second run, got %d", columns, store.Columns.Len())
		}
	})

	t.Run("missing variable is skipped", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		if err := NewBinarizer([]string{"no_such_column"}).Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Columns.Len() != 3 {
			t.Errorf("expected column set unchanged, got %v", store.Columns.Names())
		}
	})

	t.Run("no variables leaves store untouched", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		before := store.Columns.Names()

		if err := NewBinarizer(nil).Apply(context.Background(), store); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if diff := cmp.Diff(before, store.Columns.Names()); diff != "" {
			t.Errorf("columns changed (-want +got):\n%s", diff)
		}
	})

	t.Run("written output fills absent values with 0", func(t *testing.T) {
		t.Parallel()

		store := newFlatStore()
		b := NewBinarizer([]string{"district"})
		if err := b.Apply(context.Background(), store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path, err := store.Write(filepath.Join(t.TempDir(), "out.csv"), table.ModeBinarized)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		written, err := table.Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i, row := range written.Rows {
			for _, name := range written.Columns.Names() {
				if _, explicit := store.Rows[i][name]; explicit {
					continue
				}
				if row[name] != "0" {
					t.Errorf("row %d column %q: expected 0, got %q", i, name, row[name])
				}
			}
		}
	})

	t.Run("cancelled context is reported", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := NewBinarizer([]string{"district"}).Apply(ctx, newFlatStore()); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestBinarizerName(t *testing.T) {
	t.Parallel()

	if name := NewBinarizer(nil).Name(); name != "binarize" {
		t.Errorf("expected binarize, got %s", name)
	}
	if !slices.Equal(NewBinarizer(nil).Added(), []string{}) {
		t.Error("expected no added columns before Apply")
	}
}
