package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeFile creates a file with content in a temporary directory.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// readFile returns the content of path.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("reads header and rows", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "flats.csv", "address,price\nLenina 1,3.500.000\nMira 5,\n")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff([]string{"address", "price"}, store.Columns.Names()); diff != "" {
			t.Errorf("columns mismatch (-want +got):\n%s", diff)
		}
		want := []Row{
			{"address": "Lenina 1", "price": "3.500.000"},
			{"address": "Mira 5", "price": ""},
		}
		if diff := cmp.Diff(want, store.Rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
		if store.Path != path {
			t.Errorf("expected Path %q, got %q", path, store.Path)
		}
	})

	t.Run("short records leave cells absent", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "short.csv", "a,b,c\n1,2\n")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := store.Rows[0]["c"]; ok {
			t.Error("expected column c to be absent")
		}
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "bom.csv", "\ufeffaddress\nLenina 1\n")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !store.Columns.Has("address") {
			t.Errorf("expected address column, got %v", store.Columns.Names())
		}
	})

	t.Run("empty file yields empty store", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "empty.csv", "")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("expected no error for empty file, got %v", err)
		}
		if !store.Empty() || store.Columns.Len() != 0 {
			t.Errorf("expected empty store, got %d rows and %d columns", store.Len(), store.Columns.Len())
		}
	})

	t.Run("header only yields header columns and no rows", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "header.csv", "address,price\n")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !store.Empty() {
			t.Errorf("expected no rows, got %d", store.Len())
		}
		if store.Columns.Len() != 2 {
			t.Errorf("expected 2 columns, got %d", store.Columns.Len())
		}
	})

	t.Run("malformed file yields empty store", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "bad.csv", "a,b\n\"unterminated,1\n")

		store, err := Load(path)
		if err != nil {
			t.Fatalf("expected no error for malformed file, got %v", err)
		}
		if !store.Empty() || store.Columns.Len() != 0 {
			t.Error("expected empty store for malformed input")
		}
	})

	t.Run("missing file returns ErrResource", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
		if !errors.Is(err, ErrResource) {
			t.Errorf("expected ErrResource, got %v", err)
		}
	})
}

func TestStoreWrite(t *testing.T) {
	t.Parallel()

	t.Run("fills absent cells with mode default", func(t *testing.T) {
		t.Parallel()

		store := NewStore("address", "balcony")
		store.Rows = []Row{
			{"address": "Lenina 1", "balcony": "1"},
			{"address": "Mira 5"},
		}
		out := filepath.Join(t.TempDir(), "out.csv")

		path, err := store.Write(out, ModeBinarized)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "address,balcony\nLenina 1,1\nMira 5,0\n"
		if got := readFile(t, path); got != want {
			t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("cleaned mode fills with empty string", func(t *testing.T) {
		t.Parallel()

		store := NewStore("floor", "floor_count")
		store.Rows = []Row{{"floor": "3"}}
		out := filepath.Join(t.TempDir(), "out.csv")

		path, err := store.Write(out, ModeCleaned)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := readFile(t, path); got != "floor,floor_count\n3,\n" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("derives path from source", func(t *testing.T) {
		t.Parallel()

		src := writeFile(t, "flats.csv", "price\n1.000\n")
		store, err := Load(src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path, err := store.Write("", ModeCleaned)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(path) != "flats_cleaned.csv" {
			t.Errorf("expected flats_cleaned.csv, got %s", path)
		}
	})

	t.Run("in-memory store without path returns ErrNoOutputPath", func(t *testing.T) {
		t.Parallel()

		_, err := NewStore("a").Write("", ModeCleaned)
		if !errors.Is(err, ErrNoOutputPath) {
			t.Errorf("expected ErrNoOutputPath, got %v", err)
		}
	})

	t.Run("undeclared row key returns ErrSchemaMismatch", func(t *testing.T) {
		t.Parallel()

		store := NewStore("a")
		store.Rows = []Row{{"a": "1", "b": "2"}}

		_, err := store.Write(filepath.Join(t.TempDir(), "out.csv"), ModePlain)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("expected ErrSchemaMismatch, got %v", err)
		}
	})

	t.Run("does not mutate rows", func(t *testing.T) {
		t.Parallel()

		store := NewStore("a", "b")
		store.Rows = []Row{{"a": "1"}}

		if _, err := store.Write(filepath.Join(t.TempDir(), "out.csv"), ModeBinarized); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]Row{{"a": "1"}}, store.Rows); diff != "" {
			t.Errorf("rows changed (-want +got):\n%s", diff)
		}
	})
}

func TestStoreAppend(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Append(Row{"lng": "60.6", "lat": "56.8"})
	store.Append(Row{"address": "Lenina 1", "lat": "56.9"})

	want := []string{"lat", "lng", "address"}
	if diff := cmp.Diff(want, store.Columns.Names()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", store.Len())
	}
}

func TestDerivePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		suffix string
		want   string
	}{
		{name: "simple", src: "flats.csv", suffix: "_binarized", want: "flats_binarized.csv"},
		{name: "nested dir with dots", src: "./data.v1/flats.csv", suffix: "_cleaned", want: "./data.v1/flats_cleaned.csv"},
		{name: "multiple dots keep all but last", src: "flats.2024.csv", suffix: "_cleaned", want: "flats.2024_cleaned.csv"},
		{name: "no extension", src: "flats", suffix: "_cleaned", want: "flats_cleaned.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DerivePath(tt.src, tt.suffix); got != tt.want {
				t.Errorf("DerivePath(%q, %q) = %q, want %q", tt.src, tt.suffix, got, tt.want)
			}
		})
	}
}
