package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// defaultExt is appended to derived paths whose source has no extension.
const defaultExt = ".csv"

// Mode describes how a store is written for one processing stage.
type Mode struct {
	// Name identifies the stage in logs.
	Name string

	// Suffix is inserted before the extension when the output path is derived
	// from the source path.
	Suffix string

	// Fill is written for every absent cell.
	Fill string
}

var (
	// ModePlain writes scraped data as-is with empty fill.
	ModePlain = Mode{Name: "plain"}

	// ModeCleaned writes cleaner output; absent cells stay empty.
	ModeCleaned = Mode{Name: "cleaned", Suffix: "_cleaned"}

	// ModeBinarized writes binarizer output; absent cells become "0".
	ModeBinarized = Mode{Name: "binarized", Suffix: "_binarized", Fill: "0"}
)

// ErrNoOutputPath is returned by Write when neither an explicit path nor a
// derivable one is available.
var ErrNoOutputPath = errors.New("no output path: pass one explicitly or load the store from a file")

// Store is an in-memory CSV-shaped dataset.
type Store struct {
	// Path is the file the store was loaded from. Empty for stores built in memory.
	Path string

	// Columns is the ordered column set used as the header on write.
	Columns *Columns

	// Rows holds the records in input order.
	Rows []Row
}

// NewStore returns an empty in-memory store with the given header.
func NewStore(columns ...string) *Store {
	return &Store{
		Columns: NewColumns(columns...),
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.Rows)
}

// Empty reports whether the store has no rows.
func (s *Store) Empty() bool {
	return len(s.Rows) == 0
}

// Append adds row to the store and registers its keys as columns.
// Keys are registered in sorted order so that the header is deterministic
// for rows built from maps.
func (s *Store) Append(row Row) {
	s.Columns.Add(row.Keys()...)
	s.Rows = append(s.Rows, row)
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLoadLogger sets the logger used for load diagnostics.
func WithLoadLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads a delimited file with a header row.
//
// A missing or unreadable path returns ErrResource. An empty file, or one the
// CSV reader rejects, yields an empty store and a logged warning; callers
// must check Empty before proceeding. A leading UTF-8 byte order mark is
// ignored.
func Load(path string, opts ...LoadOption) (*Store, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	f, err := os.Open(path) //nolint:gosec // reading user-provided input files is the point
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResource, path, err)
	}
	defer f.Close()

	store, err := read(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	if err != nil {
		o.logger.Warn("input is not a valid or non-empty csv file",
			"path", path,
			"error", err,
		)
		store = NewStore()
	}
	store.Path = path

	return store, nil
}

// read parses the whole input or returns the first error encountered.
func read(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file has no header row")
		}
		return nil, err
	}

	store := NewStore(header...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(Row, len(header))
		for i, name := range header {
			if i >= len(record) {
				break
			}
			row[name] = record[i]
		}
		store.Rows = append(store.Rows, row)
	}

	return store, nil
}

// Write serializes the store as CSV using the current column set as header.
//
// When path is empty it is derived from the store's source path and the
// mode suffix. Absent cells are written as mode.Fill. A row key that is not a
// declared column returns ErrSchemaMismatch and nothing is written. Write
// never modifies the rows.
func (s *Store) Write(path string, mode Mode) (string, error) {
	if path == "" {
		if s.Path == "" || mode.Suffix == "" {
			return "", ErrNoOutputPath
		}
		path = DerivePath(s.Path, mode.Suffix)
	}

	for i, row := range s.Rows {
		for key := range row {
			if !s.Columns.Has(key) {
				return "", fmt.Errorf("%w: row %d has undeclared column %q", ErrSchemaMismatch, i, key)
			}
		}
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // output path is user-provided
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	if err := s.encode(f, mode); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	return path, nil
}

// encode writes header and rows to w.
func (s *Store) encode(w io.Writer, mode Mode) error {
	names := s.Columns.Names()
	writer := csv.NewWriter(w)

	if err := writer.Write(names); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(names))
	for _, row := range s.Rows {
		for i, name := range names {
			if v, ok := row[name]; ok {
				record[i] = v
			} else {
				record[i] = mode.Fill
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// DerivePath inserts suffix between the final extension of src and the rest
// of the path: "data/flats.csv" with "_cleaned" becomes
// "data/flats_cleaned.csv". A path without extension gets ".csv".
func DerivePath(src, suffix string) string {
	ext := filepath.Ext(src)
	if ext == "" {
		return src + suffix + defaultExt
	}
	return strings.TrimSuffix(src, ext) + suffix + ext
}
