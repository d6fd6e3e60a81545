package transform

import (
	"context"
	"log/slog"

	"github.com/nao1215/flatparser/internal/table"
)

// binaryTrue marks a row as having a categorical value.
// Rows without it are filled by table.ModeBinarized on write.
const binaryTrue = "1"

// Binarizer expands categorical columns into one boolean column per
// distinct value. For a source column "district" with values "Center" and
// "North", every row gains "Center"="1" or "North"="1"; the other column is
// left absent and written as "0".
type Binarizer struct {
	variables []string
	logger    *slog.Logger

	// added holds the columns created by the last Apply.
	added *table.Columns
}

// BinarizerOption configures a Binarizer.
type BinarizerOption func(*Binarizer)

// WithBinarizerLogger sets the logger used for diagnostics.
func WithBinarizerLogger(logger *slog.Logger) BinarizerOption {
	return func(b *Binarizer) {
		b.logger = logger
	}
}

// NewBinarizer creates a Binarizer for the given source columns.
func NewBinarizer(variables []string, opts ...BinarizerOption) *Binarizer {
	b := &Binarizer{
		variables: variables,
		added:     table.NewColumns(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Name returns the step name.
func (b *Binarizer) Name() string {
	return "binarize"
}

// Apply sets a "1" column for every non-empty value of every source column
// and adds the new names to the store's column set. Source columns that a
// row lacks are skipped. With no variables configured it logs a warning and
// leaves the store untouched.
func (b *Binarizer) Apply(ctx context.Context, store *table.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.added = table.NewColumns()
	if len(b.variables) == 0 {
		b.logger.Warn("no variables to binarize")
		return nil
	}

	for _, row := range store.Rows {
		// Values are collected before any write so that a value naming
		// another source column cannot feed into this row's expansion.
		values := make([]string, 0, len(b.variables))
		for _, variable := range b.variables {
			value, ok := row[variable]
			if !ok || value == "" {
				continue
			}
			values = append(values, value)
		}
		for _, value := range values {
			row[value] = binaryTrue
			b.added.Add(value)
		}
	}

	store.Columns.Add(b.added.Names()...)

	b.logger.Debug("binarized store",
		"variables", b.variables,
		"new_columns", b.added.Len(),
		"rows", store.Len(),
	)
	return nil
}

// Added returns the column names created by the last Apply, in first-seen order.
func (b *Binarizer) Added() []string {
	return b.added.Names()
}
