package transform

import (
	"errors"

	"github.com/nao1215/flatparser/internal/table"
)

var (
	// ErrSchemaMismatch is returned when a rule needs a column that the store
	// does not declare. It is the same value as table.ErrSchemaMismatch.
	ErrSchemaMismatch = table.ErrSchemaMismatch

	// ErrUnknownRule is returned by CleanRules for a name it does not know.
	ErrUnknownRule = errors.New("unknown clean rule")
)
