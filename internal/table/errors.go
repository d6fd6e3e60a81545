package table

import "errors"

var (
	// ErrResource is returned when an input path is missing or cannot be read.
	ErrResource = errors.New("input resource is missing or unreadable")

	// ErrSchemaMismatch is returned when rows and the column set disagree,
	// for example when a row carries a key that is not a declared column.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
