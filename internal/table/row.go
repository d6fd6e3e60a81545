package table

import (
	"maps"
	"slices"
)

// Row is a single record. A key that is not present is an absent cell,
// which is different from a present empty string.
type Row map[string]string

// Clone returns a copy of the row. A nil row clones to nil.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Get returns the value for column and whether the cell is present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// Keys returns the row's column names sorted lexically.
func (r Row) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}
