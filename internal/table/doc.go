// Package table provides the in-memory tabular store used by every stage of
// flatparser.
//
// A Store holds an ordered set of column names and a sequence of rows. Rows
// are string maps; a missing key means the cell is absent and is written with
// the default of the output Mode (empty for cleaned data, "0" for binarized
// data).
//
// Loading is lenient: an empty or malformed file produces an empty store and a
// warning instead of an error. Only a missing or unreadable path is reported
// as ErrResource.
//
//	store, err := table.Load("flats.csv")
//	if err != nil {
//	    return err
//	}
//	path, err := store.Write("", table.ModeCleaned) // flats_cleaned.csv
package table
