// Package transform implements the post-processing stages that rewrite a
// table.Store in place: the Binarizer and the Cleaner rules.
//
// Every transform satisfies the pipeline step contract (Name and Apply), so
// the CLI chains them with pipeline.Pipeline. Row-level problems, such as a
// floors value without a separator, are recovered locally; schema-level
// problems, such as running the floors rule on data without a floors column,
// return ErrSchemaMismatch before any row is touched.
package transform
