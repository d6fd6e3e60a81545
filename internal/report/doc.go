// Package report renders run records.
//
// Writers implement the Writer interface:
//   - TextWriter: terminal tables built with go-pretty
//   - JSONWriter: JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown with a task status chart
//
// Each writer renders a single run (Write), a run history (WriteHistory)
// and the stored outcomes of one input row (WriteRowHistory).
package report
