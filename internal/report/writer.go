package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/nao1215/flatparser/internal/model"
)

// Writer renders run records.
type Writer interface {
	// Write renders one run with its task outcomes.
	Write(run *model.RunReport) (int, error)

	// WriteHistory renders a list of runs without outcomes.
	WriteHistory(runs []*model.RunReport) (int, error)

	// WriteRowHistory renders the stored outcomes of one input row across runs.
	WriteRowHistory(outcomes []model.RowOutcome) (int, error)
}

// Format names accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "md"
)

// New returns the writer for format. "markdown" is accepted for FormatMarkdown.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	case FormatMarkdown, "markdown":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q: use text, json or md", format)
	}
}

// MultiWriter writes to multiple Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the run with every writer and stops on the first error.
func (m *MultiWriter) Write(run *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory renders the history with every writer.
func (m *MultiWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRowHistory renders the row history with every writer.
func (m *MultiWriter) WriteRowHistory(outcomes []model.RowOutcome) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRowHistory(outcomes)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// shortID is the id prefix shown in tables and accepted by history lookups.
func shortID(run *model.RunReport) string {
	return shortUUID(run.ID)
}

func shortUUID(id uuid.UUID) string {
	return id.String()[:8]
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
