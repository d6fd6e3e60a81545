package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/flatparser/internal/model"
)

// JSONWriter outputs runs in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version is recorded in the envelope when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the flatparser version in the output envelope.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunEnvelope wraps one run with output metadata.
type RunEnvelope struct {
	Version string           `json:"version,omitempty"`
	Status  model.RunStatus  `json:"status"`
	Elapsed string           `json:"elapsed"`
	Run     *model.RunReport `json:"run"`
}

// HistoryEnvelope wraps a run list with output metadata.
type HistoryEnvelope struct {
	Version string             `json:"version,omitempty"`
	Runs    []*model.RunReport `json:"runs"`
}

// RowHistoryEnvelope wraps the outcomes of one input row with output metadata.
type RowHistoryEnvelope struct {
	Version  string             `json:"version,omitempty"`
	Outcomes []model.RowOutcome `json:"outcomes"`
}

// Write outputs the run wrapped in a RunEnvelope.
func (w *JSONWriter) Write(run *model.RunReport) (int, error) {
	return w.writeJSON(RunEnvelope{
		Version: w.version,
		Status:  run.Status(),
		Elapsed: run.Elapsed().String(),
		Run:     run,
	})
}

// WriteHistory outputs the runs wrapped in a HistoryEnvelope.
func (w *JSONWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	if runs == nil {
		runs = []*model.RunReport{}
	}
	return w.writeJSON(HistoryEnvelope{Version: w.version, Runs: runs})
}

// WriteRowHistory outputs the outcomes wrapped in a RowHistoryEnvelope.
func (w *JSONWriter) WriteRowHistory(outcomes []model.RowOutcome) (int, error) {
	if outcomes == nil {
		outcomes = []model.RowOutcome{}
	}
	return w.writeJSON(RowHistoryEnvelope{Version: w.version, Outcomes: outcomes})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
