package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/flatparser/internal/model"
)

// TextWriter outputs runs as terminal tables.
type TextWriter struct {
	baseWriter

	style prettytable.Style

	// showOutcomes lists every task instead of only the failed ones.
	showOutcomes bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithStyle sets the go-pretty table style.
func WithStyle(style prettytable.Style) TextWriterOption {
	return func(w *TextWriter) {
		w.style = style
	}
}

// WithAllOutcomes lists succeeded tasks too.
func WithAllOutcomes(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showOutcomes = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		style:      prettytable.StyleRounded,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *TextWriter) newTable() prettytable.Writer {
	t := prettytable.NewWriter()
	t.SetStyle(w.style)
	return t
}

// Write outputs a summary table and a table of task outcomes.
func (w *TextWriter) Write(run *model.RunReport) (int, error) {
	summary := w.newTable()
	summary.SetTitle("Run " + shortID(run))
	summary.AppendRows([]prettytable.Row{
		{"Operation", run.Operation},
		{"Parser", run.Parser},
		{"Input", orDash(run.Input)},
		{"Output", orDash(run.Output)},
		{"Started", run.StartedAt.Format(time.DateTime)},
		{"Elapsed", run.Elapsed().Round(10 * time.Millisecond)},
		{"Status", run.Status()},
	})
	if run.Total > 0 {
		summary.AppendSeparator()
		summary.AppendRows([]prettytable.Row{
			{"Tasks", run.Total},
			{"Succeeded", run.Succeeded},
			{"Failed", run.Failed},
			{"Cancelled", run.Cancelled},
		})
	}
	summary.AppendRow(prettytable.Row{"Rows", run.Rows})
	if run.Error != "" {
		summary.AppendRow(prettytable.Row{"Error", run.Error})
	}

	out := summary.Render() + "\n"

	outcomes := run.FailedOutcomes()
	if w.showOutcomes {
		outcomes = run.Outcomes
	}
	if len(outcomes) > 0 {
		t := w.newTable()
		t.AppendHeader(prettytable.Row{"#", "Task", "Status", "Records", "Reason"})
		for _, o := range outcomes {
			t.AppendRow(prettytable.Row{
				o.Index + 1,
				truncateString(o.Label, 40),
				o.Status,
				o.Records,
				truncateString(orDash(o.Reason), 60),
			})
		}
		out += t.Render() + "\n"
	}

	return io.WriteString(w.output, out)
}

// WriteHistory outputs one table row per run.
func (w *TextWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	if len(runs) == 0 {
		return fmt.Fprintln(w.output, "No runs recorded.")
	}

	t := w.newTable()
	t.AppendHeader(prettytable.Row{"ID", "Started", "Operation", "Parser", "Succeeded", "Rows", "Elapsed", "Status"})
	for _, r := range runs {
		t.AppendRow(prettytable.Row{
			shortID(r),
			r.StartedAt.Local().Format(time.DateTime),
			r.Operation,
			r.Parser,
			strconv.Itoa(r.Succeeded) + "/" + strconv.Itoa(r.Total),
			r.Rows,
			r.Elapsed().Round(10 * time.Millisecond),
			r.Status(),
		})
	}
	t.AppendFooter(prettytable.Row{"", "", "", "", "", "", "Runs", len(runs)})

	return io.WriteString(w.output, t.Render()+"\n")
}

// WriteRowHistory outputs one table row per stored outcome of an input row.
func (w *TextWriter) WriteRowHistory(outcomes []model.RowOutcome) (int, error) {
	if len(outcomes) == 0 {
		return fmt.Fprintln(w.output, "No outcomes recorded for this row.")
	}

	t := w.newTable()
	t.AppendHeader(prettytable.Row{"Run", "Started", "Parser", "#", "Task", "Status", "Records", "Reason"})
	for _, o := range outcomes {
		t.AppendRow(prettytable.Row{
			shortUUID(o.RunID),
			o.StartedAt.Local().Format(time.DateTime),
			o.Parser,
			o.Index + 1,
			truncateString(o.Label, 40),
			o.Status,
			o.Records,
			truncateString(orDash(o.Reason), 60),
		})
	}

	return io.WriteString(w.output, t.Render()+"\n")
}
