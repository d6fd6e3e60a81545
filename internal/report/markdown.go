package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/flatparser/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs runs as GitHub Flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one run: summary table, status alert, status chart and
// the table of tasks that did not succeed.
func (w *MarkdownWriter) Write(run *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("flatparser run " + shortID(run))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID.String() + "`"},
			{"Operation", string(run.Operation)},
			{"Parser", run.Parser},
			{"Input", orDash(run.Input)},
			{"Output", orDash(run.Output)},
			{"Started", run.StartedAt.Format(timeLayout)},
			{"Elapsed", run.Elapsed().Round(10 * time.Millisecond).String()},
			{"Status", string(run.Status())},
		},
	})
	md.PlainText("")

	if run.Total > 0 {
		w.writeTasks(md, run)
	}
	w.writeAlert(md, run)
	w.writeFailures(md, run)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by flatparser*")

	return len(md.String()), md.Build()
}

// writeTasks writes the task counters and a pie chart of statuses.
func (w *MarkdownWriter) writeTasks(md *markdown.Markdown, run *model.RunReport) {
	md.H2("Tasks")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"Succeeded", strconv.Itoa(run.Succeeded)},
			{"Failed", strconv.Itoa(run.Failed)},
			{"Cancelled", strconv.Itoa(run.Cancelled)},
			{"**Total**", "**" + strconv.Itoa(run.Total) + "**"},
			{"Rows written", strconv.Itoa(run.Rows)},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Task Status"),
		piechart.WithShowData(true),
	)
	for _, s := range []struct {
		label string
		count int
	}{
		{"Succeeded", run.Succeeded},
		{"Failed", run.Failed},
		{"Cancelled", run.Cancelled},
	} {
		if s.count > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.count))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.RunReport) {
	switch run.Status() {
	case model.RunCancelled:
		md.Warningf("Run was interrupted. %d task(s) were cancelled.", run.Cancelled)
	case model.RunFailed:
		if run.Error != "" {
			md.Cautionf("Run failed: %s", run.Error)
		} else {
			md.Cautionf("No task succeeded. %d task(s) failed.", run.Failed)
		}
	case model.RunPartial:
		md.Importantf("%d of %d task(s) did not produce rows.", run.Failed+run.Cancelled, run.Total)
	default:
		md.Tip("Run completed without failures.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.RunReport) {
	failed := run.FailedOutcomes()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Tasks")
	md.PlainText("")
	rows := make([][]string, len(failed))
	for i, o := range failed {
		rows[i] = []string{
			strconv.Itoa(o.Index + 1),
			truncateString(o.Label, 40),
			o.Status,
			truncateString(orDash(o.Reason), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Task", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteHistory outputs a table of runs.
func (w *MarkdownWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("flatparser history")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			"`" + shortID(r) + "`",
			r.StartedAt.Format(timeLayout),
			string(r.Operation),
			r.Parser,
			strconv.Itoa(r.Succeeded) + "/" + strconv.Itoa(r.Total),
			strconv.Itoa(r.Rows),
			string(r.Status()),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Operation", "Parser", "Succeeded", "Rows", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteRowHistory outputs a table of the stored outcomes of one input row.
func (w *MarkdownWriter) WriteRowHistory(outcomes []model.RowOutcome) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("flatparser row history")
	md.PlainText("")

	if len(outcomes) == 0 {
		md.PlainText("No outcomes recorded for this row.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		rows[i] = []string{
			"`" + shortUUID(o.RunID) + "`",
			o.StartedAt.Format(timeLayout),
			o.Parser,
			truncateString(o.Label, 40),
			o.Status,
			truncateString(orDash(o.Reason), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Parser", "Task", "Status", "Reason"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}
