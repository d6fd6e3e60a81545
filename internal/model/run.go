package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/task"
)

// Operation is the kind of run.
type Operation string

const (
	// OperationScrape is a parser run dispatched over a task batch.
	OperationScrape Operation = "scrape"
	// OperationBinarize is a binarize data modifier run.
	OperationBinarize Operation = "binarize"
	// OperationClean is a clean data modifier run.
	OperationClean Operation = "clean"
)

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	// RunComplete means every task succeeded.
	RunComplete RunStatus = "complete"
	// RunPartial means some tasks failed or were cancelled.
	RunPartial RunStatus = "partial"
	// RunFailed means no task succeeded or the operation returned an error.
	RunFailed RunStatus = "failed"
	// RunCancelled means the run was interrupted.
	RunCancelled RunStatus = "cancelled"
)

// TaskOutcome is the terminal state of one task.
type TaskOutcome struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Records int    `json:"records"`

	// RowHash fingerprints the originating row so outcomes can be matched
	// against input files later. Filled when the outcome is stored.
	RowHash string `json:"row_hash,omitempty"`

	// Origin is the originating row. It is not persisted.
	Origin table.Row `json:"-"`
}

// RowOutcome is a stored task outcome together with the run it belongs to.
// It is what a row lookup in the history returns.
type RowOutcome struct {
	RunID     uuid.UUID `json:"run_id"`
	Operation Operation `json:"operation"`
	Parser    string    `json:"parser"`
	StartedAt time.Time `json:"started_at"`

	TaskOutcome
}

// RunReport describes one run.
type RunReport struct {
	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation"`
	Parser    string    `json:"parser"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Workers   int       `json:"workers,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	// Rows is the number of rows written.
	Rows int `json:"rows"`

	// Error is set when the operation itself failed.
	Error string `json:"error,omitempty"`

	// Interrupted is set when the caller's context ended during the run.
	Interrupted bool `json:"interrupted,omitempty"`

	Outcomes []TaskOutcome `json:"outcomes,omitempty"`
}

// NewRunReport starts a report with a fresh id.
func NewRunReport(operation Operation, parser string) *RunReport {
	return &RunReport{
		ID:        uuid.New(),
		Operation: operation,
		Parser:    parser,
		StartedAt: time.Now(),
	}
}

// Finish stamps the end time and records err, if any.
func (r *RunReport) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}

// Elapsed returns the run duration, zero while unfinished.
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status derives the run status from the counters.
func (r *RunReport) Status() RunStatus {
	switch {
	case r.Interrupted:
		return RunCancelled
	case r.Error != "":
		return RunFailed
	case r.Total > 0 && r.Succeeded == 0:
		return RunFailed
	case r.Failed > 0 || r.Cancelled > 0:
		return RunPartial
	default:
		return RunComplete
	}
}

// FailedOutcomes returns the outcomes that did not succeed.
func (r *RunReport) FailedOutcomes() []TaskOutcome {
	var out []TaskOutcome
	for _, o := range r.Outcomes {
		if o.Status != task.StatusSucceeded.String() {
			out = append(out, o)
		}
	}
	return out
}
