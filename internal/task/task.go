package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/flatparser/internal/table"
)

// Work is the scraping delegate executed by a task. It receives a copy of
// the prior-data row (nil for seed tasks) and returns the result records.
// Detail scrapers return one record; listing scrapers one per listing found.
type Work func(ctx context.Context, prev table.Row) ([]table.Row, error)

// Runnable is the capability the orchestrator depends on.
type Runnable interface {
	// Label identifies the task in logs and the run ledger.
	Label() string
	// Run executes the task once.
	Run(ctx context.Context) error
	// Cancel moves a pending task to StatusCancelled.
	Cancel() bool
	// Status returns the current lifecycle state.
	Status() Status
	// Result returns the records of a succeeded task, nil otherwise.
	Result() []table.Row
	// Reason returns why a task failed or was cancelled.
	Reason() error
}

// Task is the default Runnable built from one prior-data row or a seed.
type Task struct {
	label string
	index int
	prev  table.Row
	work  Work

	mu       sync.Mutex
	status   Status
	result   []table.Row
	reason   error
	started  time.Time
	finished time.Time
}

var _ Runnable = (*Task)(nil)

// New creates a pending task. prev is copied.
func New(label string, prev table.Row, work Work) *Task {
	return &Task{
		label:  label,
		prev:   prev.Clone(),
		work:   work,
		status: StatusPending,
	}
}

// Label returns the task label.
func (t *Task) Label() string {
	return t.label
}

// Index returns the position of the originating row in its input.
func (t *Task) Index() int {
	return t.index
}

// Prev returns a copy of the originating row.
func (t *Task) Prev() table.Row {
	return t.prev.Clone()
}

// Status returns the current state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Reason returns the failure or cancellation cause, nil otherwise.
func (t *Task) Reason() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Result returns copies of the result records of a succeeded task.
func (t *Task) Result() []table.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusSucceeded {
		return nil
	}
	out := make([]table.Row, len(t.result))
	for i, row := range t.result {
		out[i] = row.Clone()
	}
	return out
}

// Elapsed returns how long the delegate ran. Zero until the task is terminal.
func (t *Task) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished.IsZero() || t.started.IsZero() {
		return 0
	}
	return t.finished.Sub(t.started)
}

// Cancel moves a pending task to StatusCancelled. It reports whether the
// transition happened.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusCancelled
	t.reason = context.Canceled
	return true
}

// outcome carries the delegate's return values across goroutines.
type outcome struct {
	rows []table.Row
	err  error
}

// Run executes the delegate and records the terminal state.
//
// The delegate's own failure is not returned: it is recorded as
// StatusFailed with Reason. Run only returns ErrNotPending when called on a
// task that was already started. If ctx ends first the task becomes
// StatusCancelled and whatever the delegate returns afterwards is dropped.
//
// Design decision: The delegate runs in its own goroutine and Run selects on
// its result and ctx.Done(). Delegates are parser code doing network I/O and
// may ignore ctx; waiting for them would let one stuck site hold a worker
// past the task timeout. A result that arrives after ctx ended is discarded
// rather than recorded, so a task is never reported cancelled and succeeded
// at once, and Result never returns rows the dispatcher did not count.
func (t *Task) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusPending {
		status := t.status
		t.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotPending, t.label, status)
	}
	if err := ctx.Err(); err != nil {
		t.status = StatusCancelled
		t.reason = err
		t.mu.Unlock()
		return nil
	}
	t.status = StatusRunning
	t.started = time.Now()
	t.mu.Unlock()

	if t.work == nil {
		t.finish(outcome{err: ErrNoWork})
		return nil
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		rows, err := t.work(ctx, t.prev.Clone())
		done <- outcome{rows: rows, err: err}
	}()

	select {
	case out := <-done:
		if err := ctx.Err(); err != nil {
			t.cancel(err)
			return nil
		}
		t.finish(out)
	case <-ctx.Done():
		t.cancel(ctx.Err())
	}
	return nil
}

// finish records a delegate outcome.
func (t *Task) finish(out outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = time.Now()

	switch {
	case out.err != nil:
		t.status = StatusFailed
		t.reason = out.err
	case len(out.rows) == 0:
		t.status = StatusFailed
		t.reason = ErrEmptyResult
	default:
		t.status = StatusSucceeded
		t.result = out.rows
	}
}

// cancel records a context cancellation.
func (t *Task) cancel(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = time.Now()
	t.status = StatusCancelled
	t.reason = err
}
