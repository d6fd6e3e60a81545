package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/task"
)

// Outcome is the terminal state of one task in a dispatched batch.
type Outcome struct {
	// Index is the task's position in the batch.
	Index int
	// Label is the task label.
	Label string
	// Status is the terminal status.
	Status task.Status
	// Reason is the failure or cancellation cause.
	Reason error
	// Records is the number of result rows the task contributed.
	Records int
	// Origin is the prior-data row the task was created from, if any.
	Origin table.Row
}

// Result aggregates a dispatched batch.
type Result struct {
	// Store holds the union of succeeded results in completion order.
	Store *table.Store

	// Outcomes holds one entry per task in batch order.
	Outcomes []Outcome

	// Completion lists task indexes in the order they became terminal.
	Completion []int

	Succeeded int
	Failed    int
	Cancelled int

	// Elapsed is the wall time of the whole dispatch.
	Elapsed time.Duration
}

// Total returns the number of tasks in the batch.
func (r *Result) Total() int {
	return len(r.Outcomes)
}

// Dispatcher runs a task.Batch on a fixed pool of workers.
type Dispatcher struct {
	workers     int
	taskTimeout time.Duration
	columns     []string
	logger      *slog.Logger
}

// DispatchOption configures a Dispatcher.
type DispatchOption func(*Dispatcher)

// WithWorkers sets the pool size. Values below 1 are ignored.
func WithWorkers(n int) DispatchOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTaskTimeout bounds each task's run. Zero disables the limit.
func WithTaskTimeout(timeout time.Duration) DispatchOption {
	return func(d *Dispatcher) {
		d.taskTimeout = timeout
	}
}

// WithColumns seeds the output header so that prior-data columns keep their
// input order ahead of columns discovered in results.
func WithColumns(columns ...string) DispatchOption {
	return func(d *Dispatcher) {
		d.columns = append([]string(nil), columns...)
	}
}

// WithDispatchLogger sets a custom logger for the dispatcher.
func WithDispatchLogger(logger *slog.Logger) DispatchOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher. The default pool size is
// runtime.NumCPU.
func NewDispatcher(opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{
		workers: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Workers returns the configured pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Dispatch runs every task of batch and blocks until all of them are
// terminal. Task failures never abort the batch. When ctx ends, tasks that
// were never handed to a worker are cancelled, running tasks observe the
// cancellation, and the partial Result is returned together with ctx.Err().
//
// Design decision: Tasks are fed through an unbuffered queue instead of
// being pre-loaded into a buffered channel. A send only succeeds when a
// worker is free, so at the moment ctx ends the feeder knows exactly which
// tasks were never handed out and can mark them cancelled itself. Those
// tasks never start a delegate, which keeps an interrupt cheap on large
// batches. The partial Result is still returned because the rows of tasks
// that finished before the interrupt are worth writing.
func (d *Dispatcher) Dispatch(ctx context.Context, batch *task.Batch) (*Result, error) {
	started := time.Now()
	tasks := batch.Tasks()

	result := &Result{
		Store:      table.NewStore(d.columns...),
		Outcomes:   make([]Outcome, len(tasks)),
		Completion: make([]int, 0, len(tasks)),
	}
	if len(tasks) == 0 {
		d.logger.Warn("empty batch", "batch", batch.Name)
		return result, nil
	}

	workers := min(d.workers, len(tasks))
	d.logger.Info("dispatching batch",
		"batch", batch.Name,
		"tasks", len(tasks),
		"workers", workers,
	)

	queue := make(chan int)
	completed := make(chan int, len(tasks))

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				d.runTask(ctx, tasks[i])
				completed <- i
			}
			return nil
		})
	}

	next := 0
feed:
	for ; next < len(tasks); next++ {
		select {
		case queue <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)

	for i := next; i < len(tasks); i++ {
		tasks[i].Cancel()
		completed <- i
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(completed)

	for i := range completed {
		result.Completion = append(result.Completion, i)
		t := tasks[i]
		rows := t.Result()

		result.Outcomes[i] = Outcome{
			Index:   i,
			Label:   t.Label(),
			Status:  t.Status(),
			Reason:  t.Reason(),
			Records: len(rows),
			Origin:  batch.Origin(i),
		}

		switch t.Status() {
		case task.StatusSucceeded:
			result.Succeeded++
			for _, row := range rows {
				result.Store.Append(row)
			}
		case task.StatusCancelled:
			result.Cancelled++
		default:
			result.Failed++
		}
	}

	result.Elapsed = time.Since(started)
	d.logger.Info("batch finished",
		"batch", batch.Name,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"cancelled", result.Cancelled,
		"rows", result.Store.Len(),
		"elapsed", result.Elapsed,
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// runTask runs one task under the per-task timeout and logs its outcome.
func (d *Dispatcher) runTask(ctx context.Context, t task.Runnable) {
	if d.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.taskTimeout)
		defer cancel()
	}

	if err := t.Run(ctx); err != nil {
		d.logger.Warn("task not run", "task", t.Label(), "error", err)
		return
	}

	switch t.Status() {
	case task.StatusSucceeded:
		d.logger.Debug("task succeeded", "task", t.Label(), "records", len(t.Result()))
	case task.StatusCancelled:
		reason := t.Reason()
		if errors.Is(reason, context.DeadlineExceeded) {
			d.logger.Warn("task timed out", "task", t.Label())
			return
		}
		d.logger.Warn("task cancelled", "task", t.Label(), "reason", reason)
	default:
		d.logger.Warn("task failed", "task", t.Label(), "reason", t.Reason())
	}
}
