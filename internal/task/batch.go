package task

import "github.com/nao1215/flatparser/internal/table"

// Batch is an ordered group of tasks created together from one input.
type Batch struct {
	// Name identifies the batch, usually the parser name.
	Name string

	items   []Runnable
	origins []table.Row
}

// NewBatch groups tasks in the given order and records each task's
// originating row.
func NewBatch[T Runnable](name string, tasks []T) *Batch {
	b := &Batch{
		Name:    name,
		items:   make([]Runnable, len(tasks)),
		origins: make([]table.Row, len(tasks)),
	}
	for i, t := range tasks {
		b.items[i] = t
		if p, ok := any(t).(interface{ Prev() table.Row }); ok {
			b.origins[i] = p.Prev()
		}
	}
	return b
}

// Len returns the number of tasks.
func (b *Batch) Len() int {
	return len(b.items)
}

// Tasks returns the tasks in creation order.
func (b *Batch) Tasks() []Runnable {
	out := make([]Runnable, len(b.items))
	copy(out, b.items)
	return out
}

// Origin returns the row task i was created from, or nil for seed tasks
// and Runnables that do not expose one.
func (b *Batch) Origin(i int) table.Row {
	if i < 0 || i >= len(b.origins) {
		return nil
	}
	return b.origins[i].Clone()
}
