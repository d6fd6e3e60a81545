package task

import (
	"fmt"
	"strings"

	"github.com/nao1215/flatparser/internal/table"
)

// DefaultAddressColumn is the prior-data column read by FromAddresses.
const DefaultAddressColumn = "address"

// FromAddresses creates one task per row labelled by the row's address
// column. Rows without an address are labelled by position so that every
// row still yields exactly one task.
func FromAddresses(rows []table.Row, column string, work Work) []*Task {
	if column == "" {
		column = DefaultAddressColumn
	}
	tasks := make([]*Task, len(rows))
	for i, row := range rows {
		label := strings.TrimSpace(row[column])
		if label == "" {
			label = fmt.Sprintf("row-%d", i+1)
		}
		t := New(label, row, work)
		t.index = i
		tasks[i] = t
	}
	return tasks
}

// WithPrevData creates one task per row labelled "<name>-<n>".
func WithPrevData(name string, rows []table.Row, work Work) []*Task {
	tasks := make([]*Task, len(rows))
	for i, row := range rows {
		t := New(fmt.Sprintf("%s-%d", name, i+1), row, work)
		t.index = i
		tasks[i] = t
	}
	return tasks
}

// FromSeeds creates discovery tasks, one per seed configuration row such as
// {"url": ..., "page": "2"}.
func FromSeeds(name string, seeds []table.Row, work Work) []*Task {
	return WithPrevData(name, seeds, work)
}
