package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/flatparser/internal/table"
)

// Column names handled by the cleaner rules.
const (
	ColumnPrice      = "price"
	ColumnFloors     = "floors"
	ColumnFloor      = "floor"
	ColumnFloorCount = "floor_count"
)

// Rule names accepted by CleanRules.
const (
	RulePrice  = "price"
	RuleFloors = "floors"
)

// DefaultCleanRules lists the rules run when none are configured.
var DefaultCleanRules = []string{RulePrice, RuleFloors}

// Rule is one independent cleaning step.
type Rule interface {
	Name() string
	Apply(ctx context.Context, store *table.Store) error
}

// PriceRule removes the thousands separator from the price column,
// turning "3.500.000" into "3500000".
type PriceRule struct {
	// Separator is the character removed from prices.
	Separator string
}

// Name returns the rule name.
func (r PriceRule) Name() string {
	return RulePrice
}

// Apply rewrites price in every row that has one.
func (r PriceRule) Apply(ctx context.Context, store *table.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sep := r.Separator
	if sep == "" {
		sep = "."
	}
	for _, row := range store.Rows {
		if price, ok := row[ColumnPrice]; ok {
			row[ColumnPrice] = strings.ReplaceAll(price, sep, "")
		}
	}
	return nil
}

// FloorsRule splits "<floor>/<total>" into the floor and floor_count
// columns and drops the floors column.
type FloorsRule struct {
	logger *slog.Logger

	// optional skips the rule with a warning when floors is missing.
	// CleanRules sets it for the default rule list.
	optional bool
}

// Name returns the rule name.
func (r FloorsRule) Name() string {
	return RuleFloors
}

// Apply decomposes floors for every row. A row whose value has no "/"
// gains no new cells but still loses floors. The store must declare the
// floors column; otherwise ErrSchemaMismatch is returned and nothing changes.
// A rule from the default list logs a warning and leaves the store as is.
func (r FloorsRule) Apply(ctx context.Context, store *table.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	if !store.Columns.Has(ColumnFloors) {
		if r.optional {
			logger.Warn("skipping cleaner rule", "rule", RuleFloors, "missing_column", ColumnFloors)
			return nil
		}
		return fmt.Errorf("%w: rule %q requires column %q", ErrSchemaMismatch, RuleFloors, ColumnFloors)
	}

	split := false
	for i, row := range store.Rows {
		floors, ok := row[ColumnFloors]
		if !ok {
			continue
		}
		delete(row, ColumnFloors)

		parts := strings.Split(floors, "/")
		if len(parts) < 2 {
			logger.Debug("floors value has no separator", "row", i, "value", floors)
			continue
		}
		row[ColumnFloor] = strings.TrimSpace(parts[0])
		row[ColumnFloorCount] = strings.TrimSpace(parts[1])
		split = true
	}

	if split {
		store.Columns.Add(ColumnFloor, ColumnFloorCount)
	}
	store.Columns.Remove(ColumnFloors)
	return nil
}

// RuleOption configures rules built by CleanRules.
type RuleOption func(*ruleOptions)

type ruleOptions struct {
	logger *slog.Logger
}

// WithRuleLogger sets the logger passed to rules that log.
func WithRuleLogger(logger *slog.Logger) RuleOption {
	return func(o *ruleOptions) {
		o.logger = logger
	}
}

// CleanRules builds the named rules in the given order. An empty list
// selects DefaultCleanRules, whose rules skip inputs that lack their column
// instead of failing.
func CleanRules(names []string, opts ...RuleOption) ([]Rule, error) {
	o := &ruleOptions{}
	for _, opt := range opts {
		opt(o)
	}
	defaults := len(names) == 0
	if defaults {
		names = DefaultCleanRules
	}

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case RulePrice:
			rules = append(rules, PriceRule{})
		case RuleFloors:
			rules = append(rules, FloorsRule{logger: o.logger, optional: defaults})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownRule, name)
		}
	}
	return rules, nil
}
