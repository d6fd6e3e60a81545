package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/flatparser/internal/model"
	"github.com/nao1215/flatparser/internal/pipeline"
	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/transform"
)

// NewBinarizeCmd creates the binarize command.
func NewBinarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binarize <input> [output]",
		Short: "Expand categorical columns into 0/1 columns",
		Long: `Binarize turns every distinct value of the selected columns into a column
of its own. A row gets 1 in the columns of its values and 0 everywhere else.

Columns come from --vars or from the binarize list of the configuration
file. The output path is [output], then output.data_mod, then the input
path with a _binarized suffix.

Examples:
  flatparser binarize houses.csv
  flatparser binarize houses.csv --vars house_type,foundation_type`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runBinarizeCmd,
	}

	cmd.Flags().StringSlice("vars", nil,
		"Columns to binarize (default: binarize from the configuration)")
	addRunFlags(cmd)

	return cmd
}

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <input> [output]",
		Short: "Normalize prices and split floors",
		Long: `Clean runs the cleaner rules on a CSV file:
  price   removes thousands separators ("3.500.000" becomes "3500000")
  floors  splits "3/9" into floor and floor_count and drops floors

Rules come from --rules or clean_rules in the configuration file; all rules
run when neither is set, and then floors is skipped for files without a
floors column. An input without rows is written back unchanged. The output path is [output], then output.data_mod,
then the input path with a _cleaned suffix.

Examples:
  flatparser clean flats.csv
  flatparser clean flats.csv --rules price`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCleanCmd,
	}

	cmd.Flags().StringSlice("rules", nil,
		"Cleaner rules to run in order (default: clean_rules from the configuration)")
	addRunFlags(cmd)

	return cmd
}

func runBinarizeCmd(cmd *cobra.Command, args []string) error {
	vars, err := cmd.Flags().GetStringSlice("vars")
	if err != nil {
		return err
	}
	return runModifyCmd(cmd, args, model.OperationBinarize, table.ModeBinarized,
		func(a *app) ([]pipeline.Step, error) {
			if len(vars) == 0 {
				vars = a.cfg.Binarize
			}
			return []pipeline.Step{
				transform.NewBinarizer(vars, transform.WithBinarizerLogger(a.logger)),
			}, nil
		})
}

func runCleanCmd(cmd *cobra.Command, args []string) error {
	names, err := cmd.Flags().GetStringSlice("rules")
	if err != nil {
		return err
	}
	return runModifyCmd(cmd, args, model.OperationClean, table.ModeCleaned,
		func(a *app) ([]pipeline.Step, error) {
			if len(names) == 0 {
				names = a.cfg.CleanRules
			}
			rules, err := transform.CleanRules(names, transform.WithRuleLogger(a.logger))
			if err != nil {
				return nil, err
			}
			steps := make([]pipeline.Step, len(rules))
			for i, r := range rules {
				steps[i] = r
			}
			return steps, nil
		})
}

// runModifyCmd loads the input, runs the steps and writes the result in mode.
func runModifyCmd(cmd *cobra.Command, args []string, op model.Operation, mode table.Mode, build func(*app) ([]pipeline.Step, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	steps, err := build(a)
	if err != nil {
		return err
	}

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	run := model.NewRunReport(op, string(op))
	run.Input = args[0]

	var output string
	if len(args) > 1 {
		output = args[1]
	}
	err = a.modify(ctx, run, output, mode, steps)
	return a.finish(ctx, cmd, run, err)
}

func (a *app) modify(ctx context.Context, run *model.RunReport, output string, mode table.Mode, steps []pipeline.Step) error {
	store, err := table.Load(run.Input, table.WithLoadLogger(a.logger))
	if err != nil {
		return err
	}
	if store.Empty() {
		// Nothing to modify: write the header (if any) as it is.
		a.logger.Warn("input has no rows, skipping data modifier", "path", run.Input)
	} else {
		p := pipeline.New(pipeline.WithLogger(a.logger))
		p.AddSteps(steps...)
		a.logger.Debug("running data modifier", "operation", run.Operation, "steps", p.StepNames())
		if err := p.Execute(ctx, store); err != nil {
			return err
		}
	}

	// An empty path is derived from the input path and mode.
	path, err := store.Write(resolveOutput(output, a.cfg.Output.DataMod), mode)
	if err != nil {
		return err
	}
	run.Output = path
	run.Rows = store.Len()

	fmt.Fprintf(a.out, "%s: %d row(s), %d column(s) written to %s\n",
		run.Operation, store.Len(), store.Columns.Len(), path)
	return nil
}
