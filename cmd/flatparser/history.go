package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/flatparser/internal/database"
	"github.com/nao1215/flatparser/internal/report"
	"github.com/nao1215/flatparser/internal/table"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run",
		Long: `History lists the runs recorded in the history database, newest first.

With a run id (or a unique prefix of one) it shows the run with the tasks
that failed or were cancelled and the reason for each.

With --row it looks up an input row instead: every stored task outcome whose
originating row has exactly these columns and values is listed, newest run
first. Use it to see why an address never produced a record.

Examples:
  # List the last 20 runs
  flatparser history

  # List domaekb runs only
  flatparser history --parser domaekb

  # Show one run with every task as Markdown
  flatparser history 0f8c2d3a --all --format md

  # Show every outcome recorded for one input row
  flatparser history --row address="Lenina 1",price=100`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("parser", "p", "", "Only list runs of this parser")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 for all)")
	cmd.Flags().StringP("format", "f", report.FormatText, "Output format: text, json or md")
	cmd.Flags().BoolP("all", "a", false, "Show succeeded tasks too (text format)")
	cmd.Flags().StringToString("row", nil, "Show the outcomes recorded for the input row with these column=value pairs")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	parser, err := cmd.Flags().GetString("parser")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	row, err := cmd.Flags().GetStringToString("row")
	if err != nil {
		return err
	}
	if len(row) > 0 && len(args) > 0 {
		return errors.New("--row cannot be combined with a run id")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ledger, err := database.Open(a.cfg.DatabaseDir(), database.DefaultOptions())
	if err != nil {
		return err
	}
	defer ledger.Close()

	w, err := historyWriter(a.out, format, all)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if len(row) > 0 {
		outcomes, err := ledger.FindOutcomesByRow(ctx, table.Row(row))
		if err != nil {
			return err
		}
		_, err = w.WriteRowHistory(outcomes)
		return err
	}
	if len(args) == 1 {
		run, err := ledger.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	runs, err := ledger.ListRuns(ctx, parser, limit)
	if err != nil {
		return err
	}
	_, err = w.WriteHistory(runs)
	return err
}

// historyWriter returns the writer for format. all only affects text output.
func historyWriter(out io.Writer, format string, all bool) (report.Writer, error) {
	if format == report.FormatText {
		return report.NewTextWriter(out, report.WithAllOutcomes(all)), nil
	}
	return report.New(format, out, getVersion())
}
