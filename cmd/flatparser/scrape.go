package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/flatparser/internal/model"
	"github.com/nao1215/flatparser/internal/pipeline"
	"github.com/nao1215/flatparser/internal/sites"
	"github.com/nao1215/flatparser/internal/table"
)

// scrapeCommand describes the command generated for one parser category.
type scrapeCommand struct {
	use   string
	short string
	args  cobra.PositionalArgs
}

var scrapeCommands = map[pipeline.Category]scrapeCommand{
	"": {
		use:   "scrape <parser> [input] [output]",
		short: "Run any parser by name",
		args:  cobra.RangeArgs(1, 3),
	},
	pipeline.CategoryFlat: {
		use:   "flat <parser> [output]",
		short: "Collect listings from listing pages",
		args:  cobra.RangeArgs(1, 2),
	},
	pipeline.CategoryHouse: {
		use:   "house <parser> <input> [output]",
		short: "Add house details to address rows",
		args:  cobra.RangeArgs(2, 3),
	},
	pipeline.CategoryLocation: {
		use:   "location <parser> <input> [output]",
		short: "Add coordinates to address rows",
		args:  cobra.RangeArgs(2, 3),
	},
}

// NewScrapeCmd creates the command running the parsers of category. The
// empty category accepts every parser.
func NewScrapeCmd(category pipeline.Category) *cobra.Command {
	spec := scrapeCommands[category]
	names := sites.Names(category)

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Long: spec.short + `.

Parsers: ` + strings.Join(names, ", ") + `

Listing parsers (avito, youla, upn) visit page_count pages of the configured
search URL and write one row per listing. House parsers (domaekb) run one
task per input row and merge the scraped details into it. Location parsers
(google_maps) add latitude and longitude to each input row.

Rows whose task fails are left out of the output and recorded in the run
history together with the failure reason.

The output path is the [output] argument, or output.flat, output.house or
output.location from the configuration file.

Examples:
  flatparser flat avito flats.csv
  flatparser house domaekb flats.csv houses.csv
  flatparser location google_maps houses.csv located.csv -r md --report-file run.md`,
		Args:      spec.args,
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrapeCmd(cmd, category, args)
		},
	}

	cmd.Flags().IntP("workers", "w", 0,
		"Number of workers (default: CPU count divided by the category divisor)")
	cmd.Flags().DurationP("task-timeout", "t", 0,
		"Timeout for one task (default: task_timeout from the configuration)")
	addRunFlags(cmd)

	return cmd
}

// scrapeArgs are the positional arguments of a scrape command.
type scrapeArgs struct {
	parser sites.Parser
	input  string
	output string
}

func parseScrapeArgs(category pipeline.Category, args []string) (scrapeArgs, error) {
	parser, err := sites.Lookup(args[0])
	if err != nil {
		return scrapeArgs{}, err
	}
	if category != "" && parser.Category != category {
		return scrapeArgs{}, fmt.Errorf("%s is a %s parser, use 'flatparser %s'", parser.Name, parser.Category, parser.Category)
	}

	sa := scrapeArgs{parser: parser}
	rest := args[1:]
	if parser.NeedsInput() {
		if len(rest) == 0 {
			return scrapeArgs{}, fmt.Errorf("parser %s needs an input file", parser.Name)
		}
		sa.input, rest = rest[0], rest[1:]
	}
	switch len(rest) {
	case 0:
	case 1:
		sa.output = rest[0]
	default:
		return scrapeArgs{}, fmt.Errorf("too many arguments for parser %s", parser.Name)
	}
	return sa, nil
}

func runScrapeCmd(cmd *cobra.Command, category pipeline.Category, args []string) error {
	sa, err := parseScrapeArgs(category, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = a.policy().Workers(sa.parser.Category)
	}
	timeout, err := cmd.Flags().GetDuration("task-timeout")
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = a.cfg.TaskTimeout
	}

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	run := model.NewRunReport(model.OperationScrape, sa.parser.Name)
	run.Input = sa.input
	run.Workers = workers

	err = a.scrape(ctx, sa, run,
		pipeline.WithWorkers(workers),
		pipeline.WithTaskTimeout(timeout),
		pipeline.WithDispatchLogger(a.logger),
	)
	return a.finish(ctx, cmd, run, err)
}

// scrape runs one parser and writes its output. The counters of run are
// filled even when the context ends during the dispatch.
func (a *app) scrape(ctx context.Context, sa scrapeArgs, run *model.RunReport, opts ...pipeline.DispatchOption) error {
	site, err := a.cfg.Site(sa.parser.Name)
	if err != nil {
		return err
	}

	output := resolveOutput(sa.output, a.defaultOutput(sa.parser.Category))
	if output == "" {
		return fmt.Errorf("%s: %w (set output.%s in the configuration file)",
			sa.parser.Name, table.ErrNoOutputPath, sa.parser.Category)
	}

	var rows []table.Row
	if sa.parser.NeedsInput() {
		input, err := table.Load(sa.input, table.WithLoadLogger(a.logger))
		if err != nil {
			return err
		}
		if input.Empty() {
			a.logger.Warn("input has no rows", "path", sa.input)
		}
		rows = input.Rows
		// Output keeps the input column order; scraped columns follow.
		opts = append(opts, pipeline.WithColumns(input.Columns.Names()...))
	}
	dispatcher := pipeline.NewDispatcher(opts...)

	fetcher, err := a.newFetcher()
	if err != nil {
		return err
	}
	batch, err := sa.parser.Batch(site, fetcher, rows, sites.WithLogger(a.logger))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Running %s: %d task(s) on up to %d worker(s)...\n",
		sa.parser.Name, batch.Len(), dispatcher.Workers())

	result, dispatchErr := dispatcher.Dispatch(ctx, batch)
	if result == nil {
		return dispatchErr
	}
	fillRun(run, result)

	// Every task is terminal here, so a partial result is still written.
	path, err := result.Store.Write(output, table.ModePlain)
	if err != nil {
		return errors.Join(dispatchErr, err)
	}
	run.Output = path
	run.Rows = result.Store.Len()

	fmt.Fprintf(a.out, "%s: %d of %d task(s) succeeded, %d row(s) written to %s\n",
		sa.parser.Name, result.Succeeded, result.Total(), run.Rows, path)
	if result.Failed > 0 || result.Cancelled > 0 {
		fmt.Fprintf(a.out, "%d task(s) failed and %d were cancelled; see 'flatparser history %s'\n",
			result.Failed, result.Cancelled, run.ID.String()[:8])
	}

	return dispatchErr
}

// fillRun copies the dispatch counters and outcomes into run.
func fillRun(run *model.RunReport, result *pipeline.Result) {
	run.Total = result.Total()
	run.Succeeded = result.Succeeded
	run.Failed = result.Failed
	run.Cancelled = result.Cancelled

	run.Outcomes = make([]model.TaskOutcome, len(result.Outcomes))
	for i, o := range result.Outcomes {
		var reason string
		if o.Reason != nil {
			reason = o.Reason.Error()
		}
		run.Outcomes[i] = model.TaskOutcome{
			Index:   o.Index,
			Label:   o.Label,
			Status:  o.Status.String(),
			Reason:  reason,
			Records: o.Records,
			Origin:  o.Origin,
		}
	}
}
