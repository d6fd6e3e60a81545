package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/database"
	"github.com/nao1215/flatparser/internal/log"
	"github.com/nao1215/flatparser/internal/model"
	"github.com/nao1215/flatparser/internal/pipeline"
	"github.com/nao1215/flatparser/internal/report"
	"github.com/nao1215/flatparser/internal/sites"
)

// app holds what every command needs once flags and configuration are read.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	logFile *os.File
	started time.Time
}

// newApp loads .env, the configuration file and environment overrides, and
// sets up logging. The caller must call close.
func newApp(cmd *cobra.Command) (*app, error) {
	started := time.Now()

	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(getStringFlag(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	a := &app{
		cfg:     cfg,
		out:     cmd.OutOrStdout(),
		started: started,
	}

	logPath := getStringFlag(cmd, "log-file")
	var file io.Writer
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // user-provided log path
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		file = f
	}

	a.logger = log.NewLogger(cmd.ErrOrStderr(), file, cfg.Verbose)
	slog.SetDefault(a.logger)

	if cfg.ConfigFilePath != "" {
		a.logger.Debug("configuration loaded", "path", cfg.ConfigFilePath)
	}

	return a, nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close() //nolint:errcheck // nothing left to log to
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			a.logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// policy builds the worker sizing policy from the configured divisors.
func (a *app) policy() pipeline.Policy {
	return pipeline.Policy{
		Divisors: map[pipeline.Category]int{
			pipeline.CategoryFlat:     a.cfg.Workers.Flat,
			pipeline.CategoryHouse:    a.cfg.Workers.House,
			pipeline.CategoryLocation: a.cfg.Workers.Location,
		},
	}
}

// defaultOutput returns the configured output path for a parser category.
func (a *app) defaultOutput(category pipeline.Category) string {
	switch category {
	case pipeline.CategoryFlat:
		return a.cfg.Output.Flat
	case pipeline.CategoryHouse:
		return a.cfg.Output.House
	case pipeline.CategoryLocation:
		return a.cfg.Output.Location
	default:
		return ""
	}
}

func (a *app) newFetcher() (*sites.Fetcher, error) {
	fc := a.cfg.Fetch
	return sites.NewFetcher(
		sites.WithTimeout(fc.Timeout),
		sites.WithRetries(fc.Retries),
		sites.WithRate(fc.Rate, fc.Burst),
		sites.WithUserAgent(fc.UserAgent),
		sites.WithProxy(fc.Proxy),
		sites.WithFetcherLogger(a.logger),
	)
}

// recordRun saves run to the ledger. History is best effort: failures are
// logged and never change the command result.
func (a *app) recordRun(ctx context.Context, run *model.RunReport) {
	ctx = context.WithoutCancel(ctx)

	ledger, err := database.Open(a.cfg.DatabaseDir(), database.DefaultOptions())
	if err != nil {
		a.logger.Warn("failed to open run history", "dir", a.cfg.DatabaseDir(), "error", err)
		return
	}
	defer ledger.Close()

	if err := ledger.SaveRun(ctx, run); err != nil {
		a.logger.Warn("failed to save run", "run", run.ID, "error", err)
		return
	}
	a.logger.Debug("run saved", "run", run.ID, "db", ledger.Path())
}

// writeReport renders run in format to the command output, or to path with
// a text summary on the command output. An empty format writes nothing.
func (a *app) writeReport(run *model.RunReport, format, path string) error {
	if format == "" {
		return nil
	}

	if path == "" {
		w, err := report.New(format, a.out, getVersion())
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	fileWriter, err := report.New(format, f, getVersion())
	if err != nil {
		return err
	}
	// The terminal still gets the summary when the report goes to a file.
	_, err = report.NewMultiWriter(report.NewTextWriter(a.out), fileWriter).Write(run)
	return err
}

// finish records and reports run, then prints the elapsed time.
func (a *app) finish(ctx context.Context, cmd *cobra.Command, run *model.RunReport, runErr error) error {
	run.Finish(runErr)
	if errors.Is(runErr, context.Canceled) {
		run.Interrupted = true
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}
	if !noHistory {
		a.recordRun(ctx, run)
	}

	format, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	reportFile, err := cmd.Flags().GetString("report-file")
	if err != nil {
		return err
	}
	if err := a.writeReport(run, format, reportFile); err != nil {
		a.logger.Error("report failed", "run", run.ID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	fmt.Fprintf(a.out, "Completed in %s\n", time.Since(a.started).Round(time.Millisecond))
	return runErr
}

// addRunFlags adds the flags shared by commands that record a run.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("report", "r", "",
		"Write a run report: text, json or md")
	cmd.Flags().String("report-file", "",
		"Write the run report to this file instead of stdout")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
}

// resolveOutput applies the output path precedence: explicit argument,
// then the configured default.
func resolveOutput(arg, configured string) string {
	if arg != "" {
		return arg
	}
	return configured
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag reads a string flag from the command, falling back to the
// root's persistent flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}
