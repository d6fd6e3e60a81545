package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/flatparser/internal/pipeline"
)

// NewRootCmd creates the root command for flatparser.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatparser",
		Short: "Harvest real-estate listings and post-process them as CSV",
		Long: `flatparser harvests real-estate listings, house details and coordinates
from external sites into CSV files, and normalizes those files.

Parsers run one task per listing page or per input row on a bounded worker
pool. Failed rows are left out of the output and recorded in the run history.

Configuration is read from --config, ./.flatparser,
$XDG_CONFIG_HOME/flatparser/config.yaml or ~/.flatparser.
Run 'flatparser init' to create a commented configuration file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .flatparser in current or home directory)")
	cmd.PersistentFlags().String("log-file", "",
		"Also write warnings and errors to this file")

	cmd.AddCommand(NewScrapeCmd(""))
	cmd.AddCommand(NewScrapeCmd(pipeline.CategoryFlat))
	cmd.AddCommand(NewScrapeCmd(pipeline.CategoryHouse))
	cmd.AddCommand(NewScrapeCmd(pipeline.CategoryLocation))
	cmd.AddCommand(NewBinarizeCmd())
	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
