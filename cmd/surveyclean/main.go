// Package main provides the CLI entry point for surveyclean.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	strict     bool
	encoding   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "surveyclean",
		Short: "Normalize the header row of survey export CSV files",
		Long: `surveyclean rewrites the header row of a comma-separated survey export into
lowercase, dot-joined column names and copies every other byte unchanged.

  "Q12[01] Which item do you prefer?" -> "which.item.do.you.prefer.12.01"
  "Q7 How satisfied are you?"         -> "how.satisfied.are.you.7"
  "Start Date/Time (UTC)"             -> "start.datetime.utc"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Configuration file (default .surveyclean.json if present)")
	rootCmd.PersistentFlags().BoolVar(&flags.strict, "strict", false, "Fail on any malformed question column instead of warning")
	rootCmd.PersistentFlags().StringVar(&flags.encoding, "encoding", "", "Header encoding: utf-8, latin1, windows-1252")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Print a line for every file")

	rootCmd.AddCommand(
		newRewriteCmd(flags),
		newBatchCmd(flags),
		newStatusCmd(flags),
		newWatchCmd(flags),
		newHistoryCmd(flags),
		newRevertCmd(flags),
		newInitCmd(flags),
	)

	return rootCmd
}
