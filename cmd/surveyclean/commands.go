package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"surveyclean/internal/audit"
	"surveyclean/internal/config"
	"surveyclean/internal/header"
	"surveyclean/internal/orchestrator"
	"surveyclean/internal/output"
)

// session bundles what every command needs once flags are applied.
type session struct {
	cfg   *config.Configuration
	out   *output.Output
	audit *audit.Writer
	orch  *orchestrator.Orchestrator
}

func (s *session) Close() {
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.out.Warn("audit: %v", err)
		}
	}
}

// loadConfig reads the configuration file and applies command-line overrides.
func (f *globalFlags) loadConfig() (*config.Configuration, error) {
	var cfg *config.Configuration
	var err error
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultFile)
	}
	if err != nil {
		return nil, err
	}

	if f.strict {
		cfg.Mode = string(header.ModeStrict)
	}
	if f.encoding != "" {
		cfg.Encoding = f.encoding
	}
	return cfg, nil
}

// output writes to the command's streams.
func (f *globalFlags) output(cmd *cobra.Command) *output.Output {
	outCfg := output.DefaultConfig()
	outCfg.Verbose = f.verbose
	outCfg.Writer = cmd.OutOrStdout()
	outCfg.ErrWriter = cmd.ErrOrStderr()
	return output.New(outCfg)
}

// open builds a session. The returned session must be closed.
func (f *globalFlags) open(cmd *cobra.Command) (*session, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, out: f.output(cmd)}

	for _, w := range config.ValidateConfig(cfg).Warnings {
		s.out.Verbose("config: %s: %s", w.Field, w.Message)
	}

	if cfg.Audit != nil && cfg.Audit.Enabled {
		s.audit, err = audit.NewWriter(*cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	s.orch, err = orchestrator.New(cfg, s.out, s.audit)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newRewriteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite [input] [output]",
		Short: "Rewrite the header of one export",
		Long: `Rewrite the header of one export file. Input and output default to the
configured paths (durham_2020_raw.csv and durham_2020_cleaner_headers.csv).

Example: surveyclean rewrite export.csv export_clean.csv --strict`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			input, outputPath := s.cfg.Input, s.cfg.Output
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) > 1 {
				outputPath = args[1]
			}

			summary, err := s.orch.Rewrite(input, outputPath)
			if err != nil {
				return err
			}
			s.out.Info("Wrote %s (%d columns, %d warnings)", outputPath, summary.Results[0].Columns, summary.Warnings)
			return nil
		},
	}
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	var recursive bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Rewrite every export in a directory",
		Long: `Rewrite every .csv file in a directory. Each output is named after its input
with the configured suffix (default _clean); files that already carry the
suffix are skipped.

Example: surveyclean batch ./exports --recursive --out ./cleaned`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if recursive {
				s.cfg.Batch.Recursive = true
			}
			if outDir != "" {
				s.cfg.OutputDirectory = outDir
			}

			summary, err := s.orch.Batch(args[0])
			if err != nil {
				return err
			}
			s.out.Info("%s", summary)
			if summary.HasErrors() {
				return fmt.Errorf("%d of %d files failed", summary.Failed, summary.TotalFiles())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for outputs (default: beside each input)")
	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <dir>",
		Short: "Show what batch would do without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.orch.Status(args[0])
			if err != nil {
				return err
			}
			for _, f := range result.Files {
				switch {
				case f.Err != nil:
					s.out.Info("  %s: %v", f.SourcePath, f.Err)
				case f.Malformed > 0:
					s.out.Info("  %s -> %s (%d columns, %d malformed)", f.SourcePath, f.DestinationPath, f.Columns, f.Malformed)
				default:
					s.out.Info("  %s -> %s (%d columns)", f.SourcePath, f.DestinationPath, f.Columns)
				}
			}
			s.out.Info("%d exports pending in %s", result.Total(), result.Directory)
			return nil
		},
	}
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Rewrite new exports as they arrive in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := s.orch.Watch(ctx, args[0])
			if err != nil {
				return err
			}
			s.out.Info("Rewrote %d files: %d failed, %d skipped (%s)",
				summary.FilesRewritten, summary.FilesFailed, summary.FilesSkipped, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int
	var showStats bool
	var since string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := flags.output(cmd)
			logDir := cfg.Audit.LogDirectory

			if showStats {
				opts := audit.StatsOptions{}
				if since != "" {
					t, err := time.ParseInLocation("2006-01-02", since, time.Local)
					if err != nil {
						return fmt.Errorf("invalid --since date %q (want YYYY-MM-DD)", since)
					}
					opts.Since = &t
				}
				stats, err := audit.AggregateStats(logDir, opts)
				if err != nil {
					return err
				}
				printStats(out, stats)
				return nil
			}

			runs, err := audit.NewReader(logDir).ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				out.Info("No runs recorded in %s", logDir)
				return nil
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}
			for _, run := range runs {
				out.Info("%s  %s  %-7s  %-11s  files=%d rewritten=%d failed=%d warnings=%d",
					run.StartTime.Local().Format("2006-01-02 15:04:05"), run.RunID, run.Command, run.Status,
					run.Summary.TotalFiles, run.Summary.Rewritten, run.Summary.Failed, run.Summary.Warnings)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Show totals across runs instead of the run list")
	cmd.Flags().StringVar(&since, "since", "", "With --stats, only count runs started on or after this date (YYYY-MM-DD)")
	return cmd
}

func printStats(out *output.Output, stats *audit.Stats) {
	if stats.TotalRuns == 0 {
		out.Info("No runs recorded")
		return
	}
	out.Info("Runs:      %d (%d failed)", stats.TotalRuns, stats.FailedRuns)
	out.Info("Period:    %s to %s",
		stats.FirstRun.Local().Format("2006-01-02"), stats.LastRun.Local().Format("2006-01-02"))
	out.Info("Rewritten: %d", stats.FilesRewritten)
	out.Info("Failed:    %d", stats.FilesFailed)
	for _, t := range audit.SortedCounts(stats.ByErrorType) {
		out.Info("  %-22s %d", t, stats.ByErrorType[t])
	}
	out.Info("Warnings:  %d", stats.Warnings)
	for _, r := range audit.SortedCounts(stats.ByReason) {
		out.Info("  %-22s %d", r, stats.ByReason[r])
	}
}

func newRevertCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "revert [run-id]",
		Short: "Remove the outputs written by a run",
		Long: `Remove the output files a run wrote, newest first. An output is only removed
while its content still matches what the run wrote; inputs are never touched.
Without a run ID the most recent run is reverted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := flags.output(cmd)

			var writer *audit.Writer
			if cfg.Audit.Enabled {
				writer, err = audit.NewWriter(*cfg.Audit)
				if err != nil {
					return fmt.Errorf("failed to open audit log: %w", err)
				}
				defer writer.Close()
			}

			reverter := audit.NewReverter(audit.NewReader(cfg.Audit.LogDirectory), writer, orchestrator.AppVersion)
			var result *audit.RevertResult
			if len(args) == 1 {
				result, err = reverter.RevertRun(audit.RunID(args[0]))
			} else {
				result, err = reverter.RevertLatest()
			}
			if err != nil {
				return err
			}

			for _, path := range result.Removed {
				out.Verbose("Removed %s", path)
			}
			for _, skip := range result.Skipped {
				out.Warn("kept %s: %s", skip.Path, skip.Reason)
			}
			for _, err := range result.AuditErrors {
				out.Warn("audit: %v", err)
			}
			out.Info("Reverted run %s: %d removed, %d kept", result.TargetRunID, len(result.Removed), len(result.Skipped))
			return nil
		},
	}
}

func newInitCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				path = config.DefaultFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}
