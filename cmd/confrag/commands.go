package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Grade Command
// =============================================================================

// buildGradeCmd creates the "grade" command that scores a single record.
func buildGradeCmd() *cobra.Command {
	var (
		receivedPath string
		truthPath    string
		output       string
	)
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade one received record against its ground truth",
		Example: `  # Print NMI, answerScore, reasonScore and badPartition
  confrag grade --received out/8.json --truth data/8.json

  # Also write the full result as JSON
  confrag grade --received out/8.json --truth data/8.json --output result.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, receivedPath, truthPath, output)
		},
	}
	cmd.Flags().StringVar(&receivedPath, "received", "", "Path to the received (model output) JSON record")
	cmd.Flags().StringVar(&truthPath, "truth", "", "Path to the ground truth JSON record")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write JSON result to file (optional)")
	cobra.CheckErr(cmd.MarkFlagRequired("received"))
	cobra.CheckErr(cmd.MarkFlagRequired("truth"))
	return cmd
}

// =============================================================================
// Eval Command
// =============================================================================

func buildEvalCmd() *cobra.Command {
	var (
		testSet     string
		output      string
		concurrency int
		stopOnError bool
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Grade every case of a test set",
		Long: `Grade every case of a test set and print a summary.

A test set is a YAML or JSON file listing cases with a truth and a received
path, relative to the test set file. Failed cases are reported and do not stop
the run unless --stop-on-error is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, evalOptions{
				testSet:     testSet,
				output:      output,
				concurrency: concurrency,
				stopOnError: stopOnError,
				save:        save,
			})
		},
	}
	cmd.Flags().StringVar(&testSet, "test-set", "", "Path to evaluation test set (YAML or JSON)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write JSON report to file (optional)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Cases graded in parallel (defaults to grading.concurrency)")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop scheduling cases after the first failure")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the report to the configured store")
	cobra.CheckErr(cmd.MarkFlagRequired("test-set"))
	return cmd
}

// =============================================================================
// Watch and Schedule Commands
// =============================================================================

func buildWatchCmd() *cobra.Command {
	var (
		inbox       string
		truthDir    string
		pattern     string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Grade received records as they appear in an inbox directory",
		Long: `Watch an inbox directory and grade every <name>.json written to it against
<truth-dir>/<name>.json. Each graded record is saved as a single-case report.

Runs until interrupted with SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, inbox, truthDir, pattern, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "Directory to watch for received records (defaults to watch.inbox)")
	cmd.Flags().StringVar(&truthDir, "truth-dir", "", "Directory holding ground truth records (defaults to watch.truth_dir)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob for record file names (defaults to watch.pattern, then *.{json,JSON})")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (defaults to metrics.addr)")
	return cmd
}

func buildScheduleCmd() *cobra.Command {
	var (
		testSet     string
		spec        string
		metricsAddr string
		runNow      bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run a test set on a cron schedule",
		Example: `  # Every night at 02:00
  confrag schedule --test-set sets/dev.yaml --cron "0 2 * * *"

  # Every 15 minutes, starting immediately
  confrag schedule --test-set sets/dev.yaml --cron "@every 15m" --run-now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, testSet, spec, metricsAddr, runNow)
		},
	}
	cmd.Flags().StringVar(&testSet, "test-set", "", "Path to evaluation test set (defaults to schedule.test_set)")
	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression, seconds optional (defaults to schedule.cron)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (defaults to metrics.addr)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")
	return cmd
}

// =============================================================================
// Reports Commands
// =============================================================================

func buildReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect saved evaluation reports",
	}
	cmd.AddCommand(buildReportsListCmd(), buildReportsShowCmd(), buildReportsDeleteCmd())
	return cmd
}

func buildReportsListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsList(cmd, limit, offset)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of reports to list (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of reports to skip")
	return cmd
}

func buildReportsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsShow(cmd, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}

func buildReportsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsDelete(cmd, args[0])
		},
	}
}

// =============================================================================
// Schema Command
// =============================================================================

func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <received|truth|result|config>",
		Short:     "Print the JSON schema of a record type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: schemaKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args[0])
		},
	}
}
