// Package main provides the CLI entry point for confrag, the grading engine for
// conflict-aware RAG answers.
//
// confrag scores a model's grouped answers against annotated ground truth: how
// well the model partitioned the information sources (soft NMI), how many gold
// answers it hit, and how well its reasons cover the gold reasons.
//
// # Basic Usage
//
// Grade one record:
//
//	confrag grade --received out/8.json --truth data/8.json
//
// Evaluate a test set and keep the report:
//
//	confrag eval --test-set sets/dev.yaml --save
//
// Grade records as they are written:
//
//	confrag watch --inbox out/ --truth-dir data/ --metrics-addr :9090
//
// # Environment Variables
//
//   - CONFRAG_CONFIG: Path to configuration file (used when --config is not set)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/confrag/internal/observability"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// Global flags shared by every subcommand.
var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	slog.SetDefault(observability.NewLogger(observability.LogConfig{Level: "info", Format: "auto"}))

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "confrag",
		Short: "confrag - grading engine for conflict-aware RAG answers",
		Long: `confrag grades grouped model answers against annotated ground truth.

Each graded record yields:
  NMI           soft normalized mutual information of the source grouping
  answerScore   fraction of gold answers matched by a candidate answer
  reasonScore   normalized coverage of gold reasons by candidate reasons
  badPartition  Normal, Duplicate Elements, Extra Elements or Missing Elements`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML, JSON or JSON5; or set CONFRAG_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override: json, text, auto")

	rootCmd.AddCommand(
		buildGradeCmd(),
		buildEvalCmd(),
		buildWatchCmd(),
		buildScheduleCmd(),
		buildReportsCmd(),
		buildSchemaCmd(),
	)
	return rootCmd
}
