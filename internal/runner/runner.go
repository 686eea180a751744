// Package runner drives evaluations: one-off runs, an inbox watcher that
// grades records as they arrive, and a cron scheduler for recurring runs.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/observability"
	"github.com/haasonsaas/confrag/internal/store"
)

// Runner evaluates test sets and persists their reports.
type Runner struct {
	evaluator *eval.Evaluator
	store     store.Store
	logger    *slog.Logger
}

// New creates a runner. A nil store disables persistence.
func New(evaluator *eval.Evaluator, reports store.Store, logger *slog.Logger) *Runner {
	if evaluator == nil {
		evaluator = eval.NewEvaluator(nil, nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{evaluator: evaluator, store: reports, logger: logger}
}

// Run evaluates set and saves the report. A report is returned alongside a
// case failure error so callers can still inspect it.
func (r *Runner) Run(ctx context.Context, set *eval.TestSet) (*eval.Report, error) {
	report, runErr := r.evaluator.Evaluate(ctx, set)
	if report == nil {
		return nil, runErr
	}
	if r.store != nil {
		if err := r.store.Save(ctx, report); err != nil {
			return report, fmt.Errorf("save report: %w", err)
		}
		r.logger.InfoContext(observability.WithReportID(ctx, report.ID), "report saved",
			"test_set", report.TestSetName,
			"cases", report.Summary.Cases,
		)
	}
	return report, runErr
}

// RunFile loads the test set at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*eval.Report, error) {
	set, err := eval.LoadTestSet(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, set)
}

// GradePair grades a single received record against its ground truth.
func (r *Runner) GradePair(ctx context.Context, id, truthPath, receivedPath string) (*eval.Report, error) {
	return r.Run(ctx, eval.SingleCase(id, truthPath, receivedPath))
}
