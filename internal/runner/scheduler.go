package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/confrag/internal/eval"
)

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler re-runs a test set on a cron schedule.
type Scheduler struct {
	runner      *Runner
	testSetPath string
	expression  string
	schedule    cron.Schedule
	logger      *slog.Logger
	onReport    func(*eval.Report)
}

// NewScheduler parses expr and returns a scheduler for the test set at path.
// Expressions accept an optional seconds field and descriptors like @hourly.
func NewScheduler(runner *Runner, expr, testSetPath string, logger *slog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("cron expression is required")
	}
	if strings.TrimSpace(testSetPath) == "" {
		return nil, fmt.Errorf("test set path is required")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:      runner,
		testSetPath: testSetPath,
		expression:  expr,
		schedule:    schedule,
		logger:      logger,
	}, nil
}

// OnReport registers a callback invoked after every run.
func (s *Scheduler) OnReport(fn func(*eval.Report)) {
	s.onReport = fn
}

// Next returns the next run time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now)
}

// RunOnce loads the test set and evaluates it. The file is re-read on every
// run so edits between runs take effect.
func (s *Scheduler) RunOnce(ctx context.Context) (*eval.Report, error) {
	report, err := s.runner.RunFile(ctx, s.testSetPath)
	if err != nil {
		s.logger.Error("scheduled run failed", "test_set", s.testSetPath, "error", err)
	} else {
		s.logger.Info("scheduled run finished",
			"report_id", report.ID,
			"graded", report.Summary.Graded,
			"failed", report.Summary.Failed,
			"next", s.Next(time.Now()),
		)
	}
	if report != nil && s.onReport != nil {
		s.onReport(report)
	}
	return report, err
}

// Run blocks until ctx is cancelled, running the test set on schedule.
// Overlapping runs are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_, _ = s.RunOnce(ctx)
	}))
	s.logger.Info("scheduler started", "cron", s.expression, "test_set", s.testSetPath, "next", s.Next(time.Now()))
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}
