package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/confrag/internal/dataset"
	"github.com/haasonsaas/confrag/internal/grading"
	"github.com/haasonsaas/confrag/internal/observability"
)

// ErrCaseFailed is returned by Evaluate when StopOnError is set and a case fails.
var ErrCaseFailed = errors.New("eval: case failed")

// Case failure stages.
const (
	StageLoad  = "load"
	StageParse = "parse"
	StageGrade = "grade"
)

// RecordLoader reads the two record files of a case.
type RecordLoader interface {
	ReadTruth(path string) (*grading.GroundTruth, error)
	ReadReceived(path string) (*grading.Received, error)
}

// Options controls evaluation behavior.
type Options struct {
	// Concurrency is the number of cases graded in parallel (default 1).
	Concurrency int
	// StopOnError stops scheduling cases after the first failure.
	StopOnError bool

	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
	Progress func(completed, total int)
}

// Evaluator grades every case of a test set.
type Evaluator struct {
	grader  *grading.Grader
	loader  RecordLoader
	options Options
}

// NewEvaluator creates a new evaluator. A nil grader or loader gets the defaults.
func NewEvaluator(grader *grading.Grader, loader RecordLoader, opts *Options) *Evaluator {
	resolved := Options{Concurrency: 1}
	if opts != nil {
		resolved = *opts
		if resolved.Concurrency <= 0 {
			resolved.Concurrency = 1
		}
	}
	if resolved.Logger == nil {
		resolved.Logger = slog.Default()
	}
	if grader == nil {
		grader = grading.NewGrader(nil)
	}
	if loader == nil {
		loader = dataset.NewLoader(true)
	}
	return &Evaluator{grader: grader, loader: loader, options: resolved}
}

// Evaluate runs the evaluation and returns a report. Case failures are
// recorded on the case; with StopOnError the partial report is returned
// together with an error wrapping ErrCaseFailed. Cancelling ctx stops
// scheduling and returns ctx.Err().
func (e *Evaluator) Evaluate(ctx context.Context, set *TestSet) (*Report, error) {
	if set == nil {
		return nil, fmt.Errorf("test set is nil")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: start.UTC(),
		TestSetName: set.Name,
	}
	ctx = observability.WithReportID(ctx, report.ID)
	ctx, span := e.options.Tracer.Start(ctx, "eval.run", "test_set", set.Name, "cases", len(set.Cases))
	defer span.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]CaseResult, len(set.Cases))
	sem := make(chan struct{}, e.options.Concurrency)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		firstErr  error
	)

	scheduled := 0
schedule:
	for i, tc := range set.Cases {
		select {
		case <-runCtx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		// A slot may free up in the same instant the run is cancelled.
		if runCtx.Err() != nil {
			<-sem
			break
		}
		scheduled = i + 1
		wg.Add(1)
		go func(index int, tc TestCase) {
			defer wg.Done()
			defer func() { <-sem }()

			result := e.evaluateCase(runCtx, set, tc)
			results[index] = result

			mu.Lock()
			defer mu.Unlock()
			completed++
			if result.Error != "" && firstErr == nil {
				firstErr = fmt.Errorf("%w: %s: %s", ErrCaseFailed, tc.ID, result.Error)
				if e.options.StopOnError {
					cancel()
				}
			}
			if e.options.Progress != nil {
				e.options.Progress(completed, len(set.Cases))
			}
		}(i, tc)
	}
	wg.Wait()

	for i := scheduled; i < len(set.Cases); i++ {
		results[i] = CaseResult{
			CaseID:   set.Cases[i].ID,
			Truth:    set.Resolve(set.Cases[i].Truth),
			Received: set.Resolve(set.Cases[i].Received),
			Skipped:  true,
		}
	}

	report.Cases = results
	report.Summary = summarize(results)

	status := "success"
	defer func() {
		e.options.Metrics.RecordEvaluation(status, time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		status = "error"
		e.options.Tracer.RecordError(span, err)
		return nil, err
	}
	e.options.Tracer.SetAttributes(span,
		"graded", report.Summary.Graded,
		"failed", report.Summary.Failed,
		"avg_nmi", report.Summary.AvgNMI,
	)
	e.options.Logger.InfoContext(ctx, "evaluation finished",
		"test_set", set.Name,
		"graded", report.Summary.Graded,
		"failed", report.Summary.Failed,
		"skipped", report.Summary.Skipped,
		"duration", time.Since(start),
	)
	if e.options.StopOnError && firstErr != nil {
		status = "error"
		e.options.Tracer.RecordError(span, firstErr)
		return report, firstErr
	}
	return report, nil
}

func (e *Evaluator) evaluateCase(ctx context.Context, set *TestSet, tc TestCase) CaseResult {
	start := time.Now()
	ctx = observability.WithCaseID(ctx, tc.ID)
	ctx, span := e.options.Tracer.Start(ctx, "eval.case", "case_id", tc.ID)
	defer span.End()

	result := CaseResult{
		CaseID:   tc.ID,
		Truth:    set.Resolve(tc.Truth),
		Received: set.Resolve(tc.Received),
	}
	fail := func(stage string, err error) CaseResult {
		result.Stage = stage
		result.Error = err.Error()
		result.Duration = time.Since(start)
		e.options.Metrics.RecordCaseError(stage)
		e.options.Tracer.RecordError(span, err)
		e.options.Logger.WarnContext(ctx, "case failed", "stage", stage, "error", err)
		return result
	}

	truth, err := e.loader.ReadTruth(result.Truth)
	if err != nil {
		return fail(classify(err), err)
	}
	received, err := e.loader.ReadReceived(result.Received)
	if err != nil {
		return fail(classify(err), err)
	}

	var graded *grading.Result
	err = observability.WithSpan(ctx, e.options.Tracer, "eval.grade", func(context.Context, trace.Span) error {
		var gradeErr error
		graded, gradeErr = e.grader.Grade(received, truth)
		return gradeErr
	})
	if err != nil {
		return fail(StageGrade, err)
	}
	result.Result = graded
	result.Duration = time.Since(start)

	e.options.Metrics.RecordGrade(graded.BadPartition.String(), graded.NMI, graded.AnswerScore, graded.ReasonScore, result.Duration.Seconds())
	e.options.Tracer.SetAttributes(span,
		"partition", graded.BadPartition.String(),
		"nmi", graded.NMI,
		"answer_score", graded.AnswerScore,
		"reason_score", graded.ReasonScore,
	)
	e.options.Logger.DebugContext(ctx, "case graded",
		"partition", graded.BadPartition.String(),
		"nmi", graded.NMI,
		"answer_score", graded.AnswerScore,
		"reason_score", graded.ReasonScore,
	)
	return result
}

func classify(err error) string {
	if errors.Is(err, dataset.ErrInvalidRecord) || errors.Is(err, grading.ErrStructuralFormat) {
		return StageParse
	}
	return StageLoad
}
