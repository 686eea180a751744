package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/confrag/internal/config"
	"github.com/haasonsaas/confrag/internal/dataset"
	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/grading"
	"github.com/haasonsaas/confrag/internal/observability"
	"github.com/haasonsaas/confrag/internal/runner"
	"github.com/haasonsaas/confrag/internal/store"
)

// =============================================================================
// Shared Setup
// =============================================================================

// environment carries what every handler builds from the configuration.
type environment struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	shutdown func(context.Context) error
}

func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv("CONFRAG_CONFIG"))
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	env := &environment{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
		shutdown: func(context.Context) error { return nil },
	}
	if cfg.Tracing.Enabled {
		env.tracer, env.shutdown = observability.NewTracer(observability.TraceConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: firstNonEmpty(cfg.Tracing.ServiceVersion, version),
			Environment:    cfg.Tracing.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			SamplingRate:   cfg.Tracing.SamplingRate,
			Attributes:     cfg.Tracing.Attributes,
			EnableInsecure: cfg.Tracing.Insecure,
		})
	}
	return env, nil
}

func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.shutdown(ctx); err != nil {
		e.logger.Warn("tracer shutdown failed", "error", err)
	}
}

func (e *environment) evaluator(concurrency int, stopOnError bool) *eval.Evaluator {
	if concurrency <= 0 {
		concurrency = e.cfg.Grading.Concurrency
	}
	return eval.NewEvaluator(
		grading.NewGrader(grading.NewMatcher(e.cfg.Grading.MemoCapacity)),
		dataset.NewLoader(e.cfg.SchemaValidation()),
		&eval.Options{
			Concurrency: concurrency,
			StopOnError: stopOnError || e.cfg.Grading.StopOnError,
			Logger:      e.logger,
			Metrics:     e.metrics,
			Tracer:      e.tracer,
		},
	)
}

func (e *environment) openStore() (store.Store, error) {
	reports, err := store.Open(e.cfg.Store, e.metrics)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return reports, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeJSONFile(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// serveMetrics exposes the registry over HTTP until ctx is cancelled.
func (e *environment) serveMetrics(ctx context.Context, addr string) error {
	addr = firstNonEmpty(addr, e.cfg.Metrics.Addr)
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(e.cfg.Metrics.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	e.logger.Info("serving metrics", "addr", listener.Addr().String(), "path", e.cfg.Metrics.Path)
	return nil
}

// =============================================================================
// Grade and Eval Handlers
// =============================================================================

func runGrade(cmd *cobra.Command, receivedPath, truthPath, output string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := runner.New(env.evaluator(1, false), nil, env.logger).
		GradePair(cmd.Context(), "grade", truthPath, receivedPath)
	if err != nil {
		return err
	}
	c := report.Cases[0]
	if c.Result == nil {
		return fmt.Errorf("grade %s: %s", receivedPath, c.Error)
	}

	if output != "" {
		if err := writeJSONFile(output, c.Result); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	eval.WriteResult(out, c.Result)
	if output != "" {
		fmt.Fprintf(out, "Result written to %s\n", output)
	}
	return nil
}

type evalOptions struct {
	testSet     string
	output      string
	concurrency int
	stopOnError bool
	save        bool
}

func runEval(cmd *cobra.Command, opts evalOptions) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	var reports store.Store
	if opts.save {
		reports, err = env.openStore()
		if err != nil {
			return err
		}
		defer reports.Close()
	}

	report, runErr := runner.New(env.evaluator(opts.concurrency, opts.stopOnError), reports, env.logger).
		RunFile(cmd.Context(), opts.testSet)
	if report == nil {
		return runErr
	}

	if opts.output != "" {
		if err := writeJSONFile(opts.output, report); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	eval.WriteSummary(out, report)
	if opts.output != "" {
		fmt.Fprintf(out, "Report written to %s\n", opts.output)
	}
	if opts.save && runErr == nil {
		fmt.Fprintf(out, "Report saved as %s\n", report.ID)
	}
	return runErr
}

// =============================================================================
// Watch and Schedule Handlers
// =============================================================================

func runWatch(cmd *cobra.Command, inbox, truthDir, pattern, metricsAddr string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	reports, err := env.openStore()
	if err != nil {
		return err
	}
	defer reports.Close()

	watcher, err := runner.NewWatcher(runner.New(env.evaluator(1, false), reports, env.logger), runner.WatchOptions{
		Inbox:    firstNonEmpty(inbox, env.cfg.Watch.Inbox),
		TruthDir: firstNonEmpty(truthDir, env.cfg.Watch.TruthDir),
		Pattern:  firstNonEmpty(pattern, env.cfg.Watch.Pattern),
		Debounce: env.cfg.Watch.Debounce,
		Logger:   env.logger,
		Metrics:  env.metrics,
		OnReport: func(report *eval.Report) {
			if c := report.Cases[0]; c.Result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tNMI=%.4f answerScore=%.4f reasonScore=%.4f %s\n",
					c.CaseID, c.Result.NMI, c.Result.AnswerScore, c.Result.ReasonScore, c.Result.BadPartition)
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := env.serveMetrics(ctx, metricsAddr); err != nil {
		return err
	}
	return watcher.Run(ctx)
}

func runSchedule(cmd *cobra.Command, testSet, spec, metricsAddr string, runNow bool) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	reports, err := env.openStore()
	if err != nil {
		return err
	}
	defer reports.Close()

	scheduler, err := runner.NewScheduler(
		runner.New(env.evaluator(0, false), reports, env.logger),
		firstNonEmpty(spec, env.cfg.Schedule.Cron),
		firstNonEmpty(testSet, env.cfg.Schedule.TestSet),
		env.logger,
	)
	if err != nil {
		return err
	}
	scheduler.OnReport(func(report *eval.Report) {
		eval.WriteSummary(cmd.OutOrStdout(), report)
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := env.serveMetrics(ctx, metricsAddr); err != nil {
		return err
	}
	if runNow {
		// A failing run is logged and retried on schedule.
		_, _ = scheduler.RunOnce(ctx)
	}
	return scheduler.Run(ctx)
}

// =============================================================================
// Reports Handlers
// =============================================================================

func runReportsList(cmd *cobra.Command, limit, offset int) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()
	reports, err := env.openStore()
	if err != nil {
		return err
	}
	defer reports.Close()

	items, err := reports.List(cmd.Context(), limit, offset)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No reports found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEST SET\tGENERATED\tGRADED\tFAILED\tNMI\tANSWER\tREASON")
	for _, item := range items {
		s := item.Summary
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			item.ID, item.TestSetName, item.GeneratedAt.Format(time.RFC3339),
			s.Graded, s.Failed, s.AvgNMI, s.AvgAnswerScore, s.AvgReasonScore)
	}
	return w.Flush()
}

func runReportsShow(cmd *cobra.Command, id string, asJSON bool) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()
	reports, err := env.openStore()
	if err != nil {
		return err
	}
	defer reports.Close()

	report, err := reports.Get(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("report %s not found", id)
		}
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	eval.WriteSummary(out, report)
	return nil
}

func runReportsDelete(cmd *cobra.Command, id string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()
	reports, err := env.openStore()
	if err != nil {
		return err
	}
	defer reports.Close()

	if err := reports.Delete(cmd.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("report %s not found", id)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", id)
	return nil
}

// =============================================================================
// Schema Handler
// =============================================================================

func runSchema(cmd *cobra.Command, kind string) error {
	payload, err := schemaFor(kind)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(payload); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
