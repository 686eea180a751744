// Package observability provides the logging, metrics and tracing used by the
// grading engine and its runners.
//
// # Logging
//
// NewLogger builds a *slog.Logger whose handler redacts credentials from
// messages and attributes. Store DSNs routinely end up in log lines, so the
// default patterns target connection-string passwords. Records logged with a
// context carrying WithReportID or WithCaseID gain report_id and case_id
// attributes, and records logged inside a sampled span gain trace_id.
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "auto"})
//	logger.InfoContext(observability.WithCaseID(ctx, "q-8"), "graded", "nmi", result.NMI)
//
// # Metrics
//
// Metrics are Prometheus collectors registered against the registerer passed
// to NewMetrics. They cover per-record scores, grading latency, case failures,
// batch evaluations, inbox events and report store queries. A nil *Metrics is
// valid and records nothing.
//
// # Tracing
//
// NewTracer exports spans over OTLP/gRPC when an endpoint is configured and
// falls back to the global no-op tracer otherwise. Batch evaluations open one
// span per run and one per case.
package observability
