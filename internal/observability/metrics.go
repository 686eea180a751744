package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects grading and evaluation metrics.
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordGrade("Normal", result.NMI, result.AnswerScore, result.ReasonScore, time.Since(start).Seconds())
type Metrics struct {
	// GradesTotal counts graded records.
	// Labels: partition (Normal|Missing Elements|Extra Elements|Duplicate Elements)
	GradesTotal *prometheus.CounterVec

	// GradeDuration measures the time spent grading one record, in seconds.
	GradeDuration prometheus.Histogram

	// NMIScore, AnswerScore and ReasonScore record the distribution of the
	// per-record scores, all of which live in [0,1].
	NMIScore    prometheus.Histogram
	AnswerScore prometheus.Histogram
	ReasonScore prometheus.Histogram

	// CaseErrors counts cases that could not be graded.
	// Labels: stage (load|parse|grade)
	CaseErrors *prometheus.CounterVec

	// EvaluationsTotal counts completed batch evaluations.
	// Labels: status (success|error)
	EvaluationsTotal *prometheus.CounterVec

	// EvaluationDuration measures wall time of a batch evaluation.
	EvaluationDuration prometheus.Histogram

	// WatchEvents counts filesystem events handled by the inbox watcher.
	// Labels: outcome (graded|skipped|error)
	WatchEvents *prometheus.CounterVec

	// DatabaseQueryDuration measures report store query latency.
	// Labels: operation (select|insert|delete), table
	DatabaseQueryDuration *prometheus.HistogramVec

	// DatabaseQueryCounter counts report store queries.
	// Labels: operation, table, status (success|error)
	DatabaseQueryCounter *prometheus.CounterVec
}

var scoreBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// NewMetrics creates the metrics and registers them with reg. A nil
// registerer yields unregistered collectors, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confrag_grades_total",
				Help: "Total number of graded records by partition status",
			},
			[]string{"partition"},
		),

		GradeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confrag_grade_duration_seconds",
				Help:    "Duration of grading a single record in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		NMIScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confrag_nmi_score",
				Help:    "Distribution of soft NMI scores",
				Buckets: scoreBuckets,
			},
		),

		AnswerScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confrag_answer_score",
				Help:    "Distribution of answer scores",
				Buckets: scoreBuckets,
			},
		),

		ReasonScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confrag_reason_score",
				Help:    "Distribution of reason scores",
				Buckets: scoreBuckets,
			},
		),

		CaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confrag_case_errors_total",
				Help: "Total number of cases that failed by stage",
			},
			[]string{"stage"},
		),

		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confrag_evaluations_total",
				Help: "Total number of batch evaluations by status",
			},
			[]string{"status"},
		),

		EvaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confrag_evaluation_duration_seconds",
				Help:    "Duration of batch evaluations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),

		WatchEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confrag_watch_events_total",
				Help: "Total number of inbox events by outcome",
			},
			[]string{"outcome"},
		),

		DatabaseQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confrag_db_query_duration_seconds",
				Help:    "Duration of report store queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation", "table"},
		),

		DatabaseQueryCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confrag_db_queries_total",
				Help: "Total number of report store queries by operation, table, and status",
			},
			[]string{"operation", "table", "status"},
		),
	}
}

// RecordGrade records one graded record.
func (m *Metrics) RecordGrade(partition string, nmi, answerScore, reasonScore, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GradesTotal.WithLabelValues(partition).Inc()
	m.GradeDuration.Observe(durationSeconds)
	m.NMIScore.Observe(nmi)
	m.AnswerScore.Observe(answerScore)
	m.ReasonScore.Observe(reasonScore)
}

// RecordCaseError records a case that failed at the given stage.
func (m *Metrics) RecordCaseError(stage string) {
	if m == nil {
		return
	}
	m.CaseErrors.WithLabelValues(stage).Inc()
}

// RecordEvaluation records a finished batch evaluation.
func (m *Metrics) RecordEvaluation(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(status).Inc()
	m.EvaluationDuration.Observe(durationSeconds)
}

// RecordWatchEvent records the outcome of an inbox event.
func (m *Metrics) RecordWatchEvent(outcome string) {
	if m == nil {
		return
	}
	m.WatchEvents.WithLabelValues(outcome).Inc()
}

// RecordDatabaseQuery records metrics for a report store query.
//
// Example:
//
//	start := time.Now()
//	// ... execute database query ...
//	metrics.RecordDatabaseQuery("select", "reports", "success", time.Since(start).Seconds())
func (m *Metrics) RecordDatabaseQuery(operation, table, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.DatabaseQueryCounter.WithLabelValues(operation, table, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(durationSeconds)
}
