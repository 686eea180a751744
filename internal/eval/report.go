package eval

import (
	"fmt"
	"io"
	"time"

	"github.com/haasonsaas/confrag/internal/grading"
)

// Report captures evaluation results and aggregated metrics.
type Report struct {
	ID          string       `json:"id"`
	GeneratedAt time.Time    `json:"generated_at"`
	TestSetName string       `json:"test_set_name"`
	Summary     Summary      `json:"summary"`
	Cases       []CaseResult `json:"cases"`
}

// CaseResult holds the outcome of a single test case. Exactly one of Result
// and Error is set for cases that ran; skipped cases carry neither.
type CaseResult struct {
	CaseID   string          `json:"case_id"`
	Truth    string          `json:"truth"`
	Received string          `json:"received"`
	Result   *grading.Result `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	// Stage is load, parse or grade when Error is set.
	Stage    string        `json:"stage,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Summary aggregates metrics across cases. Averages are taken over graded cases.
type Summary struct {
	Cases          int            `json:"cases"`
	Graded         int            `json:"graded"`
	Failed         int            `json:"failed"`
	Skipped        int            `json:"skipped"`
	AvgNMI         float64        `json:"avg_nmi"`
	AvgAnswerScore float64        `json:"avg_answer_score"`
	AvgReasonScore float64        `json:"avg_reason_score"`
	AnswerMatches  int            `json:"answer_matches"`
	Partitions     map[string]int `json:"partitions"`
}

func summarize(cases []CaseResult) Summary {
	s := Summary{Cases: len(cases), Partitions: map[string]int{}}
	for _, c := range cases {
		switch {
		case c.Skipped:
			s.Skipped++
		case c.Result == nil:
			s.Failed++
		default:
			s.Graded++
			s.AvgNMI += c.Result.NMI
			s.AvgAnswerScore += c.Result.AnswerScore
			s.AvgReasonScore += c.Result.ReasonScore
			s.AnswerMatches += c.Result.AnswerMatchCount
			s.Partitions[c.Result.BadPartition.String()]++
		}
	}
	if s.Graded > 0 {
		count := float64(s.Graded)
		s.AvgNMI /= count
		s.AvgAnswerScore /= count
		s.AvgReasonScore /= count
	}
	return s
}

// WriteResult prints the headline scores of one graded record.
func WriteResult(w io.Writer, r *grading.Result) {
	fmt.Fprintln(w, "NMI: ", r.NMI)
	fmt.Fprintln(w, "answerScore: ", r.AnswerScore)
	fmt.Fprintln(w, "reasonScore: ", r.ReasonScore)
	fmt.Fprintln(w, "badPartition: ", r.BadPartition)
}

// WriteSummary prints a human-readable report summary followed by any failed cases.
func WriteSummary(w io.Writer, report *Report) {
	s := report.Summary
	fmt.Fprintf(w, "Report %s (%s)\n", report.ID, report.TestSetName)
	fmt.Fprintf(w, "Cases: %d graded, %d failed, %d skipped\n", s.Graded, s.Failed, s.Skipped)
	fmt.Fprintf(w, "NMI: %.4f  answerScore: %.4f  reasonScore: %.4f\n", s.AvgNMI, s.AvgAnswerScore, s.AvgReasonScore)
	for _, status := range grading.PartitionStatuses() {
		if n := s.Partitions[status.String()]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", status, n)
		}
	}
	for _, c := range report.Cases {
		if c.Error != "" {
			fmt.Fprintf(w, "FAILED %s [%s]: %s\n", c.CaseID, c.Stage, c.Error)
		}
	}
}
