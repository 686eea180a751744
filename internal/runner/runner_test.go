package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/store"
)

const truthRecord = `{
  "id": "q1",
  "answers": [
    {"index": [1, 2], "answer judge keyword": ["safe"], "reason": [{"reason judge keyword": ["WHO"]}]},
    {"index": [3], "answer judge keyword": ["risk"], "reason": [{"reason judge keyword": ["skull"]}]}
  ]
}`

const receivedPerfect = `{"answer": {"answers": [
  {"index": [1, 2], "answer": "it is safe", "reason": ["the WHO says so"]},
  {"index": [3], "answer": "there is a risk", "reason": ["thinner skull"]}
]}, "info": [[1, 2], [3]]}`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestSet(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "truth.json", truthRecord)
	writeFile(t, dir, "received.json", receivedPerfect)
	return writeFile(t, dir, "set.yaml", `
name: nightly
cases:
  - id: q1
    truth: truth.json
    received: received.json
`)
}

func TestRunnerRunFileSavesReport(t *testing.T) {
	reports := store.NewMemoryStore()
	r := New(nil, reports, nil)

	report, err := r.RunFile(context.Background(), writeTestSet(t))
	if err != nil {
		t.Fatalf("RunFile() error = %v", err)
	}
	if report.TestSetName != "nightly" || report.Summary.Graded != 1 || report.Summary.AvgNMI != 1 {
		t.Fatalf("report = %+v", report.Summary)
	}
	saved, err := reports.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("report was not saved: %v", err)
	}
	if saved.Cases[0].Result.AnswerScore != 1 {
		t.Fatalf("saved case = %+v", saved.Cases[0])
	}
}

func TestRunnerWithoutStore(t *testing.T) {
	dir := t.TempDir()
	truth := writeFile(t, dir, "t.json", truthRecord)
	received := writeFile(t, dir, "r.json", receivedPerfect)

	report, err := New(nil, nil, nil).GradePair(context.Background(), "pair", truth, received)
	if err != nil {
		t.Fatalf("GradePair() error = %v", err)
	}
	if len(report.Cases) != 1 || report.Cases[0].CaseID != "pair" || report.Cases[0].Result == nil {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunnerRunFileMissing(t *testing.T) {
	_, err := New(nil, nil, nil).RunFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestRunnerStopOnErrorStillSaves(t *testing.T) {
	dir := t.TempDir()
	truth := writeFile(t, dir, "t.json", truthRecord)
	set := &eval.TestSet{Name: "broken", Cases: []eval.TestCase{
		{ID: "missing", Truth: truth, Received: filepath.Join(dir, "absent.json")},
	}}
	reports := store.NewMemoryStore()
	evaluator := eval.NewEvaluator(nil, nil, &eval.Options{StopOnError: true})

	report, err := New(evaluator, reports, nil).Run(context.Background(), set)
	if !errors.Is(err, eval.ErrCaseFailed) {
		t.Fatalf("expected ErrCaseFailed, got %v", err)
	}
	if _, err := reports.Get(context.Background(), report.ID); err != nil {
		t.Fatalf("partial report was not saved: %v", err)
	}
}
