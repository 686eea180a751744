package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/confrag/internal/config"
	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/grading"
)

func sampleReport(id string, at time.Time) *eval.Report {
	return &eval.Report{
		ID:          id,
		GeneratedAt: at.UTC(),
		TestSetName: "set-" + id,
		Summary: eval.Summary{
			Cases:      1,
			Graded:     1,
			AvgNMI:     0.75,
			Partitions: map[string]int{"Normal": 1},
		},
		Cases: []eval.CaseResult{{
			CaseID: "c1",
			Result: &grading.Result{
				ID:           "8",
				BadPartition: grading.PartitionNormal,
				NMI:          0.75,
				NMICorrect:   grading.Grouping{{1, 2}, {3}},
				NMIGot:       grading.Grouping{{1}, {2, 3}},
				Matches:      []grading.PairResult{{Match: grading.MatchPair{Answer: 0, Group: 1}, ReasonMatches: 2}},
				AnswerScore:  0.5,
			},
		}},
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	got, err := s.Get(ctx, "b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TestSetName != "set-b" || !got.GeneratedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("Get() = %+v", got)
	}
	result := got.Cases[0].Result
	if result == nil || result.BadPartition != grading.PartitionNormal || result.Matches[0].Match.Group != 1 {
		t.Fatalf("case result did not survive storage: %+v", got.Cases[0])
	}

	list, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != "c" || list[2].ID != "a" {
		t.Fatalf("List() order = %+v", list)
	}
	if list[0].Summary.AvgNMI != 0.75 || list[0].Summary.Partitions["Normal"] != 1 {
		t.Fatalf("summary = %+v", list[0].Summary)
	}

	page, err := s.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List(1,1) error = %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("List(1,1) = %+v", page)
	}
	tail, err := s.List(ctx, 0, 2)
	if err != nil {
		t.Fatalf("List(0,2) error = %v", err)
	}
	if len(tail) != 1 || tail[0].ID != "a" {
		t.Fatalf("List(0,2) = %+v", tail)
	}

	// Saving again replaces the stored report.
	updated := sampleReport("a", base.Add(5*time.Hour))
	updated.TestSetName = "renamed"
	if err := s.Save(ctx, updated); err != nil {
		t.Fatalf("Save(update) error = %v", err)
	}
	list, _ = s.List(ctx, 0, 0)
	if len(list) != 3 || list[0].ID != "a" || list[0].TestSetName != "renamed" {
		t.Fatalf("List() after update = %+v", list)
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete = %v", err)
	}
	if err := s.Delete(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() = %v", err)
	}
	if err := s.Save(ctx, &eval.Report{}); err == nil {
		t.Fatalf("expected error for report without id")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	report := sampleReport("x", time.Now())
	if err := s.Save(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	report.Summary.Partitions["Normal"] = 99
	got, _ := s.Get(context.Background(), "x")
	if got.Summary.Partitions["Normal"] != 1 {
		t.Fatalf("stored report aliased the caller's map")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	s, err := Open(config.StoreConfig{Driver: "sqlite", DSN: "file:" + path}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestNewSQLStoreKeepsCallerConfig(t *testing.T) {
	config := DefaultSQLConfig()
	path := filepath.Join(t.TempDir(), "reports.db")
	s, err := NewSQLStore("sqlite", "file:"+path, nil, config)
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	defer s.Close()
	if config.MaxOpenConns != 10 || config.MaxIdleConns != 5 {
		t.Fatalf("caller config modified: open=%d idle=%d", config.MaxOpenConns, config.MaxIdleConns)
	}
	if got := s.db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("sqlite max open connections = %d, want 1", got)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: "memory"}, nil)
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("Open(memory) = %T", s)
	}
	if _, err := Open(config.StoreConfig{Driver: "mongo"}, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	for _, driver := range []string{"postgres", "pgx"} {
		if _, err := Open(config.StoreConfig{Driver: driver}, nil); err == nil {
			t.Fatalf("expected error for %s without dsn", driver)
		}
	}
}
