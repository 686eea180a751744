// Package store persists evaluation reports.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/confrag/internal/config"
	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/observability"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("store: report not found")

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID          string       `json:"id"`
	TestSetName string       `json:"test_set_name"`
	GeneratedAt time.Time    `json:"generated_at"`
	Summary     eval.Summary `json:"summary"`
}

// Store persists evaluation reports.
type Store interface {
	Save(ctx context.Context, report *eval.Report) error
	Get(ctx context.Context, id string) (*eval.Report, error)
	// List returns reports newest first.
	List(ctx context.Context, limit, offset int) ([]ReportSummary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store selected by cfg.
func Open(cfg config.StoreConfig, metrics *observability.Metrics) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3", "postgres", "pgx":
		return NewSQLStore(cfg.Driver, cfg.DSN, metrics, nil)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func summaryOf(report *eval.Report) ReportSummary {
	return ReportSummary{
		ID:          report.ID,
		TestSetName: report.TestSetName,
		GeneratedAt: report.GeneratedAt,
		Summary:     report.Summary,
	}
}

// MemoryStore keeps reports in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*eval.Report
	keys    []string
}

// NewMemoryStore returns a new in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*eval.Report)}
}

// Save stores a report, replacing any report with the same id.
func (s *MemoryStore) Save(ctx context.Context, report *eval.Report) error {
	if report == nil {
		return nil
	}
	if report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; !exists {
		s.keys = append(s.keys, report.ID)
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

// Get returns a report by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*eval.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(report), nil
}

// List returns report summaries newest first.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]ReportSummary, error) {
	s.mu.RLock()
	all := make([]ReportSummary, 0, len(s.keys))
	for i := len(s.keys) - 1; i >= 0; i-- {
		all = append(all, summaryOf(s.reports[s.keys[i]]))
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].GeneratedAt.After(all[j].GeneratedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []ReportSummary{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes a report.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	for i, key := range s.keys {
		if key == id {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneReport(report *eval.Report) *eval.Report {
	clone := *report
	clone.Cases = append([]eval.CaseResult(nil), report.Cases...)
	if report.Summary.Partitions != nil {
		clone.Summary.Partitions = make(map[string]int, len(report.Summary.Partitions))
		for k, v := range report.Summary.Partitions {
			clone.Summary.Partitions[k] = v
		}
	}
	return &clone
}
