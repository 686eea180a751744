package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/haasonsaas/confrag/internal/backoff"
	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/observability"
)

const reportsTable = "confrag_reports"

// SQLConfig holds connection pool settings.
type SQLConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	// ConnectAttempts is how many times the initial ping is tried.
	ConnectAttempts int
	ConnectBackoff  backoff.Policy
}

// DefaultSQLConfig returns default configuration.
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		ConnectAttempts: 3,
		ConnectBackoff:  backoff.DefaultPolicy(),
	}
}

// SQLStore implements Store on database/sql. The driver is one of "sqlite"
// (modernc.org/sqlite), "sqlite3" (mattn/go-sqlite3), "postgres" (lib/pq) or
// "pgx" (jackc/pgx stdlib).
type SQLStore struct {
	db       *sql.DB
	postgres bool
	metrics  *observability.Metrics
}

// NewSQLStore opens the database, verifies the connection and creates the
// reports table when missing.
func NewSQLStore(driver, dsn string, metrics *observability.Metrics, config *SQLConfig) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultSQLConfig()
	}
	cfg := *config

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	postgres := isPostgres(driver)
	if !postgres {
		// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = backoff.Retry(context.Background(), cfg.ConnectBackoff, cfg.ConnectAttempts, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	store := newSQLStore(db, postgres, metrics)
	if err := store.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isPostgres(driver string) bool {
	return driver == "postgres" || driver == "pgx"
}

func newSQLStore(db *sql.DB, postgres bool, metrics *observability.Metrics) *SQLStore {
	return &SQLStore{db: db, postgres: postgres, metrics: metrics}
}

func (s *SQLStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+reportsTable+` (
			id TEXT PRIMARY KEY,
			test_set_name TEXT NOT NULL,
			generated_at BIGINT NOT NULL,
			summary TEXT NOT NULL,
			report TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_`+reportsTable+`_generated_at ON `+reportsTable+` (generated_at)`)
	if err != nil {
		return fmt.Errorf("create reports index: %w", err)
	}
	return nil
}

// Close releases database resources.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores a report, replacing any report with the same id.
func (s *SQLStore) Save(ctx context.Context, report *eval.Report) error {
	if report == nil {
		return nil
	}
	if report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO `+reportsTable+` (id, test_set_name, generated_at, summary, report)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			test_set_name = excluded.test_set_name,
			generated_at = excluded.generated_at,
			summary = excluded.summary,
			report = excluded.report
	`),
		report.ID,
		report.TestSetName,
		report.GeneratedAt.UnixNano(),
		string(summaryJSON),
		string(reportJSON),
	)
	s.observe("insert", start, err)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Get returns a report by id.
func (s *SQLStore) Get(ctx context.Context, id string) (*eval.Report, error) {
	start := time.Now()
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT report FROM `+reportsTable+` WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		s.observe("select", start, nil)
		return nil, ErrNotFound
	}
	s.observe("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	var report eval.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// List returns report summaries newest first.
func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]ReportSummary, error) {
	query := `SELECT id, test_set_name, generated_at, summary FROM ` + reportsTable + ` ORDER BY generated_at DESC, id`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT ?"
	}
	if offset > 0 {
		if limit <= 0 && !s.postgres {
			// SQLite only accepts OFFSET after a LIMIT.
			query += " LIMIT -1"
		}
		args = append(args, offset)
		query += " OFFSET ?"
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	s.observe("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	summaries := []ReportSummary{}
	for rows.Next() {
		var (
			item        ReportSummary
			generatedAt int64
			summaryJSON string
		)
		if err := rows.Scan(&item.ID, &item.TestSetName, &generatedAt, &summaryJSON); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		item.GeneratedAt = time.Unix(0, generatedAt).UTC()
		if err := json.Unmarshal([]byte(summaryJSON), &item.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		summaries = append(summaries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return summaries, nil
}

// Delete removes a report.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM `+reportsTable+` WHERE id = ?`), id)
	s.observe("delete", start, err)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordDatabaseQuery(operation, reportsTable, status, time.Since(start).Seconds())
}
