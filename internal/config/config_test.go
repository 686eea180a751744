package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
grading:
  concurrency: 2
  extra: true
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Grading.Concurrency != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.SchemaValidation() {
		t.Fatalf("schema validation should default to enabled")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Watch.Debounce)
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  format: text
store:
  driver: sqlite
  dsn: file:reports.db
grading:
  memo_capacity: 4096
  concurrency: 8
  validate_schema: false
watch:
  inbox: ./inbox
  truth_dir: ./truth
  debounce: 1s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Grading.MemoCapacity != 4096 || cfg.Grading.Concurrency != 8 {
		t.Fatalf("grading = %+v", cfg.Grading)
	}
	if cfg.SchemaValidation() {
		t.Fatalf("validate_schema: false was ignored")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Fatalf("debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("metrics path default not applied: %q", cfg.Metrics.Path)
	}
}

func TestLoadJSON5WithIncludeAndEnv(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(base, []byte("store:\n  driver: postgres\n  dsn: postgres://localhost/base\ngrading:\n  concurrency: 3\n"), 0o644); err != nil {
		t.Fatalf("write base: %v", err)
	}
	t.Setenv("CONFRAG_TEST_DSN", "postgres://localhost/override")
	main := filepath.Join(dir, "config.json5")
	if err := os.WriteFile(main, []byte(`{
  // comments are allowed
  $include: "base.yaml",
  store: {dsn: "${CONFRAG_TEST_DSN}"},
}`), 0o644); err != nil {
		t.Fatalf("write main: %v", err)
	}

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("driver from include lost: %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://localhost/override" {
		t.Fatalf("dsn = %q", cfg.Store.DSN)
	}
	if cfg.Grading.Concurrency != 3 {
		t.Fatalf("concurrency = %d", cfg.Grading.Concurrency)
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(a, []byte("$include: b.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("$include: a.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(a)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadIncludeSurvivesIncludeEnvVar(t *testing.T) {
	t.Setenv("include", "clobbered")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("grading:\n  concurrency: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
	}{
		{name: "dollar include", body: "$include: base.yaml\nlogging:\n  level: warn\n"},
		{name: "braced include", body: "${include}: base.yaml\nlogging:\n  level: warn\n"},
		{name: "plain include alias", body: "include:\n  - base.yaml\nlogging:\n  level: warn\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "config"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Grading.Concurrency != 5 {
				t.Fatalf("concurrency from include = %d", cfg.Grading.Concurrency)
			}
			if cfg.Logging.Level != "warn" {
				t.Fatalf("level = %q", cfg.Logging.Level)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CONFRAG_TEST_LEVEL", "debug")
	got := expandEnv("$include: a.yaml\nlevel: ${CONFRAG_TEST_LEVEL}\nother: $CONFRAG_TEST_UNSET\n")
	want := "$include: a.yaml\nlevel: debug\nother: \n"
	if got != want {
		t.Fatalf("expandEnv() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "sampling out of range", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: "sampling_rate"},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.Tracing.Enabled = true }, wantErr: "tracing.endpoint"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store.driver"},
		{name: "sql driver without dsn", mutate: func(c *Config) { c.Store.Driver = "sqlite3" }, wantErr: "store.dsn"},
		{name: "negative memo", mutate: func(c *Config) { c.Grading.MemoCapacity = -1 }, wantErr: "memo_capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %v", tt.wantErr, err)
			}
		})
	}
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", data)
	}
	for _, key := range []string{"logging", "store", "grading", "watch", "schedule"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing %q", key)
		}
	}
}
