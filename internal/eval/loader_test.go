package eval

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadTestSetValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "no cases", body: "name: empty\ncases: []\n", wantErr: "no cases"},
		{name: "missing id", body: "cases:\n  - truth: t.json\n    received: r.json\n", wantErr: "missing id"},
		{name: "missing truth", body: "cases:\n  - id: a\n    received: r.json\n", wantErr: "missing truth"},
		{name: "missing received", body: "cases:\n  - id: a\n    truth: t.json\n", wantErr: "missing received"},
		{name: "duplicate id", body: "cases:\n  - {id: a, truth: t.json, received: r.json}\n  - {id: a, truth: t.json, received: r.json}\n", wantErr: "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, t.TempDir(), "set.yaml", tt.body)
			_, err := LoadTestSet(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadTestSetJSON5AndResolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "sets/set.json5", `{
  // trailing commas are fine
  version: 1,
  name: "json5",
  cases: [
    {id: "a", truth: "../truth/a.json", received: "/abs/received.json"},
  ],
}`)
	set, err := LoadTestSet(path)
	if err != nil {
		t.Fatalf("LoadTestSet() error = %v", err)
	}
	if set.Name != "json5" || len(set.Cases) != 1 {
		t.Fatalf("set = %+v", set)
	}
	if got, want := set.Resolve(set.Cases[0].Truth), filepath.Join(dir, "truth", "a.json"); got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
	if got := set.Resolve(set.Cases[0].Received); got != "/abs/received.json" {
		t.Fatalf("absolute path changed: %q", got)
	}
}

func TestLoadTestSetRequiresPath(t *testing.T) {
	if _, err := LoadTestSet(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSingleCase(t *testing.T) {
	set := SingleCase("x", "t.json", "r.json")
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if set.Resolve("t.json") != "t.json" {
		t.Fatalf("unanchored set must not rewrite paths")
	}
}
