// Package testharness provides golden file helpers for report and CLI output tests.
package testharness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGolden rewrites golden files instead of comparing when UPDATE_GOLDEN=1.
var UpdateGolden = os.Getenv("UPDATE_GOLDEN") == "1"

// Golden compares output against testdata/golden/<test name>[_<suffix>].golden.
type Golden struct {
	t    testing.TB
	dir  string
	name string
}

// NewGolden returns a helper rooted at testdata/golden of the calling package.
func NewGolden(t testing.TB) *Golden {
	t.Helper()
	return &Golden{
		t:    t,
		dir:  filepath.Join("testdata", "golden"),
		name: sanitizeTestName(t.Name()),
	}
}

// Assert compares actual against the test's golden file.
func (g *Golden) Assert(actual string) {
	g.t.Helper()
	g.AssertNamed("", actual)
}

// AssertNamed compares actual against a suffixed golden file, for tests with
// more than one snapshot.
func (g *Golden) AssertNamed(suffix, actual string) {
	g.t.Helper()
	filename := g.goldenPath(suffix)

	if UpdateGolden {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("create golden dir: %v", err)
		}
		if err := os.WriteFile(filename, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("update golden file %s: %v", filename, err)
		}
		g.t.Logf("updated golden file: %s", filename)
		return
	}

	expected, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file %s does not exist; run with UPDATE_GOLDEN=1 to create it.\n\nActual output:\n%s", filename, actual)
		}
		g.t.Fatalf("read golden file %s: %v", filename, err)
	}
	if string(expected) != actual {
		g.t.Errorf("golden file mismatch %s\n%s", filename, diff(string(expected), actual))
	}
}

// AssertJSON compares the indented JSON encoding of actual.
func (g *Golden) AssertJSON(suffix string, actual any) {
	g.t.Helper()
	pretty, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("marshal JSON: %v", err)
	}
	g.AssertNamed(strings.TrimPrefix(suffix+".json", "."), string(pretty)+"\n")
}

func (g *Golden) goldenPath(suffix string) string {
	if suffix == "" {
		return filepath.Join(g.dir, g.name+".golden")
	}
	return filepath.Join(g.dir, g.name+"_"+suffix+".golden")
}

func sanitizeTestName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(name)
}

// diff returns the differing lines of two strings, numbered from 1.
func diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")
	n := max(len(expectedLines), len(actualLines))

	var b strings.Builder
	for i := 0; i < n; i++ {
		var exp, act string
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(actualLines) {
			act = actualLines[i]
		}
		if exp != act {
			fmt.Fprintf(&b, "%d:\n- %s\n+ %s\n", i+1, exp, act)
		}
	}
	return b.String()
}
