package testharness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTestName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TestSimple", "TestSimple"},
		{"Test/WithSlash", "Test_WithSlash"},
		{"Test With Spaces", "Test_With_Spaces"},
		{"Complex:Test/Name Here", "Complex_Test_Name_Here"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeTestName(tt.input); got != tt.expected {
				t.Errorf("sanitizeTestName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     string
	}{
		{name: "identical", expected: "a\nb", actual: "a\nb", want: ""},
		{name: "changed line", expected: "a\nold", actual: "a\nnew", want: "2:\n- old\n+ new\n"},
		{name: "extra line", expected: "a", actual: "a\nb", want: "2:\n- \n+ b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diff(tt.expected, tt.actual); got != tt.want {
				t.Errorf("diff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGoldenPath(t *testing.T) {
	g := &Golden{dir: "testdata/golden", name: "TestExample"}
	if got := g.goldenPath(""); got != filepath.Join("testdata", "golden", "TestExample.golden") {
		t.Errorf("goldenPath(\"\") = %q", got)
	}
	if got := g.goldenPath("json"); got != filepath.Join("testdata", "golden", "TestExample_json.golden") {
		t.Errorf("goldenPath(json) = %q", got)
	}
}

func TestGoldenRoundTrip(t *testing.T) {
	orig := UpdateGolden
	t.Cleanup(func() { UpdateGolden = orig })

	dir := filepath.Join(t.TempDir(), "golden")
	g := &Golden{t: t, dir: dir, name: "RoundTrip"}

	UpdateGolden = true
	g.Assert("NMI:  1\n")
	g.AssertJSON("result", map[string]float64{"NMI": 1})

	UpdateGolden = false
	g.Assert("NMI:  1\n")
	g.AssertJSON("result", map[string]float64{"NMI": 1})

	data, err := os.ReadFile(filepath.Join(dir, "RoundTrip_result.json.golden"))
	if err != nil {
		t.Fatalf("json golden not written: %v", err)
	}
	if !strings.Contains(string(data), `"NMI": 1`) {
		t.Errorf("json golden = %s", data)
	}
}
