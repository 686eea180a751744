package eval

import "path/filepath"

// TestSet defines a grading dataset: pairs of ground-truth and received record files.
type TestSet struct {
	Version int        `yaml:"version" json:"version"`
	Name    string     `yaml:"name" json:"name"`
	Cases   []TestCase `yaml:"cases" json:"cases"`

	// baseDir anchors relative case paths; set by LoadTestSet.
	baseDir string
}

// TestCase names one record pair. Paths are relative to the test set file.
type TestCase struct {
	ID       string `yaml:"id" json:"id"`
	Truth    string `yaml:"truth" json:"truth"`
	Received string `yaml:"received" json:"received"`
}

// SingleCase wraps one record pair in a test set.
func SingleCase(id, truthPath, receivedPath string) *TestSet {
	return &TestSet{
		Version: 1,
		Name:    id,
		Cases:   []TestCase{{ID: id, Truth: truthPath, Received: receivedPath}},
	}
}

// Resolve returns path anchored at the directory the test set was loaded from.
func (s *TestSet) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}
