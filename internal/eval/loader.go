package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// LoadTestSet reads a YAML or JSON test set from disk.
func LoadTestSet(path string) (*TestSet, error) {
	if path == "" {
		return nil, fmt.Errorf("test set path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test set: %w", err)
	}
	var set TestSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		err = json5.Unmarshal(data, &set)
	default:
		err = yaml.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("parse test set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve test set path: %w", err)
	}
	set.baseDir = filepath.Dir(abs)
	return &set, nil
}

// Validate checks that every case is complete and uniquely identified.
func (s *TestSet) Validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("test set has no cases")
	}
	seen := make(map[string]struct{}, len(s.Cases))
	for i, tc := range s.Cases {
		if tc.ID == "" {
			return fmt.Errorf("test case %d missing id", i)
		}
		if tc.Truth == "" {
			return fmt.Errorf("test case %q missing truth", tc.ID)
		}
		if tc.Received == "" {
			return fmt.Errorf("test case %q missing received", tc.ID)
		}
		if _, dup := seen[tc.ID]; dup {
			return fmt.Errorf("duplicate test case id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}
