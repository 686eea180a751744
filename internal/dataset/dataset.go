// Package dataset reads ground-truth and received records from disk.
//
// Received records are usually produced by a language model, so decoding is
// forgiving: Markdown code fences are stripped, JSON5 syntax (comments,
// trailing commas, unquoted keys) is accepted and a record wrapped in a JSON
// string literal is unwrapped. The result is then checked against the bundled
// JSON schemas before being handed to the grading package.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/haasonsaas/confrag/internal/grading"
)

var (
	// ErrInvalidRecord is returned when a record is not valid JSON or does not
	// match its schema.
	ErrInvalidRecord = errors.New("dataset: invalid record")
)

// Loader decodes record files.
type Loader struct {
	// ValidateSchema checks decoded records against the bundled schemas.
	ValidateSchema bool
}

// NewLoader returns a loader with schema validation set as given.
func NewLoader(validateSchema bool) *Loader {
	return &Loader{ValidateSchema: validateSchema}
}

// ReadReceived reads and decodes a received record file.
func (l *Loader) ReadReceived(path string) (*grading.Received, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read received %s: %w", path, err)
	}
	received, err := l.DecodeReceived(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return received, nil
}

// ReadTruth reads and decodes a ground-truth record file.
func (l *Loader) ReadTruth(path string) (*grading.GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read truth %s: %w", path, err)
	}
	truth, err := l.DecodeTruth(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return truth, nil
}

// DecodeReceived decodes a received record.
func (l *Loader) DecodeReceived(data []byte) (*grading.Received, error) {
	canonical, err := l.normalize(data, func() *jsonschema.Schema { return schemas.received })
	if err != nil {
		return nil, err
	}
	return grading.ParseReceived(canonical)
}

// DecodeTruth decodes a ground-truth record.
func (l *Loader) DecodeTruth(data []byte) (*grading.GroundTruth, error) {
	canonical, err := l.normalize(data, func() *jsonschema.Schema { return schemas.truth })
	if err != nil {
		return nil, err
	}
	var truth grading.GroundTruth
	if err := json.Unmarshal(canonical, &truth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return &truth, nil
}

// normalize cleans and parses data leniently, optionally validates it and
// returns it re-encoded as standard JSON.
func (l *Loader) normalize(data []byte, schema func() *jsonschema.Schema) ([]byte, error) {
	var value any
	if err := json5.Unmarshal(CleanJSON(data), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if l != nil && l.ValidateSchema {
		if err := initSchemas(); err != nil {
			return nil, fmt.Errorf("compile schema: %w", err)
		}
		if err := schema().Validate(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	canonical, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return canonical, nil
}

// CleanJSON strips the wrapping a model tends to put around a JSON payload,
// such as a ```json fenced block or a JSON string literal holding the document.
func CleanJSON(data []byte) []byte {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if _, after, ok := strings.Cut(s, "```json"); ok {
		s = after
		if before, _, ok := strings.Cut(s, "```"); ok {
			s = before
		}
	}
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			s = strings.TrimSpace(inner)
		}
	}
	return []byte(s)
}
