package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/haasonsaas/confrag/internal/config"
	"github.com/haasonsaas/confrag/internal/grading"
)

// explicitReceived and flatReceived are the two accepted layouts of a
// received record.
type explicitReceived struct {
	Answer struct {
		Answers []grading.CandidateAnswer `json:"answers"`
	} `json:"answer"`
	Info grading.Grouping `json:"info"`
}

type flatReceived struct {
	Answers []grading.CandidateAnswer `json:"answers"`
}

var schemaBuilders = map[string]func() ([]byte, error){
	"received": func() ([]byte, error) {
		explicit := reflectSchema(&explicitReceived{})
		flat := reflectSchema(&flatReceived{})
		explicit.Version, flat.Version = "", ""
		return marshalSchema(&jsonschema.Schema{
			Version: jsonschema.Version,
			Title:   "received record",
			AnyOf:   []*jsonschema.Schema{explicit, flat},
		})
	},
	"truth": func() ([]byte, error) {
		s := reflectSchema(&grading.GroundTruth{})
		s.Title = "ground truth record"
		return marshalSchema(s)
	},
	"result": func() ([]byte, error) {
		s := reflectSchema(&grading.Result{})
		s.Title = "grading result"
		return marshalSchema(s)
	},
	"config": config.JSONSchema,
}

func schemaKinds() []string {
	kinds := make([]string, 0, len(schemaBuilders))
	for kind := range schemaBuilders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func schemaFor(kind string) ([]byte, error) {
	build, ok := schemaBuilders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (expected one of %v)", kind, schemaKinds())
	}
	return build()
}

func reflectSchema(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Mapper:         mapGradingType,
	}
	return r.Reflect(v)
}

// mapGradingType describes the grading types whose JSON form differs from
// their Go layout.
func mapGradingType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(grading.RecordID("")):
		return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{{Type: "string"}, {Type: "integer"}}}
	case reflect.TypeOf(grading.Element(0)):
		return &jsonschema.Schema{
			AnyOf:       []*jsonschema.Schema{{Type: "integer"}, {Type: "string", Pattern: `^\s*-?\d+\s*$`}},
			Description: "information source index",
		}
	case reflect.TypeOf(grading.Reason{}):
		props := jsonschema.NewProperties()
		props.Set("answer", &jsonschema.Schema{Type: "string"})
		return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "object", Properties: props},
		}}
	case reflect.TypeOf(grading.MatchPair{}):
		return &jsonschema.Schema{
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "integer"},
			Description: "[answer index, gold answer index]",
		}
	case reflect.TypeOf(grading.PartitionStatus(0)):
		statuses := grading.PartitionStatuses()
		enum := make([]any, len(statuses))
		for i, s := range statuses {
			enum[i] = s.String()
		}
		return &jsonschema.Schema{Type: "string", Enum: enum}
	}
	return nil
}

func marshalSchema(s *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
