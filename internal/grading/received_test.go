package grading

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseReceivedShapes(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantShape Shape
		wantErr   bool
	}{
		{name: "explicit", payload: `{"answer": {"answers": []}, "info": [[1]]}`, wantShape: ShapeExplicit},
		{name: "flat", payload: `{"answers": [{"index": [1], "answer": "x", "reason": []}]}`, wantShape: ShapeFlat},
		{name: "explicit wins over flat", payload: `{"answer": {"answers": []}, "info": [], "answers": []}`, wantShape: ShapeExplicit},
		{name: "answer without info is not explicit", payload: `{"answer": {"answers": []}, "answers": []}`, wantShape: ShapeFlat},
		{name: "unknown keys", payload: `{"result": []}`, wantErr: true},
		{name: "answer missing answers list", payload: `{"answer": {}, "info": []}`, wantErr: true},
		{name: "not an object", payload: `[1, 2]`, wantErr: true},
		{name: "malformed index", payload: `{"answers": [{"index": ["x"], "answer": ""}]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReceived([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrStructuralFormat) {
					t.Fatalf("expected ErrStructuralFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Shape != tt.wantShape {
				t.Fatalf("shape = %v, want %v", got.Shape, tt.wantShape)
			}
		})
	}
}

func TestReceivedLenientFields(t *testing.T) {
	r, err := ParseReceived([]byte(`{"answers": [
	  {"index": ["1", 2, " 3 "], "answer": "a", "reason": ["plain", {"answer": "object", "source": 2}]}
	]}`))
	if err != nil {
		t.Fatalf("ParseReceived: %v", err)
	}
	if !reflect.DeepEqual(r.Answers[0].Index, []Element{1, 2, 3}) {
		t.Fatalf("index = %v", r.Answers[0].Index)
	}
	if got := r.Answers[0].ReasonTexts(); !reflect.DeepEqual(got, []string{"plain", "object"}) {
		t.Fatalf("reasons = %v", got)
	}
}

func TestTrueGroupingDerivation(t *testing.T) {
	truth := &GroundTruth{
		Answers: []TruthAnswer{{Index: []Element{9}}},
		FinalAnswer: &FinalAnswer{Answers: []TruthAnswer{
			{Index: []Element{1, 2, 3}},
			{Index: []Element{4}},
			{Index: []Element{5, 6}},
		}},
	}
	r := &Received{Shape: ShapeFlat, Answers: []CandidateAnswer{
		{Index: []Element{3, 1}},
		{Index: []Element{6}},
	}}
	want := Grouping{{1, 3}, {6}}
	if got := r.TrueGrouping(truth); !reflect.DeepEqual(got, want) {
		t.Fatalf("TrueGrouping() = %v, want %v", got, want)
	}

	truth.FinalAnswer = nil
	if got := r.TrueGrouping(truth); len(got) != 0 {
		t.Fatalf("without final_answer grouping should come from answers, got %v", got)
	}

	explicit := &Received{Shape: ShapeExplicit, Info: Grouping{{7}}}
	if got := explicit.TrueGrouping(truth); !reflect.DeepEqual(got, Grouping{{7}}) {
		t.Fatalf("explicit grouping = %v", got)
	}
}

func TestReceivedMarshalKeepsShape(t *testing.T) {
	for _, payload := range []string{
		`{"answer": {"answers": [{"index": [1], "answer": "a", "reason": []}]}, "info": [[1]]}`,
		`{"answers": [{"index": [1], "answer": "a", "reason": [{"answer": "r"}]}]}`,
	} {
		var r Received
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		again, err := ParseReceived(data)
		if err != nil {
			t.Fatalf("reparse %s: %v", data, err)
		}
		if !reflect.DeepEqual(*again, r) {
			t.Fatalf("shape lost: %+v vs %+v", again, r)
		}
	}
}

func TestRecordIDDecoding(t *testing.T) {
	var truth GroundTruth
	if err := json.Unmarshal([]byte(`{"id": "q-7", "answers": []}`), &truth); err != nil {
		t.Fatal(err)
	}
	if truth.ID != "q-7" {
		t.Fatalf("id = %q", truth.ID)
	}
	if err := json.Unmarshal([]byte(`{"id": 12, "answers": []}`), &truth); err != nil {
		t.Fatal(err)
	}
	if truth.ID != "12" {
		t.Fatalf("id = %q", truth.ID)
	}
}
