package grading

import (
	"encoding/json"
	"fmt"
)

// Shape tells how a received payload supplies its comparable true grouping.
type Shape int

const (
	// ShapeExplicit payloads carry {answer:{answers:[...]}, info:[[...]]}; the
	// info grouping is the true grouping as-is.
	ShapeExplicit Shape = iota + 1
	// ShapeFlat payloads carry {answers:[...]}; the true grouping is derived
	// from the ground truth restricted to the referenced elements.
	ShapeFlat
)

func (s Shape) String() string {
	switch s {
	case ShapeExplicit:
		return "explicit"
	case ShapeFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// Received is a received payload resolved into one of its two shapes.
type Received struct {
	Shape   Shape
	Answers []CandidateAnswer
	// Info is the explicit true grouping; only set for ShapeExplicit.
	Info Grouping
}

// ParseReceived decodes a received payload and resolves its shape. Payloads
// with both "answer" and "info" keys are explicit; otherwise an "answers" key
// makes them flat. Anything else fails with ErrStructuralFormat.
func ParseReceived(data []byte) (*Received, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructuralFormat, err)
	}
	return resolveReceived(raw)
}

// UnmarshalJSON lets Received be embedded in larger documents.
func (r *Received) UnmarshalJSON(data []byte) error {
	parsed, err := ParseReceived(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// MarshalJSON writes the payload back in its original shape.
func (r Received) MarshalJSON() ([]byte, error) {
	if r.Shape == ShapeExplicit {
		return json.Marshal(struct {
			Answer struct {
				Answers []CandidateAnswer `json:"answers"`
			} `json:"answer"`
			Info Grouping `json:"info"`
		}{
			Answer: struct {
				Answers []CandidateAnswer `json:"answers"`
			}{Answers: r.Answers},
			Info: r.Info,
		})
	}
	return json.Marshal(struct {
		Answers []CandidateAnswer `json:"answers"`
	}{Answers: r.Answers})
}

func resolveReceived(raw map[string]json.RawMessage) (*Received, error) {
	answerRaw, hasAnswer := raw["answer"]
	infoRaw, hasInfo := raw["info"]
	if hasAnswer && hasInfo {
		var wrapper struct {
			Answers *[]CandidateAnswer `json:"answers"`
		}
		if err := json.Unmarshal(answerRaw, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: answer: %v", ErrStructuralFormat, err)
		}
		if wrapper.Answers == nil {
			return nil, fmt.Errorf("%w: answer has no answers list", ErrStructuralFormat)
		}
		var info Grouping
		if err := json.Unmarshal(infoRaw, &info); err != nil {
			return nil, fmt.Errorf("%w: info: %v", ErrStructuralFormat, err)
		}
		return &Received{Shape: ShapeExplicit, Answers: *wrapper.Answers, Info: info}, nil
	}

	if answersRaw, ok := raw["answers"]; ok {
		var answers []CandidateAnswer
		if err := json.Unmarshal(answersRaw, &answers); err != nil {
			return nil, fmt.Errorf("%w: answers: %v", ErrStructuralFormat, err)
		}
		return &Received{Shape: ShapeFlat, Answers: answers}, nil
	}

	return nil, fmt.Errorf("%w: expected {answer, info} or {answers}", ErrStructuralFormat)
}

// Predicted returns the candidate grouping, one group per answer.
func (r *Received) Predicted() Grouping {
	pred := make(Grouping, len(r.Answers))
	for i, a := range r.Answers {
		pred[i] = Group(a.Index)
	}
	return pred
}

// TrueGrouping returns the grouping the prediction is compared with.
func (r *Received) TrueGrouping(truth *GroundTruth) Grouping {
	if r.Shape == ShapeExplicit {
		return r.Info
	}

	referenced := make(map[Element]struct{})
	for _, a := range r.Answers {
		for _, e := range a.Index {
			referenced[e] = struct{}{}
		}
	}

	out := Grouping{}
	for _, gold := range truth.groupingSource() {
		var group Group
		for _, e := range gold.Index {
			if _, ok := referenced[e]; ok {
				group = append(group, e)
			}
		}
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}
