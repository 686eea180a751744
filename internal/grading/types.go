package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Element identifies an information source (a crawled website) inside a record.
type Element int

// UnmarshalJSON accepts both numbers and numeric strings; model output quotes
// indices often enough that rejecting them would discard otherwise valid answers.
func (e *Element) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("element %q is not an integer", s)
		}
		*e = Element(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("element: %w", err)
	}
	*e = Element(v)
	return nil
}

// Group is an unordered collection of elements.
type Group []Element

// Grouping is an ordered sequence of groups. True groupings may overlap;
// predicted groupings must be strict partitions.
type Grouping []Group

// Elements returns the set of elements referenced by any group.
func (g Grouping) Elements() map[Element]struct{} {
	set := make(map[Element]struct{})
	for _, group := range g {
		for _, e := range group {
			set[e] = struct{}{}
		}
	}
	return set
}

// RecordID is the identifier of a ground-truth record. Datasets use both
// numeric and string ids, so it decodes either form.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// Reason is one justification sentence of a candidate answer.
type Reason struct {
	Answer string `json:"answer"`
}

// UnmarshalJSON accepts either a bare string or an object with an "answer" field.
func (r *Reason) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Answer)
	}
	var obj struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("reason: %w", err)
	}
	r.Answer = obj.Answer
	return nil
}

// CandidateAnswer is one answer produced by the model under evaluation.
type CandidateAnswer struct {
	Index   []Element `json:"index"`
	Answer  string    `json:"answer"`
	Reasons []Reason  `json:"reason"`
}

// ReasonTexts returns the justification texts in order.
func (a CandidateAnswer) ReasonTexts() []string {
	texts := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		texts[i] = r.Answer
	}
	return texts
}

// TruthReason is a reference justification described by keywords.
type TruthReason struct {
	Answer   string   `json:"answer,omitempty"`
	Keywords []string `json:"reason judge keyword"`
}

// TruthAnswer is one gold answer group of a ground-truth record.
type TruthAnswer struct {
	Index    []Element     `json:"index"`
	Answer   string        `json:"answer,omitempty"`
	Keywords []string      `json:"answer judge keyword"`
	Reasons  []TruthReason `json:"reason"`
}

// GroundTruth is the gold record a received payload is graded against.
type GroundTruth struct {
	ID      RecordID      `json:"id"`
	Answers []TruthAnswer `json:"answers"`

	// FinalAnswer, when present, carries the grouping used to derive the
	// comparable true grouping for flat received payloads.
	FinalAnswer *FinalAnswer `json:"final_answer,omitempty"`
}

// FinalAnswer holds the reference answer grouping of a record.
type FinalAnswer struct {
	Answers []TruthAnswer `json:"answers"`
}

// groupingSource returns the answers whose indices form the gold grouping.
func (t *GroundTruth) groupingSource() []TruthAnswer {
	if t.FinalAnswer != nil && len(t.FinalAnswer.Answers) > 0 {
		return t.FinalAnswer.Answers
	}
	return t.Answers
}

// MatchPair pairs a text index with a keyword group index.
type MatchPair struct {
	Answer int
	Group  int
}

// MarshalJSON encodes the pair as a two-element array.
func (p MatchPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Answer, p.Group})
}

func (p *MatchPair) UnmarshalJSON(data []byte) error {
	var arr [2]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("match pair: %w", err)
	}
	p.Answer, p.Group = arr[0], arr[1]
	return nil
}

// PairResult records one matched answer and how many of its reasons matched.
type PairResult struct {
	Match         MatchPair `json:"currMatch"`
	ReasonMatches int       `json:"currReasonMatch"`
}

// Result is the evaluation of one received payload against its ground truth.
type Result struct {
	ID               RecordID          `json:"id"`
	CorrectAnswer    []TruthAnswer     `json:"correctAnswer"`
	GotAnswer        []CandidateAnswer `json:"gotAnswer"`
	BadPartition     PartitionStatus   `json:"badPartition"`
	NMI              float64           `json:"NMI"`
	NMICorrect       Grouping          `json:"NMIcorrect"`
	NMIGot           Grouping          `json:"NMIgot"`
	AnswerMatchCount int               `json:"answerMatchCount"`
	Matches          []PairResult      `json:"match"`
	AnswerScore      float64           `json:"answerScore"`
	ReasonScore      float64           `json:"reasonScore"`
}
