package grading

import (
	"fmt"
	"math"
)

// Grader scores received payloads against ground-truth records. It is
// stateless apart from matcher configuration; concurrent Grade calls on
// independent records need no synchronization.
type Grader struct {
	matcher *Matcher
}

// NewGrader creates a grader. A nil matcher uses the default memo capacity.
func NewGrader(matcher *Matcher) *Grader {
	if matcher == nil {
		matcher = NewMatcher(0)
	}
	return &Grader{matcher: matcher}
}

// Grade evaluates one received payload:
//
//   - the predicted grouping is validated against the comparable true grouping,
//     and soft NMI is computed only for valid partitions;
//   - answers are matched to the gold "answer judge keyword" groups;
//   - for every matched pair, the answer's reasons are matched to the gold
//     entry's "reason judge keyword" groups.
//
// Every matched pair adds 1 to answerScore, even when the answer has no
// reasons. Both scores are normalized by sqrt(|answers| * |gold answers|).
func (g *Grader) Grade(received *Received, truth *GroundTruth) (*Result, error) {
	if received == nil || truth == nil {
		return nil, ErrNilInput
	}

	predicted := received.Predicted()
	trueGrouping := received.TrueGrouping(truth)

	result := &Result{
		ID:            truth.ID,
		CorrectAnswer: truth.Answers,
		GotAnswer:     received.Answers,
		NMICorrect:    trueGrouping,
		NMIGot:        predicted,
		Matches:       []PairResult{},
	}
	result.BadPartition = ValidatePartition(predicted, trueGrouping)
	if result.BadPartition == PartitionNormal {
		result.NMI = SoftNMI(trueGrouping, predicted)
	}

	answers := make([]string, len(received.Answers))
	for i, a := range received.Answers {
		answers[i] = a.Answer
	}
	infoKeywords := make([][]string, len(truth.Answers))
	for i, a := range truth.Answers {
		infoKeywords[i] = a.Keywords
	}

	assignment, err := g.matcher.Match(answers, infoKeywords)
	if err != nil {
		return nil, fmt.Errorf("match answers: %w", err)
	}
	result.AnswerMatchCount = assignment.Score

	var answerScore, reasonScore float64
	for _, pair := range assignment.Path {
		reasonTexts := received.Answers[pair.Answer].ReasonTexts()
		goldReasons := truth.Answers[pair.Group].Reasons
		reasonKeywords := make([][]string, len(goldReasons))
		for i, r := range goldReasons {
			reasonKeywords[i] = r.Keywords
		}

		reasons, err := g.matcher.Match(reasonTexts, reasonKeywords)
		if err != nil {
			return nil, fmt.Errorf("match reasons of answer %d: %w", pair.Answer, err)
		}
		if len(reasonTexts) > 0 && len(reasonKeywords) > 0 {
			reasonScore += float64(reasons.Score) / math.Sqrt(float64(len(reasonTexts)*len(reasonKeywords)))
		}
		answerScore++
		result.Matches = append(result.Matches, PairResult{Match: pair, ReasonMatches: reasons.Score})
	}

	if len(answers) > 0 && len(infoKeywords) > 0 {
		norm := math.Sqrt(float64(len(answers) * len(infoKeywords)))
		result.AnswerScore = answerScore / norm
		result.ReasonScore = reasonScore / norm
	}
	return result, nil
}
