package grading

import (
	"fmt"
	"strings"
)

// DefaultMemoCapacity bounds the number of search states remembered by a
// single Match call when no capacity is configured.
const DefaultMemoCapacity = 1 << 16

// maxGroups is the width of the used-group bitmask.
const maxGroups = 64

// Assignment is the outcome of matching texts to keyword groups.
type Assignment struct {
	Score int
	Path  []MatchPair
}

// Matcher finds maximum-cardinality one-to-one matchings between texts and
// keyword groups. A text may pair with a group when any keyword of the group
// is a substring of the text. A Matcher holds only configuration and is safe
// for concurrent use; every Match call owns its memo table.
type Matcher struct {
	memoCapacity int
}

// NewMatcher returns a Matcher whose per-call memo table holds at most
// memoCapacity states. A non-positive capacity selects DefaultMemoCapacity.
func NewMatcher(memoCapacity int) *Matcher {
	if memoCapacity <= 0 {
		memoCapacity = DefaultMemoCapacity
	}
	return &Matcher{memoCapacity: memoCapacity}
}

// MemoCapacity returns the configured per-call memo bound.
func (m *Matcher) MemoCapacity() int {
	return m.memoCapacity
}

// Match searches every assignment of texts to unused keyword groups and
// returns the one with the most pairs. The search visits, for each text, the
// "leave unmatched" branch first and then groups in increasing index order; a
// later branch wins only with a strictly higher score, so ties resolve to the
// earliest branch explored and the result is reproducible.
func (m *Matcher) Match(texts []string, groups [][]string) (Assignment, error) {
	if len(groups) > maxGroups {
		return Assignment{}, fmt.Errorf("%w: %d exceeds %d", ErrTooManyGroups, len(groups), maxGroups)
	}
	if len(texts) == 0 || len(groups) == 0 {
		return Assignment{Path: []MatchPair{}}, nil
	}

	s := &search{
		groups:   len(groups),
		texts:    len(texts),
		eligible: eligibility(texts, groups),
		memo:     make(map[memoKey]outcome, memoSizeHint(len(texts), len(groups), m.memoCapacity)),
		capacity: m.memoCapacity,
	}
	best := s.best(0, 0)

	path := make([]MatchPair, 0, best.score)
	for node := best.path; node != nil; node = node.next {
		path = append(path, node.pair)
	}
	return Assignment{Score: best.score, Path: path}, nil
}

// MatchTexts runs Match with the default memo capacity.
func MatchTexts(texts []string, groups [][]string) (Assignment, error) {
	return NewMatcher(0).Match(texts, groups)
}

// pathNode is an immutable list cell; memoized outcomes share tails.
type pathNode struct {
	pair MatchPair
	next *pathNode
}

type memoKey struct {
	used uint64
	idx  int
}

type outcome struct {
	score int
	path  *pathNode
}

type search struct {
	texts    int
	groups   int
	eligible [][]bool
	memo     map[memoKey]outcome
	capacity int
}

// best returns the optimal outcome for texts[idx:] given the used groups.
// The optimum from a state does not depend on how the state was reached,
// which is what makes memoizing by (used, idx) sound.
func (s *search) best(used uint64, idx int) outcome {
	if idx == s.texts {
		return outcome{}
	}
	key := memoKey{used: used, idx: idx}
	if o, ok := s.memo[key]; ok {
		return o
	}

	result := s.best(used, idx+1)
	for j := 0; j < s.groups; j++ {
		bit := uint64(1) << uint(j)
		if used&bit != 0 || !s.eligible[idx][j] {
			continue
		}
		sub := s.best(used|bit, idx+1)
		if sub.score+1 > result.score {
			result = outcome{
				score: sub.score + 1,
				path:  &pathNode{pair: MatchPair{Answer: idx, Group: j}, next: sub.path},
			}
		}
	}

	if len(s.memo) < s.capacity {
		s.memo[key] = result
	}
	return result
}

// eligibility evaluates the substring predicate once per (text, group).
func eligibility(texts []string, groups [][]string) [][]bool {
	out := make([][]bool, len(texts))
	for i, text := range texts {
		row := make([]bool, len(groups))
		for j, keywords := range groups {
			row[j] = containsAny(text, keywords)
		}
		out[i] = row
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func memoSizeHint(n, m, capacity int) int {
	if m >= 30 {
		return capacity
	}
	states := n << uint(m)
	if states > capacity || states <= 0 {
		return capacity
	}
	return states
}
