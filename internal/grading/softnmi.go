package grading

import (
	"math"
	"sort"
)

// membership maps each element to the indices of the groups containing it.
// An element listed twice in one group is recorded twice, which lowers its
// weight the same way a second group would.
type membership struct {
	groups map[Element][]int
	// nonEmpty lists, in order, the groups that contain at least one element.
	nonEmpty []int
}

func buildMembership(g Grouping) membership {
	m := membership{groups: make(map[Element][]int)}
	for idx, group := range g {
		if len(group) == 0 {
			continue
		}
		m.nonEmpty = append(m.nonEmpty, idx)
		for _, e := range group {
			m.groups[e] = append(m.groups[e], idx)
		}
	}
	return m
}

// weight returns 1/|memberships(x)|, or 0 when x belongs to no group.
func (m membership) weight(x Element) float64 {
	n := len(m.groups[x])
	if n == 0 {
		return 0
	}
	return 1 / float64(n)
}

// distinct returns the distinct group indices of x in first-seen order.
func (m membership) distinct(x Element) []int {
	idxs := m.groups[x]
	if len(idxs) < 2 {
		return idxs
	}
	out := make([]int, 0, len(idxs))
	seen := make(map[int]struct{}, len(idxs))
	for _, i := range idxs {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

// SoftNMI computes normalized mutual information between a true and a
// predicted grouping while allowing elements to belong to several groups.
// Each membership of an element contributes 1/k of it, where k is the
// element's number of memberships in that grouping. For hard clusterings the
// result equals classical NMI. Duplicate memberships on the predicted side
// spread an element's mass across groups, which usually lowers the score. The
// result lies in [0, 1] and is 0 when both groupings have zero entropy.
func SoftNMI(truth, pred Grouping) float64 {
	elements := sortedUnion(truth, pred)
	n := float64(len(elements))
	if n == 0 {
		return 0
	}

	tm := buildMembership(truth)
	pm := buildMembership(pred)

	// Marginals and the joint are accumulated in element order so the sums
	// are reproducible.
	pTrue := make(map[int]float64, len(tm.nonEmpty))
	pPred := make(map[int]float64, len(pm.nonEmpty))
	joint := make(map[[2]int]float64)
	for _, x := range elements {
		wt := tm.weight(x)
		wp := pm.weight(x)
		ti := tm.distinct(x)
		pj := pm.distinct(x)
		for _, i := range ti {
			pTrue[i] += wt
		}
		for _, j := range pj {
			pPred[j] += wp
		}
		for _, i := range ti {
			for _, j := range pj {
				joint[[2]int{i, j}] += wt * wp
			}
		}
	}

	mutual := 0.0
	for _, i := range tm.nonEmpty {
		for _, j := range pm.nonEmpty {
			pij := joint[[2]int{i, j}] / n
			if pij <= 0 {
				continue
			}
			pi := pTrue[i] / n
			pj := pPred[j] / n
			mutual += pij * math.Log(pij/(pi*pj))
		}
	}

	hTrue := entropy(tm.nonEmpty, pTrue, n)
	hPred := entropy(pm.nonEmpty, pPred, n)
	if hTrue+hPred <= 0 {
		return 0
	}
	return 2 * mutual / (hTrue + hPred)
}

func entropy(groups []int, mass map[int]float64, n float64) float64 {
	h := 0.0
	for _, g := range groups {
		p := mass[g] / n
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	return h
}

func sortedUnion(a, b Grouping) []Element {
	set := a.Elements()
	for e := range b.Elements() {
		set[e] = struct{}{}
	}
	out := make([]Element, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
