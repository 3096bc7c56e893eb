package fsm

import (
	"sort"

	"github.com/coregx/ebnf/internal/graph"
	"github.com/coregx/ebnf/internal/sparse"
)

// DefaultStateLimit is the default budget for state-producing algorithms.
const DefaultStateLimit = 1_000_000

func subsetKey(states []int32) string {
	b := make([]byte, 0, len(states)*4)
	for _, s := range states {
		b = append(b, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	}
	return string(b)
}

// Determinize converts m into a language-equivalent DFA by subset
// construction. DFA states are epsilon closures of NFA state subsets,
// canonicalized as sorted vectors. Byte edges are split on the range
// boundaries of the member edges so that the outgoing ranges of a DFA state
// are disjoint, and adjacent ranges that lead to the same DFA state are then
// fused into one edge; rule-reference edges are carried over, one per
// distinct rule id. Returns ErrStatesExceeded (wrapped in a LimitError) when
// more than limit DFA states are created; limit <= 0 means
// DefaultStateLimit.
func Determinize(m *Machine, limit int) (*Machine, error) {
	if limit <= 0 {
		limit = DefaultStateLimit
	}
	src := m.fsm

	out := New()
	res := NewMachine(out, 0, nil)
	res.dfa = true

	ids := make(map[string]StateID)
	var subsets [][]int32

	intern := func(states []int32) (StateID, bool, error) {
		sorted := make([]int32, len(states))
		copy(sorted, states)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		key := subsetKey(sorted)
		if id, ok := ids[key]; ok {
			return id, false, nil
		}
		if len(subsets) >= limit {
			return NoState, false, &LimitError{Op: "determinize", Limit: limit}
		}
		id := out.AddState()
		ids[key] = id
		subsets = append(subsets, sorted)
		accepting := false
		for _, s := range sorted {
			if m.IsAccept(StateID(s)) {
				accepting = true
				break
			}
		}
		if accepting {
			res.AddAccept(id)
		}
		return id, true, nil
	}

	closure := sparse.New(src.NumStates())
	closure.Insert(int32(m.start))
	src.EpsilonClosure(closure)
	startID, _, err := intern(closure.Dense())
	if err != nil {
		return nil, err
	}
	res.start = startID

	for next := 0; next < len(subsets); next++ {
		members := subsets[next]
		from := StateID(next)

		type ranged struct {
			min, max int32
			dst      int32
		}
		var edges []ranged
		ruleTargets := make(map[int32][]int32)
		var ruleOrder []int32
		for _, s := range members {
			src.Out(StateID(s), func(l Label, dst StateID) bool {
				switch {
				case l.IsRange():
					edges = append(edges, ranged{l.Min, l.Max, int32(dst)})
				case l.IsRuleRef():
					if _, ok := ruleTargets[l.Rule()]; !ok {
						ruleOrder = append(ruleOrder, l.Rule())
					}
					ruleTargets[l.Rule()] = append(ruleTargets[l.Rule()], int32(dst))
				}
				return true
			})
		}

		// Minimal sub-intervals between the distinct range boundaries.
		bounds := make([]int32, 0, len(edges)*2)
		for _, e := range edges {
			bounds = append(bounds, e.min, e.max+1)
		}
		sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
		bounds = dedupInt32(bounds)

		for i := 0; i+1 < len(bounds); i++ {
			lo, hi := bounds[i], bounds[i+1]-1
			closure.Clear()
			for _, e := range edges {
				if e.min <= lo && lo <= e.max {
					closure.Insert(e.dst)
				}
			}
			if closure.Len() == 0 {
				continue
			}
			src.EpsilonClosure(closure)
			to, _, err := intern(closure.Dense())
			if err != nil {
				return nil, err
			}
			out.AddEdge(from, to, lo, hi)
		}

		for _, rule := range ruleOrder {
			closure.Clear()
			for _, t := range ruleTargets[rule] {
				closure.Insert(t)
			}
			src.EpsilonClosure(closure)
			to, _, err := intern(closure.Dense())
			if err != nil {
				return nil, err
			}
			out.AddRuleRef(from, to, rule)
		}
	}

	mergeAdjacentEdges(res)
	return res, nil
}

func dedupInt32(v []int32) []int32 {
	if len(v) == 0 {
		return v
	}
	w := v[:1]
	for _, x := range v[1:] {
		if x != w[len(w)-1] {
			w = append(w, x)
		}
	}
	return w
}

// mergeAdjacentEdges rebuilds each state's out-edges, collapsing duplicate
// labels and fusing adjacent byte ranges that share a target.
func mergeAdjacentEdges(m *Machine) {
	f := m.fsm
	type oe struct {
		l   Label
		dst StateID
	}
	for s := 0; s < f.NumStates(); s++ {
		var edges []oe
		f.Out(StateID(s), func(l Label, dst StateID) bool {
			edges = append(edges, oe{l, dst})
			return true
		})
		if len(edges) < 2 {
			continue
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].l.Min != edges[j].l.Min {
				return edges[i].l.Min < edges[j].l.Min
			}
			if edges[i].l.Max != edges[j].l.Max {
				return edges[i].l.Max < edges[j].l.Max
			}
			return edges[i].dst < edges[j].dst
		})
		merged := edges[:1]
		for _, e := range edges[1:] {
			last := &merged[len(merged)-1]
			if e.l == last.l && e.dst == last.dst {
				continue
			}
			if e.l.IsRange() && last.l.IsRange() && e.dst == last.dst && e.l.Min == last.l.Max+1 {
				last.l.Max = e.l.Max
				continue
			}
			merged = append(merged, e)
		}
		if len(merged) == len(edges) {
			continue
		}
		var ids []graph.EdgeID
		f.g.OutEdges(graph.NodeID(s), func(id graph.EdgeID) bool {
			ids = append(ids, id)
			return true
		})
		for _, id := range ids {
			f.g.RemoveEdge(id)
		}
		for _, e := range merged {
			f.AddLabeled(StateID(s), e.dst, e.l)
		}
	}
}
