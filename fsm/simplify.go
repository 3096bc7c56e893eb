package fsm

import (
	"sort"

	"github.com/coregx/ebnf/internal/graph"
)

// SimplifyEpsilons coalesces states across removable epsilon edges, to a
// fixed point. An epsilon edge a->b is removable when b has no other
// in-edges or a has no other out-edges; in either case the two states
// recognize the same continuations and can be fused. The machine is
// simplified in place and finally trimmed to the states reachable from the
// start.
func SimplifyEpsilons(m *Machine) *Machine {
	f := m.fsm
	for {
		var lhs, rhs StateID
		var found bool
		var eid graph.EdgeID
		for s := 0; s < f.NumStates() && !found; s++ {
			f.g.OutEdges(graph.NodeID(s), func(id graph.EdgeID) bool {
				l := f.g.Label(id)
				if !l.IsEpsilon() {
					return true
				}
				a := StateID(f.g.Src(id))
				b := StateID(f.g.Dst(id))
				if a == b {
					return true
				}
				// b sole-entry: reaching b always means having passed a,
				// unless b is the start state. a sole-exit: a's behavior is
				// exactly b's, provided a's accept mark does not leak onto
				// other paths into b.
				okIn := f.g.InDegree(graph.NodeID(b)) == 1 && b != m.start
				okOut := f.g.OutDegree(graph.NodeID(a)) == 1 &&
					(!m.IsAccept(a) || m.IsAccept(b))
				if okIn || okOut {
					lhs, rhs, eid, found = a, b, id, true
					return false
				}
				return true
			})
		}
		if !found {
			break
		}
		f.g.RemoveEdge(eid)
		// Coalesce drops every edge that would become a self-loop of lhs;
		// re-add the labeled ones, which carry language (a star's loop).
		var loops []Label
		for _, n := range []StateID{lhs, rhs} {
			f.Out(n, func(l Label, dst StateID) bool {
				if !l.IsEpsilon() && (dst == lhs || dst == rhs) && (n == rhs || dst == rhs) {
					loops = append(loops, l)
				}
				return true
			})
		}
		f.g.Coalesce(graph.NodeID(lhs), graph.NodeID(rhs))
		for _, l := range loops {
			f.AddLabeled(lhs, lhs, l)
		}
		if m.start == rhs {
			m.start = lhs
		}
		if m.IsAccept(rhs) {
			m.AddAccept(lhs)
		}
		// rhs keeps its accept mark but has no edges; the trailing trim
		// drops it unless it is still reachable, which it is not.
	}
	return m.TrimUnreachable()
}

// MergeEquivalent merges states whose incoming edge sets are identical
// (src, label) multisets: such states are always entered together, so a
// single state accepting when any member accepted preserves the language.
// States with no in-edges, including the start state, are never merged.
// Applied to a fixed point; used to tame the state blow-up of bounded
// repetition unrolling.
func MergeEquivalent(m *Machine) *Machine {
	f := m.fsm
	for {
		type inPair struct {
			src StateID
			l   Label
		}
		sigs := make(map[string][]StateID)
		var order []string
		for s := 0; s < f.NumStates(); s++ {
			if StateID(s) == m.start || f.InDegree(StateID(s)) == 0 {
				continue
			}
			var pairs []inPair
			f.In(StateID(s), func(l Label, src StateID) bool {
				pairs = append(pairs, inPair{src, l})
				return true
			})
			sort.Slice(pairs, func(i, j int) bool {
				if pairs[i].src != pairs[j].src {
					return pairs[i].src < pairs[j].src
				}
				if pairs[i].l.Min != pairs[j].l.Min {
					return pairs[i].l.Min < pairs[j].l.Min
				}
				return pairs[i].l.Max < pairs[j].l.Max
			})
			key := make([]int32, 0, len(pairs)*3)
			for _, p := range pairs {
				key = append(key, int32(p.src), p.l.Min, p.l.Max)
			}
			sig := subsetKey(key)
			if _, ok := sigs[sig]; !ok {
				order = append(order, sig)
			}
			sigs[sig] = append(sigs[sig], StateID(s))
		}

		merged := false
		for _, sig := range order {
			group := sigs[sig]
			if len(group) < 2 {
				continue
			}
			keep := group[0]
			for _, s := range group[1:] {
				f.g.Coalesce(graph.NodeID(keep), graph.NodeID(s))
				if m.IsAccept(s) {
					m.AddAccept(keep)
				}
			}
			merged = true
			break
		}
		if !merged {
			break
		}
	}
	out := m.TrimUnreachable()
	mergeAdjacentEdges(out)
	return out
}
