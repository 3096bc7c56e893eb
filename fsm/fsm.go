// Package fsm implements finite-state machines over byte-range, epsilon, and
// rule-reference labels.
//
// The mutable FSM is a labeled multigraph backed by an edge arena with
// doubly-linked adjacency chains. Machines are built by the construction
// algebra (Literal, Concat, Union, Star, ...), refined by the set algorithms
// (Determinize, Minimize, Intersect, Complement), and finally frozen into an
// immutable Compact form whose edge rows live in a CSR array.
package fsm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/ebnf/internal/graph"
	"github.com/coregx/ebnf/internal/sparse"
)

// StateID identifies an FSM state. States are numbered 0..NumStates-1.
type StateID int32

// NoState is the sentinel returned when a lookup has no target state.
const NoState StateID = -1

// Label is an edge label. Three encodings share the two fields:
//
//	byte range:     0 <= Min <= Max (Max <= 255 for byte edges, larger
//	                values appear transiently in character-class work)
//	epsilon:        Min == -1, Max == -1
//	rule reference: Min == -1, Max == rule id >= 0
type Label struct {
	Min int32
	Max int32
}

// Epsilon returns the epsilon label.
func Epsilon() Label { return Label{Min: -1, Max: -1} }

// Range returns a byte-range label covering [lo, hi].
func Range(lo, hi byte) Label { return Label{Min: int32(lo), Max: int32(hi)} }

// RuleRef returns a rule-reference label for the given rule id.
func RuleRef(rule int32) Label { return Label{Min: -1, Max: rule} }

// IsEpsilon reports whether l is the epsilon label.
func (l Label) IsEpsilon() bool { return l.Min == -1 && l.Max == -1 }

// IsRuleRef reports whether l references a rule.
func (l Label) IsRuleRef() bool { return l.Min == -1 && l.Max >= 0 }

// IsRange reports whether l is a byte-range label.
func (l Label) IsRange() bool { return l.Min >= 0 }

// Rule returns the referenced rule id for rule-reference labels.
func (l Label) Rule() int32 { return l.Max }

// Covers reports whether a byte-range label covers b.
func (l Label) Covers(b byte) bool {
	return l.Min >= 0 && l.Min <= int32(b) && int32(b) <= l.Max
}

func (l Label) String() string {
	switch {
	case l.IsEpsilon():
		return "eps"
	case l.IsRuleRef():
		return fmt.Sprintf("rule(%d)", l.Max)
	case l.Min == l.Max:
		return fmt.Sprintf("0x%02X", l.Min)
	default:
		return fmt.Sprintf("[0x%02X-0x%02X]", l.Min, l.Max)
	}
}

// FSM is a mutable finite-state machine. It owns its edge storage. FSM is
// not safe for concurrent use; frozen Compact values are.
type FSM struct {
	g *graph.Graph[Label]
}

// New creates an empty FSM.
func New() *FSM {
	return &FSM{g: graph.New[Label](8, 16)}
}

// NumStates returns the number of states.
func (f *FSM) NumStates() int { return f.g.NumNodes() }

// NumEdges returns the number of live edges.
func (f *FSM) NumEdges() int { return f.g.NumEdges() }

// AddState adds a fresh state and returns its id.
func (f *FSM) AddState() StateID { return StateID(f.g.AddNode()) }

// AddEdge adds a byte-range edge [min, max] from one state to another.
func (f *FSM) AddEdge(from, to StateID, min, max int32) {
	f.g.AddEdge(graph.NodeID(from), graph.NodeID(to), Label{Min: min, Max: max})
}

// AddByte adds a single-byte edge.
func (f *FSM) AddByte(from, to StateID, b byte) {
	f.AddEdge(from, to, int32(b), int32(b))
}

// AddEpsilon adds an epsilon edge.
func (f *FSM) AddEpsilon(from, to StateID) {
	f.g.AddEdge(graph.NodeID(from), graph.NodeID(to), Epsilon())
}

// AddRuleRef adds a rule-reference edge.
func (f *FSM) AddRuleRef(from, to StateID, rule int32) {
	f.g.AddEdge(graph.NodeID(from), graph.NodeID(to), RuleRef(rule))
}

// AddLabeled adds an edge with an explicit label.
func (f *FSM) AddLabeled(from, to StateID, l Label) {
	f.g.AddEdge(graph.NodeID(from), graph.NodeID(to), l)
}

// Out calls fn with the label and target of every out-edge of state.
// Returning false stops the walk. Edges must not be added or removed during
// the walk.
func (f *FSM) Out(state StateID, fn func(Label, StateID) bool) {
	f.g.OutEdges(graph.NodeID(state), func(id graph.EdgeID) bool {
		return fn(f.g.Label(id), StateID(f.g.Dst(id)))
	})
}

// In calls fn with the label and source of every in-edge of state.
func (f *FSM) In(state StateID, fn func(Label, StateID) bool) {
	f.g.InEdges(graph.NodeID(state), func(id graph.EdgeID) bool {
		return fn(f.g.Label(id), StateID(f.g.Src(id)))
	})
}

// OutDegree returns the number of out-edges of state.
func (f *FSM) OutDegree(state StateID) int { return f.g.OutDegree(graph.NodeID(state)) }

// InDegree returns the number of in-edges of state.
func (f *FSM) InDegree(state StateID) int { return f.g.InDegree(graph.NodeID(state)) }

// Absorb copies all states and edges of other into f and returns the offset
// by which other's state ids were shifted: other's state s maps to s+offset.
func (f *FSM) Absorb(other *FSM) StateID {
	offset := StateID(f.NumStates())
	for i := 0; i < other.NumStates(); i++ {
		f.AddState()
	}
	for i := 0; i < other.NumStates(); i++ {
		src := StateID(i)
		other.Out(src, func(l Label, dst StateID) bool {
			f.AddLabeled(src+offset, dst+offset, l)
			return true
		})
	}
	return offset
}

// GetNextState performs a single deterministic step: the target of the first
// out-edge of from whose byte range covers b, or NoState. On a DFA at most
// one edge can match; on an NFA the first match in chain order wins.
func (f *FSM) GetNextState(from StateID, b byte) StateID {
	next := NoState
	f.Out(from, func(l Label, dst StateID) bool {
		if l.Covers(b) {
			next = dst
			return false
		}
		return true
	})
	return next
}

// PossibleRules returns the distinct rule ids on rule-reference out-edges of
// state, in ascending order.
func (f *FSM) PossibleRules(state StateID) []int32 {
	var rules []int32
	f.Out(state, func(l Label, _ StateID) bool {
		if l.IsRuleRef() {
			for _, r := range rules {
				if r == l.Rule() {
					return true
				}
			}
			rules = append(rules, l.Rule())
		}
		return true
	})
	sort.Slice(rules, func(i, j int) bool { return rules[i] < rules[j] })
	return rules
}

// EpsilonClosure grows set to the least superset of itself closed under
// epsilon edges. Members are visited in insertion order, so closure output
// is deterministic for a given input order.
func (f *FSM) EpsilonClosure(set *sparse.Set) {
	set.Grow(f.NumStates())
	for i := 0; i < set.Len(); i++ {
		f.Out(StateID(set.At(i)), func(l Label, dst StateID) bool {
			if l.IsEpsilon() {
				set.Insert(int32(dst))
			}
			return true
		})
	}
}

// Closure returns the epsilon closure of states as a fresh slice in
// deterministic worklist order.
func (f *FSM) Closure(states []StateID) []StateID {
	set := sparse.New(f.NumStates())
	for _, s := range states {
		set.Insert(int32(s))
	}
	f.EpsilonClosure(set)
	out := make([]StateID, set.Len())
	for i, v := range set.Dense() {
		out[i] = StateID(v)
	}
	return out
}

// Advance returns the set of states reachable from states by consuming the
// byte b. When close is true the result is epsilon-closed; otherwise the
// caller is responsible for closing the input before and the output after.
func (f *FSM) Advance(states []StateID, b byte, close bool) []StateID {
	return f.advance(states, func(l Label) bool { return l.Covers(b) }, close)
}

// AdvanceRule returns the set of states reachable from states by following
// rule-reference edges for the given rule id.
func (f *FSM) AdvanceRule(states []StateID, rule int32, close bool) []StateID {
	return f.advance(states, func(l Label) bool {
		return l.IsRuleRef() && l.Rule() == rule
	}, close)
}

func (f *FSM) advance(states []StateID, match func(Label) bool, close bool) []StateID {
	set := sparse.New(f.NumStates())
	for _, s := range states {
		f.Out(s, func(l Label, dst StateID) bool {
			if match(l) {
				set.Insert(int32(dst))
			}
			return true
		})
	}
	if close {
		f.EpsilonClosure(set)
	}
	out := make([]StateID, set.Len())
	for i, v := range set.Dense() {
		out[i] = StateID(v)
	}
	return out
}

// RebuildWithMapping produces a fresh FSM with n states under the given
// relabeling. States mapped to NoState are dropped along with their edges;
// edges between surviving states are carried over. Several old states may
// map to the same new state, which merges them.
func (f *FSM) RebuildWithMapping(mapping []StateID, n int) *FSM {
	out := New()
	for i := 0; i < n; i++ {
		out.AddState()
	}
	for old := 0; old < f.NumStates(); old++ {
		src := mapping[old]
		if src == NoState {
			continue
		}
		f.Out(StateID(old), func(l Label, dst StateID) bool {
			if nd := mapping[dst]; nd != NoState {
				out.AddLabeled(src, nd, l)
			}
			return true
		})
	}
	return out
}

// WellFormed reports whether the backing graph's adjacency chains and degree
// counters agree. Used in debug assertions and tests.
func (f *FSM) WellFormed() bool { return f.g.WellFormed() }

// Dump returns a deterministic multi-line description of the FSM, with each
// state's out-edges sorted by label and target. Intended for tests.
func (f *FSM) Dump() string {
	var b strings.Builder
	for s := 0; s < f.NumStates(); s++ {
		type oe struct {
			l   Label
			dst StateID
		}
		var edges []oe
		f.Out(StateID(s), func(l Label, dst StateID) bool {
			edges = append(edges, oe{l, dst})
			return true
		})
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].l.Min != edges[j].l.Min {
				return edges[i].l.Min < edges[j].l.Min
			}
			if edges[i].l.Max != edges[j].l.Max {
				return edges[i].l.Max < edges[j].l.Max
			}
			return edges[i].dst < edges[j].dst
		})
		fmt.Fprintf(&b, "%d:", s)
		for _, e := range edges {
			fmt.Fprintf(&b, " %s->%d", e.l, e.dst)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
