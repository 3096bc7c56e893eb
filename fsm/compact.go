package fsm

import (
	"sort"

	"github.com/coregx/ebnf/internal/graph"
)

// linearScanMax is the row length up to which Transition scans linearly
// before switching to binary search.
const linearScanMax = 16

// CompactEdge is one frozen edge: a label plus its target state.
type CompactEdge struct {
	Min    int32
	Max    int32
	Target int32
}

// Compact is an immutable FSM in compressed-sparse-row form. Each state's
// out-edges are sorted by (Min, Max, Target) and duplicates are collapsed.
// Compact values are cheap to copy: the edge rows and accept bitset are
// shared, never mutated. Safe for concurrent reads.
type Compact struct {
	edges  graph.CSR[CompactEdge]
	start  int32
	accept []uint64
	dfa    bool
}

// Freeze consumes the machine into its compact form. The mutable FSM must
// not be used afterwards.
func (m *Machine) Freeze() *Compact {
	n := m.fsm.NumStates()
	rows := make([][]CompactEdge, n)
	for s := 0; s < n; s++ {
		var row []CompactEdge
		m.fsm.Out(StateID(s), func(l Label, dst StateID) bool {
			row = append(row, CompactEdge{Min: l.Min, Max: l.Max, Target: int32(dst)})
			return true
		})
		sort.Slice(row, func(i, j int) bool {
			if row[i].Min != row[j].Min {
				return row[i].Min < row[j].Min
			}
			if row[i].Max != row[j].Max {
				return row[i].Max < row[j].Max
			}
			return row[i].Target < row[j].Target
		})
		// Collapse duplicates introduced by merging.
		w := 0
		for i, e := range row {
			if i > 0 && e == row[w-1] {
				continue
			}
			row[w] = e
			w++
		}
		rows[s] = row[:w]
	}
	accept := make([]uint64, (n+63)/64)
	for _, a := range m.accepts {
		accept[a/64] |= 1 << (uint(a) % 64)
	}
	c := &Compact{
		edges:  graph.BuildCSR(rows),
		start:  int32(m.start),
		accept: accept,
		dfa:    m.dfa,
	}
	m.fsm = nil
	m.accepts = nil
	m.accSet = nil
	return c
}

// NumStates returns the number of states.
func (c *Compact) NumStates() int { return c.edges.NumRows() }

// Start returns the start state.
func (c *Compact) Start() int32 { return c.start }

// IsDFA reports whether the frozen machine carried the DFA invariant.
func (c *Compact) IsDFA() bool { return c.dfa }

// IsAccept reports whether state is accepting.
func (c *Compact) IsAccept(state int32) bool {
	if state < 0 || int(state) >= c.NumStates() {
		return false
	}
	return c.accept[state/64]&(1<<(uint(state)%64)) != 0
}

// NoTransition is returned by Transition when no edge covers the byte.
const NoTransition int32 = -1

// Transition returns the target of the edge of state covering b, or
// NoTransition. Short rows are scanned linearly; long rows use binary
// search for the first edge with Min > b and check its predecessor. Assumes
// the DFA invariant: at most one edge of a state covers any byte.
func (c *Compact) Transition(state int32, b byte) int32 {
	row := c.edges.Row(state)
	v := int32(b)
	if len(row) <= linearScanMax {
		for _, e := range row {
			if e.Min <= v && v <= e.Max {
				return e.Target
			}
			if e.Min > v {
				break
			}
		}
		return NoTransition
	}
	lo, hi := 0, len(row)
	for lo < hi {
		mid := (lo + hi) / 2
		if row[mid].Min <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return NoTransition
	}
	if e := row[lo-1]; e.Min <= v && v <= e.Max {
		return e.Target
	}
	return NoTransition
}

// Edges returns the frozen out-edge row of state. The slice aliases shared
// immutable storage.
func (c *Compact) Edges(state int32) []CompactEdge { return c.edges.Row(state) }

// PossibleRules returns the distinct rule ids on rule-reference edges of
// state, in row order.
func (c *Compact) PossibleRules(state int32) []int32 {
	var rules []int32
	for _, e := range c.edges.Row(state) {
		if e.Min == -1 && e.Max >= 0 {
			dup := false
			for _, r := range rules {
				if r == e.Max {
					dup = true
					break
				}
			}
			if !dup {
				rules = append(rules, e.Max)
			}
		}
	}
	return rules
}

// AcceptsBytes runs the compact DFA over input from the start state.
// Intended for tests; returns false on any missing transition.
func (c *Compact) AcceptsBytes(input []byte) bool {
	state := c.start
	for _, b := range input {
		state = c.Transition(state, b)
		if state == NoTransition {
			return false
		}
	}
	return c.IsAccept(state)
}

// MemorySize returns the approximate heap footprint in bytes: the edge rows,
// the row index, and the accept bitset.
func (c *Compact) MemorySize() int {
	return c.edges.MemorySize(12) + len(c.accept)*8
}
