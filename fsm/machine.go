package fsm

import "github.com/coregx/ebnf/internal/graph"

// Machine couples an FSM with a start state and a set of accepting states.
// The construction algebra produces machines with epsilon edges; Determinize
// returns machines satisfying the DFA invariant (no epsilon edges, disjoint
// outgoing byte ranges per state), marked by IsDFA.
type Machine struct {
	fsm     *FSM
	start   StateID
	accepts []StateID
	accSet  map[StateID]struct{}
	dfa     bool
}

// NewMachine wraps an FSM with a start state and accepting states.
func NewMachine(f *FSM, start StateID, accepts []StateID) *Machine {
	m := &Machine{
		fsm:    f,
		start:  start,
		accSet: make(map[StateID]struct{}, len(accepts)),
	}
	for _, a := range accepts {
		m.AddAccept(a)
	}
	return m
}

// FSM returns the underlying mutable FSM.
func (m *Machine) FSM() *FSM { return m.fsm }

// Start returns the start state.
func (m *Machine) Start() StateID { return m.start }

// SetStart replaces the start state.
func (m *Machine) SetStart(s StateID) { m.start = s }

// Accepts returns the accepting states in insertion order. The slice is
// owned by the machine.
func (m *Machine) Accepts() []StateID { return m.accepts }

// IsAccept reports whether s is accepting.
func (m *Machine) IsAccept(s StateID) bool {
	_, ok := m.accSet[s]
	return ok
}

// AddAccept marks s accepting. Duplicates are ignored.
func (m *Machine) AddAccept(s StateID) {
	if _, ok := m.accSet[s]; ok {
		return
	}
	m.accSet[s] = struct{}{}
	m.accepts = append(m.accepts, s)
}

// IsDFA reports whether the machine carries the DFA invariant.
func (m *Machine) IsDFA() bool { return m.dfa }

// SetDFA records that the machine satisfies the DFA invariant. Only the
// algorithms in this package should call it.
func (m *Machine) SetDFA(dfa bool) { m.dfa = dfa }

// NumStates returns the number of states of the underlying FSM.
func (m *Machine) NumStates() int { return m.fsm.NumStates() }

// AcceptsBytes simulates the machine on input and reports whether it ends in
// an accepting state. Rule-reference edges are opaque and never followed.
// Works on NFAs and DFAs alike; intended for tests and small inputs.
func (m *Machine) AcceptsBytes(input []byte) bool {
	states := m.fsm.Closure([]StateID{m.start})
	for _, b := range input {
		states = m.fsm.Advance(states, b, true)
		if len(states) == 0 {
			return false
		}
	}
	for _, s := range states {
		if m.IsAccept(s) {
			return true
		}
	}
	return false
}

// Remap rebuilds the machine under a state relabeling with n new states,
// dropping states mapped to NoState. Start must survive the mapping.
func (m *Machine) Remap(mapping []StateID, n int) *Machine {
	f := m.fsm.RebuildWithMapping(mapping, n)
	var accepts []StateID
	seen := make(map[StateID]struct{})
	for _, a := range m.accepts {
		na := mapping[a]
		if na == NoState {
			continue
		}
		if _, dup := seen[na]; dup {
			continue
		}
		seen[na] = struct{}{}
		accepts = append(accepts, na)
	}
	out := NewMachine(f, mapping[m.start], accepts)
	out.dfa = m.dfa
	return out
}

// TrimUnreachable drops states not reachable from the start state and
// renumbers the survivors breadth-first from the start.
func (m *Machine) TrimUnreachable() *Machine {
	nodeMap, n, _ := m.fsm.g.Reachable([]graph.NodeID{graph.NodeID(m.start)})
	mapping := make([]StateID, len(nodeMap))
	for i, v := range nodeMap {
		mapping[i] = StateID(v)
	}
	return m.Remap(mapping, n)
}
