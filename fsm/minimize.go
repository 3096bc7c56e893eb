package fsm

import (
	"fmt"
	"sort"
	"strings"
)

// Minimize merges language-equivalent states of a DFA. The partition starts
// as {accepting, non-accepting} and is refined by splitting blocks whose
// members disagree on the block reached for some boundary symbol interval.
// Rule-reference edges are structurally opaque: they participate as their
// own symbols, so two states with differing outgoing rule-reference sets are
// never merged. Returns ErrNotDFA when the input lacks the DFA invariant.
func Minimize(m *Machine) (*Machine, error) {
	if !m.dfa {
		return nil, ErrNotDFA
	}
	f := m.fsm
	n := f.NumStates()
	if n == 0 {
		return m, nil
	}

	block := make([]int, n)
	for i := 0; i < n; i++ {
		if m.IsAccept(StateID(i)) {
			block[i] = 1
		}
	}
	numBlocks := 2
	// A DFA with no accepting states (or only accepting states) starts with
	// a single block.
	if len(m.accepts) == 0 || len(m.accepts) == n {
		for i := range block {
			block[i] = 0
		}
		numBlocks = 1
	}

	// Global boundary set over all byte edges: refinement checks each
	// minimal interval as one symbol, which keeps the alphabet bounded.
	var bounds []int32
	for s := 0; s < n; s++ {
		f.Out(StateID(s), func(l Label, _ StateID) bool {
			if l.IsRange() {
				bounds = append(bounds, l.Min, l.Max+1)
			}
			return true
		})
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	bounds = dedupInt32(bounds)

	signature := func(s int) string {
		var sb strings.Builder
		type sym struct {
			kind int32 // 0 = byte interval, 1 = rule
			key  int32 // interval lower bound or rule id
			dst  int
		}
		var syms []sym
		for i := 0; i+1 < len(bounds); i++ {
			lo := bounds[i]
			dst := -1
			f.Out(StateID(s), func(l Label, d StateID) bool {
				if l.IsRange() && l.Min <= lo && lo <= l.Max {
					dst = block[d]
					return false
				}
				return true
			})
			if dst >= 0 {
				syms = append(syms, sym{0, lo, dst})
			}
		}
		f.Out(StateID(s), func(l Label, d StateID) bool {
			if l.IsRuleRef() {
				syms = append(syms, sym{1, l.Rule(), block[d]})
			}
			return true
		})
		sort.Slice(syms, func(i, j int) bool {
			if syms[i].kind != syms[j].kind {
				return syms[i].kind < syms[j].kind
			}
			if syms[i].key != syms[j].key {
				return syms[i].key < syms[j].key
			}
			return syms[i].dst < syms[j].dst
		})
		fmt.Fprintf(&sb, "%d;", block[s])
		for _, y := range syms {
			fmt.Fprintf(&sb, "%d:%d:%d;", y.kind, y.key, y.dst)
		}
		return sb.String()
	}

	for {
		next := make([]int, n)
		index := make(map[string]int)
		count := 0
		// Assign new block ids in state order so the refinement is
		// deterministic.
		for s := 0; s < n; s++ {
			sig := signature(s)
			id, ok := index[sig]
			if !ok {
				id = count
				count++
				index[sig] = id
			}
			next[s] = id
		}
		if count == numBlocks {
			break
		}
		block = next
		numBlocks = count
	}

	mapping := make([]StateID, n)
	for s := 0; s < n; s++ {
		mapping[s] = StateID(block[s])
	}
	out := m.Remap(mapping, numBlocks)
	mergeAdjacentEdges(out)
	out.dfa = true
	return out, nil
}
