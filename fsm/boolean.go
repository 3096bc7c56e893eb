package fsm

import "sort"

// Complement returns a DFA accepting exactly the byte strings m rejects.
// The input DFA is completed over the 0..255 alphabet by routing uncovered
// ranges to a trap state, then the accepting set is inverted. Rule-reference
// edges are carried over unchanged and keep their targets' membership.
// Returns ErrNotDFA when the input lacks the DFA invariant.
func Complement(m *Machine) (*Machine, error) {
	if !m.dfa {
		return nil, ErrNotDFA
	}
	f := New()
	off := f.Absorb(m.fsm)
	out := NewMachine(f, m.start+off, nil)
	out.dfa = true

	trap := f.AddState()
	f.AddEdge(trap, trap, 0, 255)

	n := m.fsm.NumStates()
	for s := 0; s < n; s++ {
		var covered []Label
		m.fsm.Out(StateID(s), func(l Label, _ StateID) bool {
			if l.IsRange() {
				covered = append(covered, l)
			}
			return true
		})
		sort.Slice(covered, func(i, j int) bool { return covered[i].Min < covered[j].Min })
		next := int32(0)
		for _, l := range covered {
			if l.Min > next {
				f.AddEdge(StateID(s)+off, trap, next, l.Min-1)
			}
			if l.Max+1 > next {
				next = l.Max + 1
			}
		}
		if next <= 255 {
			f.AddEdge(StateID(s)+off, trap, next, 255)
		}
	}

	for s := 0; s < n; s++ {
		if !m.IsAccept(StateID(s)) {
			out.AddAccept(StateID(s) + off)
		}
	}
	out.AddAccept(trap)
	return out, nil
}

// Intersect returns a DFA accepting the strings both inputs accept, by
// product construction over byte edges: the product state (p, q) steps on b
// to (d1(p,b), d2(q,b)) when both transitions exist. Rule-reference edges do
// not participate; the product is over the byte alphabet only. Returns a
// LimitError wrapping ErrStatesExceeded without materializing the full
// product when it would exceed limit states; limit <= 0 means
// DefaultStateLimit. Returns ErrNotDFA unless both inputs are DFAs.
func Intersect(a, b *Machine, limit int) (*Machine, error) {
	if !a.dfa || !b.dfa {
		return nil, ErrNotDFA
	}
	if limit <= 0 {
		limit = DefaultStateLimit
	}

	f := New()
	out := NewMachine(f, 0, nil)
	out.dfa = true

	type pair struct{ p, q StateID }
	ids := make(map[pair]StateID)
	var queue []pair

	intern := func(pq pair) (StateID, error) {
		if id, ok := ids[pq]; ok {
			return id, nil
		}
		if len(ids) >= limit {
			return NoState, &LimitError{Op: "intersect", Limit: limit}
		}
		id := f.AddState()
		ids[pq] = id
		queue = append(queue, pq)
		if a.IsAccept(pq.p) && b.IsAccept(pq.q) {
			out.AddAccept(id)
		}
		return id, nil
	}

	start, err := intern(pair{a.start, b.start})
	if err != nil {
		return nil, err
	}
	out.start = start

	for len(queue) > 0 {
		pq := queue[0]
		queue = queue[1:]
		from := ids[pq]

		var ea, eb []Label
		ta := make(map[Label]StateID)
		tb := make(map[Label]StateID)
		a.fsm.Out(pq.p, func(l Label, dst StateID) bool {
			if l.IsRange() {
				ea = append(ea, l)
				ta[l] = dst
			}
			return true
		})
		b.fsm.Out(pq.q, func(l Label, dst StateID) bool {
			if l.IsRange() {
				eb = append(eb, l)
				tb[l] = dst
			}
			return true
		})
		sort.Slice(ea, func(i, j int) bool { return ea[i].Min < ea[j].Min })
		sort.Slice(eb, func(i, j int) bool { return eb[i].Min < eb[j].Min })

		for _, la := range ea {
			for _, lb := range eb {
				lo := la.Min
				if lb.Min > lo {
					lo = lb.Min
				}
				hi := la.Max
				if lb.Max < hi {
					hi = lb.Max
				}
				if lo > hi {
					continue
				}
				to, err := intern(pair{ta[la], tb[lb]})
				if err != nil {
					return nil, err
				}
				f.AddEdge(from, to, lo, hi)
			}
		}
	}

	mergeAdjacentEdges(out)
	return out, nil
}
