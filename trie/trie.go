// Package trie builds deterministic prefix automata from pattern lists: one
// state per unique prefix, terminal states accepting. With back-edges
// enabled the automaton is completed with Aho-Corasick failure transitions
// so that scanning resumes at the longest proper suffix that is also a
// prefix. Scanner provides substring search over the same pattern list.
package trie

import (
	"errors"

	"github.com/coregx/ebnf/fsm"
)

// ErrPrefixOverlap reports that overlap is disallowed and a pattern is empty,
// duplicated, or a proper prefix of another pattern.
var ErrPrefixOverlap = errors.New("trie: pattern is a prefix of another pattern")

type config struct {
	allowOverlap bool
	backEdges    bool
}

// Option configures Build.
type Option func(*config)

// WithOverlap controls whether a pattern may be a prefix of another (or
// empty, or duplicated). Overlap is allowed by default; with overlap
// disallowed Build returns ErrPrefixOverlap instead of an automaton.
func WithOverlap(allow bool) Option {
	return func(c *config) { c.allowOverlap = allow }
}

// WithBackEdges enables failure-link byte transitions: every state is
// completed over the byte alphabet, falling back to the longest proper
// suffix of its prefix that is also a prefix. Accept marks propagate along
// failure links, so a state accepts when any suffix of its prefix is a
// pattern.
func WithBackEdges(enable bool) Option {
	return func(c *config) { c.backEdges = enable }
}

// Build constructs the prefix automaton for patterns. The second result
// holds, per pattern, the state reached by consuming exactly that pattern.
func Build(patterns [][]byte, opts ...Option) (*fsm.Machine, []fsm.StateID, error) {
	cfg := config{allowOverlap: true}
	for _, o := range opts {
		o(&cfg)
	}

	f := fsm.New()
	root := f.AddState()
	m := fsm.NewMachine(f, root, nil)
	children := []map[byte]fsm.StateID{{}}

	ends := make([]fsm.StateID, len(patterns))
	for i, pat := range patterns {
		cur := root
		for _, b := range pat {
			next, ok := children[cur][b]
			if !ok {
				next = f.AddState()
				f.AddByte(cur, next, b)
				children = append(children, map[byte]fsm.StateID{})
				children[cur][b] = next
			}
			cur = next
		}
		if !cfg.allowOverlap && (len(pat) == 0 || m.IsAccept(cur)) {
			return nil, nil, ErrPrefixOverlap
		}
		ends[i] = cur
		m.AddAccept(cur)
	}
	if !cfg.allowOverlap {
		for _, a := range m.Accepts() {
			if len(children[a]) > 0 {
				return nil, nil, ErrPrefixOverlap
			}
		}
	}

	if cfg.backEdges {
		addBackEdges(f, m, children, root)
	}
	m.SetDFA(true)
	return m, ends, nil
}

// addBackEdges computes failure links by BFS in depth order, propagates
// accept marks along them, and completes every state over the byte alphabet
// with edges to the failure targets.
func addBackEdges(f *fsm.FSM, m *fsm.Machine, children []map[byte]fsm.StateID, root fsm.StateID) {
	fail := make([]fsm.StateID, len(children))
	order := []fsm.StateID{root}
	var queue []fsm.StateID
	for _, c := range children[root] {
		fail[c] = root
		queue = append(queue, c)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		order = append(order, s)
		if m.IsAccept(fail[s]) {
			m.AddAccept(s)
		}
		for b, c := range children[s] {
			t := fail[s]
			for {
				if next, ok := children[t][b]; ok {
					fail[c] = next
					break
				}
				if t == root {
					fail[c] = root
					break
				}
				t = fail[t]
			}
			queue = append(queue, c)
		}
	}

	resolve := func(s fsm.StateID, b byte) fsm.StateID {
		t := root
		if s != root {
			t = fail[s]
		} else {
			return root
		}
		for {
			if next, ok := children[t][b]; ok {
				return next
			}
			if t == root {
				return root
			}
			t = fail[t]
		}
	}

	// Fill the uncovered bytes of each state, merging runs with a shared
	// fallback target into single range edges.
	for _, s := range order {
		runStart := -1
		var runTarget fsm.StateID
		flush := func(end int) {
			if runStart >= 0 {
				f.AddEdge(s, runTarget, int32(runStart), int32(end))
				runStart = -1
			}
		}
		for b := 0; b < 256; b++ {
			if _, ok := children[s][byte(b)]; ok {
				flush(b - 1)
				continue
			}
			target := resolve(s, byte(b))
			if runStart >= 0 && target == runTarget {
				continue
			}
			flush(b - 1)
			runStart = b
			runTarget = target
		}
		flush(255)
	}
}
