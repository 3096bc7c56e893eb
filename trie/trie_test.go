package trie

import (
	"errors"
	"testing"

	"github.com/coregx/ebnf/fsm"
)

func pats(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestBuildAcceptsExactPatterns(t *testing.T) {
	patterns := pats("he", "she", "his", "hers")
	m, ends, err := Build(patterns)
	if err != nil {
		t.Fatal(err)
	}
	if len(ends) != len(patterns) {
		t.Fatalf("got %d end states, want %d", len(ends), len(patterns))
	}
	for _, s := range []string{"he", "she", "his", "hers"} {
		if !m.AcceptsBytes([]byte(s)) {
			t.Errorf("%q: want accept", s)
		}
	}
	for _, s := range []string{"", "h", "her", "sh", "shers", "x", "hee"} {
		if m.AcceptsBytes([]byte(s)) {
			t.Errorf("%q: want reject", s)
		}
	}
}

func TestBuildEndStates(t *testing.T) {
	patterns := pats("he", "she", "his", "hers")
	m, ends, err := Build(patterns)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsDFA() {
		t.Fatal("prefix automaton must be deterministic")
	}
	f := m.FSM()
	for i, pat := range patterns {
		cur := m.Start()
		for _, b := range pat {
			cur = f.GetNextState(cur, b)
			if cur == fsm.NoState {
				t.Fatalf("%q: dead transition on %q", pat, b)
			}
		}
		if cur != ends[i] {
			t.Errorf("%q: reached state %d, end state is %d", pat, cur, ends[i])
		}
		if !m.IsAccept(cur) {
			t.Errorf("%q: end state must accept", pat)
		}
	}
}

func TestBuildSharedPrefixStates(t *testing.T) {
	// "he", "hers" and "his" share the "h" prefix; "hers" extends "he".
	// Unique prefixes: root, h, he, her, hers, hi, his, s, sh, she.
	m, _, err := Build(pats("he", "she", "his", "hers"))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.NumStates(); got != 10 {
		t.Errorf("got %d states, want 10", got)
	}
}

func TestBuildOverlapDisallowed(t *testing.T) {
	tests := []struct {
		name     string
		patterns [][]byte
	}{
		{"empty pattern", pats("a", "")},
		{"duplicate", pats("ab", "ab")},
		{"proper prefix", pats("he", "hers")},
		{"proper prefix reversed", pats("hers", "he")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Build(tt.patterns, WithOverlap(false)); !errors.Is(err, ErrPrefixOverlap) {
				t.Errorf("got %v, want ErrPrefixOverlap", err)
			}
		})
	}
	if _, _, err := Build(pats("he", "she", "his"), WithOverlap(false)); err != nil {
		t.Errorf("disjoint patterns: got %v, want success", err)
	}
}

// scanEnds steps the completed automaton over input and returns, for each
// position where the current state accepts, the number of bytes consumed.
func scanEnds(t *testing.T, m *fsm.Machine, input []byte) []int {
	t.Helper()
	f := m.FSM()
	cur := m.Start()
	var ends []int
	for i, b := range input {
		cur = f.GetNextState(cur, b)
		if cur == fsm.NoState {
			t.Fatalf("state died at byte %d; back-edge automaton must be complete", i)
		}
		if m.IsAccept(cur) {
			ends = append(ends, i+1)
		}
	}
	return ends
}

func TestBackEdgesScanUshers(t *testing.T) {
	m, ends, err := Build(pats("he", "she", "his", "hers"), WithBackEdges(true))
	if err != nil {
		t.Fatal(err)
	}
	f := m.FSM()
	cur := m.Start()
	var hits []fsm.StateID
	for _, b := range []byte("ushers") {
		cur = f.GetNextState(cur, b)
		if m.IsAccept(cur) {
			hits = append(hits, cur)
		}
	}
	// "she" ends after 4 bytes; its state also accepts for the suffix "he".
	// "hers" ends after all 6 bytes.
	if len(hits) != 2 || hits[0] != ends[1] || hits[1] != ends[3] {
		t.Fatalf("accepting visits %v, want [%d %d]", hits, ends[1], ends[3])
	}
}

func TestBackEdgesAcceptPropagation(t *testing.T) {
	// The state for prefix "ab" is not a pattern end but its failure target
	// "b" is, so the accept mark propagates to it.
	m, _, err := Build(pats("b", "abc"), WithBackEdges(true))
	if err != nil {
		t.Fatal(err)
	}
	got := scanEnds(t, m, []byte("abc"))
	want := []int{2, 3}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("accepting positions %v, want %v", got, want)
	}
}

func TestBackEdgesResumeAfterMismatch(t *testing.T) {
	m, _, err := Build(pats("abab"), WithBackEdges(true))
	if err != nil {
		t.Fatal(err)
	}
	// After "abab" the automaton sits on an accepting state; the next "ab"
	// reuses the "ab" suffix and accepts again at position 6.
	got := scanEnds(t, m, []byte("ababab"))
	if len(got) != 2 || got[0] != 4 || got[1] != 6 {
		t.Errorf("accepting positions %v, want [4 6]", got)
	}
}

func TestBackEdgesCompleteAlphabet(t *testing.T) {
	m, _, err := Build(pats("hi"), WithBackEdges(true))
	if err != nil {
		t.Fatal(err)
	}
	f := m.FSM()
	for s := fsm.StateID(0); int(s) < m.NumStates(); s++ {
		for b := 0; b < 256; b++ {
			if f.GetNextState(s, byte(b)) == fsm.NoState {
				t.Fatalf("state %d has no transition on byte %#x", s, b)
			}
		}
	}
}

func TestScannerIsMatch(t *testing.T) {
	s, err := NewScanner(pats("he", "she", "his", "hers"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsMatch([]byte("ushers")) {
		t.Error("ushers: want match")
	}
	if s.IsMatch([]byte("uxyz")) {
		t.Error("uxyz: want no match")
	}
	if s.IsMatch(nil) {
		t.Error("empty input: want no match")
	}
}

func TestScannerFind(t *testing.T) {
	patterns := pats("abc", "def")
	s, err := NewScanner(patterns)
	if err != nil {
		t.Fatal(err)
	}
	input := []byte("xxabcydefz")

	m, ok := s.Find(input, 0)
	if !ok {
		t.Fatal("want a match")
	}
	if m.Start != 2 || m.End != 5 || m.Pattern != 0 {
		t.Errorf("got %+v, want {2 5 0}", m)
	}

	m, ok = s.Find(input, m.End)
	if !ok {
		t.Fatal("want a second match")
	}
	if m.Start != 6 || m.End != 9 || m.Pattern != 1 {
		t.Errorf("got %+v, want {6 9 1}", m)
	}

	if _, ok = s.Find(input, m.End); ok {
		t.Error("want no further match")
	}
}

func TestScannerFindAllOverlapping(t *testing.T) {
	s, err := NewScanner(pats("aa"))
	if err != nil {
		t.Fatal(err)
	}
	got := s.FindAll([]byte("aaaa"))
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
	for i, m := range got {
		if m.Start != i || m.End != i+2 || m.Pattern != 0 {
			t.Errorf("match %d: got %+v, want {%d %d 0}", i, m, i, i+2)
		}
	}
}

func TestScannerMatchContent(t *testing.T) {
	patterns := pats("he", "she", "his", "hers")
	s, err := NewScanner(patterns)
	if err != nil {
		t.Fatal(err)
	}
	input := []byte("ushers and his")
	for _, m := range s.FindAll(input) {
		if m.Pattern < 0 || m.Pattern >= len(patterns) {
			t.Fatalf("pattern index %d out of range", m.Pattern)
		}
		if string(input[m.Start:m.End]) != string(patterns[m.Pattern]) {
			t.Errorf("match %+v: text %q is not pattern %q", m, input[m.Start:m.End], patterns[m.Pattern])
		}
	}
}
