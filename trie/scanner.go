package trie

import "github.com/coregx/ahocorasick"

// Scanner searches an input for substring occurrences of a fixed pattern
// list. It is backed by an Aho-Corasick automaton and is safe for concurrent
// use once built.
type Scanner struct {
	auto  *ahocorasick.Automaton
	index map[string]int
}

// Match is one substring occurrence: input[Start:End] equals the pattern at
// Pattern in the list the scanner was built from.
type Match struct {
	Start   int
	End     int
	Pattern int
}

// NewScanner builds a scanner over patterns. Duplicate patterns report the
// first index.
func NewScanner(patterns [][]byte) (*Scanner, error) {
	builder := ahocorasick.NewBuilder()
	for _, p := range patterns {
		builder.AddPattern(p)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(patterns))
	for i, p := range patterns {
		if _, ok := index[string(p)]; !ok {
			index[string(p)] = i
		}
	}
	return &Scanner{auto: auto, index: index}, nil
}

// IsMatch reports whether any pattern occurs in input.
func (s *Scanner) IsMatch(input []byte) bool {
	return s.auto.IsMatch(input)
}

// Find returns the first occurrence starting at or after at.
func (s *Scanner) Find(input []byte, at int) (Match, bool) {
	m := s.auto.Find(input, at)
	if m == nil {
		return Match{}, false
	}
	return Match{Start: m.Start, End: m.End, Pattern: s.index[string(input[m.Start:m.End])]}, true
}

// FindAll returns the occurrences found by restarting one byte past each
// match start, so overlapping matches with distinct starts are all reported.
func (s *Scanner) FindAll(input []byte) []Match {
	var out []Match
	at := 0
	for at <= len(input) {
		m, ok := s.Find(input, at)
		if !ok {
			break
		}
		out = append(out, m)
		at = m.Start + 1
	}
	return out
}
