package fsm

import "testing"

func TestAlgebraLanguages(t *testing.T) {
	digit := func() *Machine { return ByteRanges([]Label{Range('0', '9')}) }
	tests := []struct {
		name   string
		m      *Machine
		accept []string
		reject []string
	}{
		{
			name:   "literal",
			m:      Literal([]byte("ab")),
			accept: []string{"ab"},
			reject: []string{"", "a", "b", "ba", "abc"},
		},
		{
			name:   "empty literal",
			m:      Literal(nil),
			accept: []string{""},
			reject: []string{"a"},
		},
		{
			name:   "empty string",
			m:      EmptyString(),
			accept: []string{""},
			reject: []string{"a", "ab"},
		},
		{
			name:   "byte ranges",
			m:      ByteRanges([]Label{Range('0', '9'), Range('a', 'f')}),
			accept: []string{"0", "9", "a", "f"},
			reject: []string{"", "g", "00", "A"},
		},
		{
			name:   "concat",
			m:      Concat(Literal([]byte("a")), Literal([]byte("b")), Literal([]byte("c"))),
			accept: []string{"abc"},
			reject: []string{"", "ab", "abcd", "cba"},
		},
		{
			name:   "concat empty",
			m:      Concat(),
			accept: []string{""},
			reject: []string{"a"},
		},
		{
			name:   "union",
			m:      Union(Literal([]byte("cat")), Literal([]byte("dog"))),
			accept: []string{"cat", "dog"},
			reject: []string{"", "ca", "catdog", "cow"},
		},
		{
			name:   "star",
			m:      Star(Literal([]byte("ab"))),
			accept: []string{"", "ab", "abab", "ababab"},
			reject: []string{"a", "aba", "ba"},
		},
		{
			name:   "plus",
			m:      Plus(Literal([]byte("ab"))),
			accept: []string{"ab", "abab"},
			reject: []string{"", "a", "aba"},
		},
		{
			name:   "question",
			m:      Question(Literal([]byte("ab"))),
			accept: []string{"", "ab"},
			reject: []string{"a", "abab"},
		},
		{
			name:   "repeat bounded",
			m:      Repeat(Literal([]byte("ab")), 2, 4),
			accept: []string{"abab", "ababab", "abababab"},
			reject: []string{"", "ab", "ababababab", "aba"},
		},
		{
			name:   "repeat unbounded",
			m:      Repeat(digit(), 1, -1),
			accept: []string{"0", "42", "999"},
			reject: []string{"", "x", "4x"},
		},
		{
			name:   "repeat zero zero",
			m:      Repeat(digit(), 0, 0),
			accept: []string{""},
			reject: []string{"0"},
		},
		{
			name:   "repeat exact",
			m:      Repeat(digit(), 3, 3),
			accept: []string{"123", "000"},
			reject: []string{"", "12", "1234"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.accept {
				if !tt.m.AcceptsBytes([]byte(s)) {
					t.Errorf("should accept %q", s)
				}
			}
			for _, s := range tt.reject {
				if tt.m.AcceptsBytes([]byte(s)) {
					t.Errorf("should reject %q", s)
				}
			}
		})
	}
}

func TestRepeatInvalidBounds(t *testing.T) {
	if m := Repeat(Literal([]byte("a")), 3, 2); m != nil {
		t.Error("Repeat with min > max should return nil")
	}
}

func TestAlgebraDoesNotAliasInputs(t *testing.T) {
	a := Literal([]byte("x"))
	before := a.NumStates()
	_ = Concat(a, a)
	_ = Union(a, a)
	_ = Star(a)
	if a.NumStates() != before {
		t.Error("combinators must not mutate their inputs")
	}
	if !a.AcceptsBytes([]byte("x")) {
		t.Error("input machine language changed")
	}
}

func TestAlgebraWellFormed(t *testing.T) {
	m := Repeat(Union(Literal([]byte("ab")), ByteRanges([]Label{Range('0', '9')})), 1, 3)
	if !m.FSM().WellFormed() {
		t.Error("constructed machine is not well formed")
	}
}
