package fsm

import "testing"

func TestSimplifyEpsilonsConcat(t *testing.T) {
	m := Concat(Literal([]byte("a")), Literal([]byte("b")))
	if countEpsilons(m) == 0 {
		t.Fatal("concatenation should start with epsilon glue")
	}
	s := SimplifyEpsilons(m)
	if got := countEpsilons(s); got != 0 {
		t.Errorf("%d epsilons left, want 0", got)
	}
	sameLanguage(t, Literal([]byte("ab")), s, "ab", 3)
}

func TestSimplifyEpsilonsStar(t *testing.T) {
	before := countEpsilons(Star(Literal([]byte("a"))))
	s := SimplifyEpsilons(Star(Literal([]byte("a"))))
	if got := countEpsilons(s); got >= before {
		t.Errorf("%d epsilons left, want fewer than %d", got, before)
	}
	sameLanguage(t, Star(Literal([]byte("a"))), s, "ab", 4)
}

func TestSimplifyEpsilonsKeepsAcceptMarks(t *testing.T) {
	m := Question(Literal([]byte("ab")))
	s := SimplifyEpsilons(m)
	if !s.AcceptsBytes(nil) || !s.AcceptsBytes([]byte("ab")) {
		t.Error("optional language lost an accept mark")
	}
	if s.AcceptsBytes([]byte("a")) {
		t.Error("prefix must not be accepted")
	}
}

func TestSimplifyEpsilonsTrims(t *testing.T) {
	f := New()
	s0 := f.AddState()
	s1 := f.AddState()
	f.AddState() // island
	f.AddByte(s0, s1, 'a')
	m := NewMachine(f, s0, []StateID{s1})

	s := SimplifyEpsilons(m)
	if s.NumStates() != 2 {
		t.Errorf("got %d states, want island trimmed to 2", s.NumStates())
	}
}

func TestMergeEquivalentDiamond(t *testing.T) {
	f := New()
	s := make([]StateID, 5)
	for i := range s {
		s[i] = f.AddState()
	}
	f.AddByte(s[0], s[1], 'a')
	f.AddByte(s[0], s[2], 'a')
	f.AddByte(s[1], s[3], 'b')
	f.AddByte(s[2], s[4], 'b')
	m := NewMachine(f, s[0], []StateID{s[3], s[4]})

	out := MergeEquivalent(m)
	if out.NumStates() != 3 {
		t.Errorf("got %d states, want the duplicated branch fused to 3", out.NumStates())
	}
	if !out.AcceptsBytes([]byte("ab")) || out.AcceptsBytes([]byte("a")) || out.AcceptsBytes([]byte("abb")) {
		t.Error("language changed by merging")
	}
}

func TestMergeEquivalentDistinctLabelsKept(t *testing.T) {
	f := New()
	s := make([]StateID, 3)
	for i := range s {
		s[i] = f.AddState()
	}
	f.AddByte(s[0], s[1], 'a')
	f.AddByte(s[0], s[2], 'b')
	m := NewMachine(f, s[0], []StateID{s[1]})

	out := MergeEquivalent(m)
	if out.NumStates() != 3 {
		t.Errorf("got %d states, want 3 kept", out.NumStates())
	}
	if !out.AcceptsBytes([]byte("a")) || out.AcceptsBytes([]byte("b")) {
		t.Error("merging across distinct labels changed the language")
	}
}
