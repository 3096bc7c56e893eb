package regex

import (
	"github.com/coregx/ebnf/fsm"
	"github.com/coregx/ebnf/internal/conv"
)

// Compile parses pattern and lowers it to an NFA. Look-ahead assertions are
// rejected; use CompileLookAhead when a trailing assertion is expected.
func Compile(pattern string, opts ...Option) (*fsm.Machine, error) {
	n, err := Parse(pattern, opts...)
	if err != nil {
		return nil, err
	}
	return CompileNode(n)
}

// CompileLookAhead compiles a pattern whose top-level concatenation may end
// in a look-ahead assertion. It returns the body machine and, when the
// assertion is present, its machine and polarity; look is nil otherwise.
func CompileLookAhead(pattern string, opts ...Option) (body, look *fsm.Machine, positive bool, err error) {
	n, err := Parse(pattern, opts...)
	if err != nil {
		return nil, nil, false, err
	}
	var la *Node
	switch {
	case n.Kind == KindLookAhead:
		la = n
		n = &Node{Kind: KindLiteral}
	case n.Kind == KindGroup && n.Subs[len(n.Subs)-1].Kind == KindLookAhead:
		la = n.Subs[len(n.Subs)-1]
		rest := n.Subs[:len(n.Subs)-1]
		if len(rest) == 1 {
			n = rest[0]
		} else {
			n = &Node{Kind: KindGroup, Subs: rest}
		}
	}
	body, err = CompileNode(n)
	if err != nil {
		return nil, nil, false, err
	}
	if la == nil {
		return body, nil, false, nil
	}
	look, err = CompileNode(la.Subs[0])
	if err != nil {
		return nil, nil, false, err
	}
	return body, look, la.Positive, nil
}

// CompileNode lowers an IR node to an NFA via the construction algebra.
// Look-ahead nodes cannot be lowered and return ErrLookAhead.
func CompileNode(n *Node) (*fsm.Machine, error) {
	switch n.Kind {
	case KindLiteral:
		return fsm.Literal(n.Text), nil

	case KindClass:
		negated, ranges, err := parseClassText(n.Text)
		if err != nil {
			return nil, err
		}
		return CompileClass(ranges, negated)

	case KindGroup:
		ms := make([]*fsm.Machine, len(n.Subs))
		for i, s := range n.Subs {
			m, err := CompileNode(s)
			if err != nil {
				return nil, err
			}
			ms[i] = m
		}
		return fsm.Concat(ms...), nil

	case KindSymbol:
		inner, err := CompileNode(n.Subs[0])
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case '*':
			return fsm.Star(inner), nil
		case '+':
			return fsm.Plus(inner), nil
		default:
			return fsm.Question(inner), nil
		}

	case KindRepeat:
		inner, err := CompileNode(n.Subs[0])
		if err != nil {
			return nil, err
		}
		m := fsm.Repeat(inner, n.Min, n.Max)
		if m == nil {
			return nil, ErrBadRepetitionBounds
		}
		return m, nil

	case KindUnion:
		ms := make([]*fsm.Machine, len(n.Subs))
		for i, s := range n.Subs {
			m, err := CompileNode(s)
			if err != nil {
				return nil, err
			}
			ms[i] = m
		}
		return fsm.Union(ms...), nil

	default:
		return nil, ErrLookAhead
	}
}

// CompileClass lowers a set of codepoint ranges to a two-terminal NFA whose
// paths are the UTF-8 encodings of the covered scalar values. Negation
// complements within the scalar-value space first. An empty effective set
// yields a machine accepting nothing.
func CompileClass(ranges []CpRange, negated bool) (*fsm.Machine, error) {
	for _, r := range ranges {
		if r.Lo > r.Hi {
			return nil, ErrInvalidCharClass
		}
	}
	if negated {
		ranges = complementRanges(ranges)
	} else {
		ranges = normalizeRanges(ranges)
	}

	f := fsm.New()
	start := f.AddState()
	end := f.AddState()
	m := fsm.NewMachine(f, start, []fsm.StateID{end})
	for _, r := range ranges {
		for _, sub := range splitByEncodedLen(r) {
			var lo, hi [4]byte
			n := conv.EncodeUTF8(sub.Lo, lo[:])
			conv.EncodeUTF8(sub.Hi, hi[:])
			addByteSeqs(f, start, end, lo[:n], hi[:n])
		}
	}
	return m, nil
}

// encodedLenBounds are the last codepoints of each UTF-8 encoding length.
var encodedLenBounds = []conv.Codepoint{0x7F, 0x7FF, 0xFFFF, conv.MaxCodepoint}

func splitByEncodedLen(r CpRange) []CpRange {
	var out []CpRange
	for _, bound := range encodedLenBounds {
		if r.Lo > bound {
			continue
		}
		if r.Hi <= bound {
			out = append(out, r)
			return out
		}
		out = append(out, CpRange{Lo: r.Lo, Hi: bound})
		r.Lo = bound + 1
	}
	return out
}

// addByteSeqs adds the byte-range paths from from to to covering exactly the
// encodings between lo and hi, which have equal length. Distinct leading
// bytes split into a low-boundary chain, a full-payload middle band, and a
// high-boundary chain.
func addByteSeqs(f *fsm.FSM, from, to fsm.StateID, lo, hi []byte) {
	if len(lo) == 1 {
		f.AddEdge(from, to, int32(lo[0]), int32(hi[0]))
		return
	}
	if lo[0] == hi[0] {
		mid := f.AddState()
		f.AddByte(from, mid, lo[0])
		addByteSeqs(f, mid, to, lo[1:], hi[1:])
		return
	}

	loFirst, hiFirst := int32(lo[0]), int32(hi[0])
	if !allBytes(lo[1:], 0x80) {
		mid := f.AddState()
		f.AddByte(from, mid, lo[0])
		addByteSeqs(f, mid, to, lo[1:], contBytes(len(lo)-1, 0xBF))
		loFirst++
	}
	if !allBytes(hi[1:], 0xBF) {
		mid := f.AddState()
		f.AddByte(from, mid, hi[0])
		addByteSeqs(f, mid, to, contBytes(len(hi)-1, 0x80), hi[1:])
		hiFirst--
	}
	if loFirst > hiFirst {
		return
	}
	cur := from
	for i := 0; i < len(lo); i++ {
		next := to
		if i < len(lo)-1 {
			next = f.AddState()
		}
		if i == 0 {
			f.AddEdge(cur, next, loFirst, hiFirst)
		} else {
			f.AddEdge(cur, next, 0x80, 0xBF)
		}
		cur = next
	}
}

func allBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

func contBytes(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
