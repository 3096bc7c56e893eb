// Package regex parses a POSIX-extended-like regex surface into a small IR
// and lowers the IR to finite-state machines via Thompson construction.
//
// The surface covers literals, character classes with ranges and negation,
// the metacharacters . * + ? | ( ), bounded quantifiers {m,n}, escapes
// (\n \r \t \\ \/ \b \f \xHH \uHHHH \UHHHHHHHH and escaped metacharacters),
// and (?=...) / (?!...) look-ahead assertions. Character classes operate on
// Unicode scalar values and are lowered to UTF-8 byte-range chains.
package regex

import "github.com/coregx/ebnf/internal/conv"

// NodeKind discriminates IR nodes.
type NodeKind uint8

const (
	// KindLiteral is a literal byte-string fragment (UTF-8 encoded).
	KindLiteral NodeKind = iota

	// KindClass is a bracket character class held in its textual form,
	// without the surrounding brackets.
	KindClass

	// KindGroup is a concatenation container.
	KindGroup

	// KindSymbol applies one of the operators * + ? to Subs[0].
	KindSymbol

	// KindRepeat is bounded repetition of Subs[0]; Max == -1 is unbounded.
	KindRepeat

	// KindUnion is alternation over Subs.
	KindUnion

	// KindLookAhead is a look-ahead assertion over Subs[0]. Only a trailing
	// top-level assertion can be consumed; see CompileLookAhead.
	KindLookAhead
)

// Node is one IR node. Which fields are meaningful depends on Kind.
type Node struct {
	Kind     NodeKind
	Text     []byte  // KindLiteral: bytes; KindClass: class body text
	Op       byte    // KindSymbol: '*', '+' or '?'
	Min, Max int     // KindRepeat bounds
	Positive bool    // KindLookAhead polarity
	Subs     []*Node // children
}

// CpRange is an inclusive range of Unicode scalar values.
type CpRange struct {
	Lo conv.Codepoint
	Hi conv.Codepoint
}
