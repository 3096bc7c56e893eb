// Package ebnf compiles grammars written in an EBNF dialect into the
// canonical form consumed by constrained-decoding matchers. Parse builds the
// raw grammar AST, Normalize rewrites it into a choices-of-sequences
// canonical form, and Compile chains the two.
//
// The dialect: one rule per line as NAME ::= BODY, with an optional trailing
// look-ahead assertion (= ...). Bodies use double-quoted strings, bracketed
// character classes, parenthesized groups, alternation with |, and the
// quantifiers * + ? {m,n}. Comments run from # to the end of the line.
// Newlines terminate a rule except inside parentheses.
package ebnf

import "github.com/coregx/ebnf/grammar"

// Compile parses and normalizes EBNF text. The resulting grammar satisfies
// the canonical-AST invariants and is safe for concurrent reads.
func Compile(text string, opts ...Option) (*grammar.Grammar, error) {
	g, err := Parse(text, opts...)
	if err != nil {
		return nil, err
	}
	return Normalize(g)
}
