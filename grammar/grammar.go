// Package grammar stores context-free grammars as tagged expression variants
// in a compressed-sparse-row blob. Expressions are addressed by dense,
// append-only ids; rules pair a name with a body expression and an optional
// look-ahead assertion. A Grammar is frozen and safe for concurrent reads;
// mutation happens only through a Builder.
package grammar

import (
	"errors"

	"github.com/coregx/ebnf/internal/graph"
)

// ExprType tags an expression variant. The tag is the first word of the
// expression's CSR row.
type ExprType int32

const (
	// ByteString is a sequence of bytes; payload: the bytes, one per word.
	ByteString ExprType = iota

	// CharacterClass is a set of codepoint ranges; payload: a negation flag
	// followed by (lo, hi) pairs.
	CharacterClass

	// CharacterClassStar is a character class under a Kleene star, kept as
	// one atomic expression; payload as CharacterClass.
	CharacterClassStar

	// EmptyStr matches the empty string; no payload.
	EmptyStr

	// RuleRef references another rule; payload: the rule id.
	RuleRef

	// Sequence is a concatenation; payload: child expression ids.
	Sequence

	// Choices is a disjunction; payload: child expression ids.
	Choices

	// Star, Plus, Question apply a quantifier; payload: the inner id.
	Star
	Plus
	Question

	// QuantifierRange is bounded repetition; payload: inner id, min, max
	// (max == -1 for unbounded).
	QuantifierRange
)

func (t ExprType) String() string {
	switch t {
	case ByteString:
		return "ByteString"
	case CharacterClass:
		return "CharacterClass"
	case CharacterClassStar:
		return "CharacterClassStar"
	case EmptyStr:
		return "EmptyStr"
	case RuleRef:
		return "RuleRef"
	case Sequence:
		return "Sequence"
	case Choices:
		return "Choices"
	case Star:
		return "Star"
	case Plus:
		return "Plus"
	case Question:
		return "Question"
	case QuantifierRange:
		return "QuantifierRange"
	default:
		return "Unknown"
	}
}

// ExprID addresses an expression within a grammar.
type ExprID int32

// RuleID addresses a rule within a grammar.
type RuleID int32

// NoExpr marks an absent expression, like a missing look-ahead.
const NoExpr ExprID = -1

// NoRule marks an absent rule.
const NoRule RuleID = -1

// CharRange is an inclusive codepoint range inside a character class.
type CharRange struct {
	Lo int32
	Hi int32
}

// Rule is a named production.
type Rule struct {
	Name      string
	Body      ExprID
	Lookahead ExprID
}

// Expr is a decoded view of one expression. Data aliases the grammar's
// shared storage and must not be mutated.
type Expr struct {
	Type ExprType
	Data []int32
}

// Errors reported by the builder.
var (
	// ErrDuplicateRule reports a second declaration of a rule name.
	ErrDuplicateRule = errors.New("grammar: duplicate rule")

	// ErrMissingBody reports a declared rule that never received a body.
	ErrMissingBody = errors.New("grammar: rule has no body")

	// ErrNoRoot reports a grammar built without a root rule.
	ErrNoRoot = errors.New("grammar: no root rule")
)

// Grammar is a frozen grammar: an ordered rule list, the root rule id, and
// the expression store.
type Grammar struct {
	rules []Rule
	names map[string]RuleID
	exprs graph.CSR[int32]
	root  RuleID
}

// RuleCount returns the number of rules.
func (g *Grammar) RuleCount() int { return len(g.rules) }

// Root returns the root rule id.
func (g *Grammar) Root() RuleID { return g.root }

// Rule returns the rule with the given id.
func (g *Grammar) Rule(id RuleID) Rule { return g.rules[id] }

// RuleByName returns the id of the named rule.
func (g *Grammar) RuleByName(name string) (RuleID, bool) {
	id, ok := g.names[name]
	return id, ok
}

// ExprCount returns the number of expressions.
func (g *Grammar) ExprCount() int { return g.exprs.NumRows() }

// Expr returns the decoded view of expression id.
func (g *Grammar) Expr(id ExprID) Expr {
	row := g.exprs.Row(int32(id))
	return Expr{Type: ExprType(row[0]), Data: row[1:]}
}

// ByteStringValue returns the bytes of a ByteString expression.
func (g *Grammar) ByteStringValue(id ExprID) []byte {
	e := g.Expr(id)
	b := make([]byte, len(e.Data))
	for i, w := range e.Data {
		b[i] = byte(w)
	}
	return b
}

// CharClass returns the negation flag and ranges of a CharacterClass or
// CharacterClassStar expression.
func (g *Grammar) CharClass(id ExprID) (negated bool, ranges []CharRange) {
	e := g.Expr(id)
	negated = e.Data[0] != 0
	for i := 1; i+1 < len(e.Data); i += 2 {
		ranges = append(ranges, CharRange{Lo: e.Data[i], Hi: e.Data[i+1]})
	}
	return negated, ranges
}

// RuleRefValue returns the referenced rule id of a RuleRef expression.
func (g *Grammar) RuleRefValue(id ExprID) RuleID {
	return RuleID(g.Expr(id).Data[0])
}

// Children returns the child ids of a Sequence or Choices expression.
func (g *Grammar) Children(id ExprID) []ExprID {
	e := g.Expr(id)
	out := make([]ExprID, len(e.Data))
	for i, w := range e.Data {
		out[i] = ExprID(w)
	}
	return out
}

// Inner returns the inner id of a Star, Plus, Question, or QuantifierRange
// expression.
func (g *Grammar) Inner(id ExprID) ExprID {
	return ExprID(g.Expr(id).Data[0])
}

// Bounds returns the min and max of a QuantifierRange expression; max is -1
// for an unbounded upper end.
func (g *Grammar) Bounds(id ExprID) (min, max int32) {
	e := g.Expr(id)
	return e.Data[1], e.Data[2]
}
