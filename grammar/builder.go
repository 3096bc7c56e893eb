package grammar

import "github.com/coregx/ebnf/internal/graph"

// Builder accumulates rules and expressions. Build consumes the builder into
// a frozen Grammar; a builder is single-goroutine.
type Builder struct {
	exprs *graph.CSRBuilder[int32]
	rules []Rule
	names map[string]RuleID
	root  RuleID
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		exprs: graph.NewCSRBuilder[int32](),
		names: make(map[string]RuleID),
		root:  NoRule,
	}
}

func (b *Builder) add(t ExprType, payload ...int32) ExprID {
	row := make([]int32, 0, len(payload)+1)
	row = append(row, int32(t))
	row = append(row, payload...)
	return ExprID(b.exprs.AppendRow(row))
}

// AddByteString adds a ByteString expression.
func (b *Builder) AddByteString(s []byte) ExprID {
	payload := make([]int32, len(s))
	for i, c := range s {
		payload[i] = int32(c)
	}
	return b.add(ByteString, payload...)
}

// AddCharacterClass adds a CharacterClass expression.
func (b *Builder) AddCharacterClass(negated bool, ranges []CharRange) ExprID {
	return b.add(CharacterClass, classPayload(negated, ranges)...)
}

// AddCharacterClassStar adds a CharacterClassStar expression.
func (b *Builder) AddCharacterClassStar(negated bool, ranges []CharRange) ExprID {
	return b.add(CharacterClassStar, classPayload(negated, ranges)...)
}

func classPayload(negated bool, ranges []CharRange) []int32 {
	payload := make([]int32, 1, 1+2*len(ranges))
	if negated {
		payload[0] = 1
	}
	for _, r := range ranges {
		payload = append(payload, r.Lo, r.Hi)
	}
	return payload
}

// AddEmptyStr adds an EmptyStr expression.
func (b *Builder) AddEmptyStr() ExprID { return b.add(EmptyStr) }

// AddRuleRef adds a RuleRef expression.
func (b *Builder) AddRuleRef(r RuleID) ExprID { return b.add(RuleRef, int32(r)) }

// AddSequence adds a Sequence expression over the given children.
func (b *Builder) AddSequence(ids []ExprID) ExprID {
	return b.add(Sequence, exprPayload(ids)...)
}

// AddChoices adds a Choices expression over the given children.
func (b *Builder) AddChoices(ids []ExprID) ExprID {
	return b.add(Choices, exprPayload(ids)...)
}

func exprPayload(ids []ExprID) []int32 {
	payload := make([]int32, len(ids))
	for i, id := range ids {
		payload[i] = int32(id)
	}
	return payload
}

// AddStar adds a Star expression.
func (b *Builder) AddStar(inner ExprID) ExprID { return b.add(Star, int32(inner)) }

// AddPlus adds a Plus expression.
func (b *Builder) AddPlus(inner ExprID) ExprID { return b.add(Plus, int32(inner)) }

// AddQuestion adds a Question expression.
func (b *Builder) AddQuestion(inner ExprID) ExprID { return b.add(Question, int32(inner)) }

// AddQuantifierRange adds a QuantifierRange expression; max == -1 is
// unbounded.
func (b *Builder) AddQuantifierRange(inner ExprID, min, max int32) ExprID {
	return b.add(QuantifierRange, int32(inner), min, max)
}

// DeclareRule registers a rule name and returns its id. The body is attached
// later with SetRuleBody, matching the two-pass front end.
func (b *Builder) DeclareRule(name string) (RuleID, error) {
	if _, dup := b.names[name]; dup {
		return NoRule, ErrDuplicateRule
	}
	id := RuleID(len(b.rules))
	b.rules = append(b.rules, Rule{Name: name, Body: NoExpr, Lookahead: NoExpr})
	b.names[name] = id
	return id, nil
}

// RuleID returns the id previously declared for name.
func (b *Builder) RuleID(name string) (RuleID, bool) {
	id, ok := b.names[name]
	return id, ok
}

// RuleCount returns the number of declared rules.
func (b *Builder) RuleCount() int { return len(b.rules) }

// RuleName returns the name of a declared rule.
func (b *Builder) RuleName(id RuleID) string { return b.rules[id].Name }

// SetRuleBody attaches the body expression of a declared rule.
func (b *Builder) SetRuleBody(id RuleID, body ExprID) { b.rules[id].Body = body }

// SetRuleLookahead attaches the look-ahead assertion of a declared rule.
func (b *Builder) SetRuleLookahead(id RuleID, la ExprID) { b.rules[id].Lookahead = la }

// SetRoot marks the root rule.
func (b *Builder) SetRoot(id RuleID) { b.root = id }

// Build freezes the accumulated grammar. Every declared rule must have a
// body and the root must be set. The builder must not be used afterwards.
func (b *Builder) Build() (*Grammar, error) {
	if b.root == NoRule {
		return nil, ErrNoRoot
	}
	for _, r := range b.rules {
		if r.Body == NoExpr {
			return nil, ErrMissingBody
		}
	}
	g := &Grammar{
		rules: b.rules,
		names: b.names,
		exprs: b.exprs.Freeze(),
		root:  b.root,
	}
	b.rules = nil
	b.names = nil
	b.exprs = nil
	return g, nil
}
