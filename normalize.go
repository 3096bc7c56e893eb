package ebnf

import (
	"fmt"

	"github.com/coregx/ebnf/grammar"
	"github.com/coregx/ebnf/internal/conv"
)

// Normalize rewrites a parsed grammar into canonical form: every rule body
// is a Choices of Sequences of atomic elements, with at most one EmptyStr
// hoisted to the first position. Quantifiers are materialized into fresh
// rules, except a starred character class which stays one atomic expression.
// Rule ids of the input grammar are preserved; generated rules are appended.
func Normalize(g *grammar.Grammar) (*grammar.Grammar, error) {
	n := &normalizer{
		src:    g,
		out:    grammar.NewBuilder(),
		used:   make(map[string]bool, g.RuleCount()),
		counts: make(map[string]int),
	}
	for id := 0; id < g.RuleCount(); id++ {
		name := g.Rule(grammar.RuleID(id)).Name
		if _, err := n.out.DeclareRule(name); err != nil {
			return nil, err
		}
		n.used[name] = true
	}
	for id := 0; id < g.RuleCount(); id++ {
		if err := n.rewriteRule(grammar.RuleID(id)); err != nil {
			return nil, err
		}
	}
	n.out.SetRoot(g.Root())
	return n.out.Build()
}

// node is a mutable decoded expression used by the rewrite passes. Quantifier
// variants hold their inner expression as the single child.
type node struct {
	typ      grammar.ExprType
	bytes    []byte
	negated  bool
	ranges   []grammar.CharRange
	rule     grammar.RuleID
	min, max int32
	kids     []*node
}

type normalizer struct {
	src     *grammar.Grammar
	out     *grammar.Builder
	used    map[string]bool
	counts  map[string]int
	curRule string
}

func (n *normalizer) rewriteRule(id grammar.RuleID) error {
	r := n.src.Rule(id)
	n.curRule = r.Name

	body, err := n.canonBody(eliminate(n.decode(r.Body)))
	if err != nil {
		return err
	}
	n.out.SetRuleBody(id, n.encode(body))

	if r.Lookahead != grammar.NoExpr {
		la, err := n.canonLookahead(eliminate(n.decode(r.Lookahead)))
		if err != nil {
			return err
		}
		n.out.SetRuleLookahead(id, n.encode(la))
	}
	return nil
}

// decode reads an expression from the source grammar into a tree.
func (n *normalizer) decode(id grammar.ExprID) *node {
	e := n.src.Expr(id)
	t := &node{typ: e.Type}
	switch e.Type {
	case grammar.ByteString:
		t.bytes = n.src.ByteStringValue(id)
	case grammar.CharacterClass, grammar.CharacterClassStar:
		t.negated, t.ranges = n.src.CharClass(id)
	case grammar.EmptyStr:
	case grammar.RuleRef:
		t.rule = n.src.RuleRefValue(id)
	case grammar.Sequence, grammar.Choices:
		for _, c := range n.src.Children(id) {
			t.kids = append(t.kids, n.decode(c))
		}
	case grammar.Star, grammar.Plus, grammar.Question:
		t.kids = []*node{n.decode(n.src.Inner(id))}
	case grammar.QuantifierRange:
		t.kids = []*node{n.decode(n.src.Inner(id))}
		t.min, t.max = n.src.Bounds(id)
	}
	return t
}

// encode writes a tree into the output builder and returns its id.
func (n *normalizer) encode(t *node) grammar.ExprID {
	switch t.typ {
	case grammar.ByteString:
		return n.out.AddByteString(t.bytes)
	case grammar.CharacterClass:
		return n.out.AddCharacterClass(t.negated, t.ranges)
	case grammar.CharacterClassStar:
		return n.out.AddCharacterClassStar(t.negated, t.ranges)
	case grammar.EmptyStr:
		return n.out.AddEmptyStr()
	case grammar.RuleRef:
		return n.out.AddRuleRef(t.rule)
	case grammar.Sequence:
		return n.out.AddSequence(n.encodeKids(t))
	case grammar.Choices:
		return n.out.AddChoices(n.encodeKids(t))
	case grammar.Star:
		return n.out.AddStar(n.encode(t.kids[0]))
	case grammar.Plus:
		return n.out.AddPlus(n.encode(t.kids[0]))
	case grammar.Question:
		return n.out.AddQuestion(n.encode(t.kids[0]))
	default:
		return n.out.AddQuantifierRange(n.encode(t.kids[0]), t.min, t.max)
	}
}

func (n *normalizer) encodeKids(t *node) []grammar.ExprID {
	ids := make([]grammar.ExprID, len(t.kids))
	for i, k := range t.kids {
		ids[i] = n.encode(k)
	}
	return ids
}

// eliminate is the single-element elimination pass, applied bottom-up: a
// one-child Choices or Sequence collapses to its child, and a non-negated
// single-codepoint class becomes a byte string.
func eliminate(t *node) *node {
	for i, k := range t.kids {
		t.kids[i] = eliminate(k)
	}
	switch t.typ {
	case grammar.Choices, grammar.Sequence:
		if len(t.kids) == 1 {
			return t.kids[0]
		}
	case grammar.CharacterClass:
		if !t.negated && len(t.ranges) == 1 && t.ranges[0].Lo == t.ranges[0].Hi {
			return &node{typ: grammar.ByteString, bytes: conv.AppendUTF8(nil, t.ranges[0].Lo)}
		}
	}
	return t
}

// canonBody rewrites a rule body into a Choices of Sequences. Alternatives
// that reduce to nothing contribute one EmptyStr hoisted to the front.
func (n *normalizer) canonBody(t *node) (*node, error) {
	var alts []*node
	hasEmpty := flattenChoices(t, &alts)

	body := &node{typ: grammar.Choices}
	for _, alt := range alts {
		seq, err := n.canonSeq(alt)
		if err != nil {
			return nil, err
		}
		if seq == nil {
			hasEmpty = true
			continue
		}
		body.kids = append(body.kids, seq)
	}
	if hasEmpty {
		body.kids = append([]*node{{typ: grammar.EmptyStr}}, body.kids...)
	}
	if len(body.kids) == 0 {
		body.kids = []*node{{typ: grammar.EmptyStr}}
	}
	return body, nil
}

// flattenChoices collects the alternatives of t, splicing nested Choices and
// filtering EmptyStr children. It reports whether an empty alternative was
// seen.
func flattenChoices(t *node, alts *[]*node) bool {
	switch t.typ {
	case grammar.Choices:
		hasEmpty := false
		for _, k := range t.kids {
			if flattenChoices(k, alts) {
				hasEmpty = true
			}
		}
		return hasEmpty
	case grammar.EmptyStr:
		return true
	default:
		*alts = append(*alts, t)
		return false
	}
}

// canonSeq rewrites one alternative into a Sequence of atomic elements. A nil
// result means the alternative vanished entirely and stands for EmptyStr.
func (n *normalizer) canonSeq(t *node) (*node, error) {
	var elems []*node
	if err := n.appendElements(&elems, t); err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return &node{typ: grammar.Sequence, kids: elems}, nil
}

// appendElements flattens nested sequences and appends the canonical
// expansion of each element. EmptyStr elements are dropped.
func (n *normalizer) appendElements(elems *[]*node, t *node) error {
	if t.typ == grammar.Sequence {
		for _, k := range t.kids {
			if err := n.appendElements(elems, k); err != nil {
				return err
			}
		}
		return nil
	}
	if t.typ == grammar.EmptyStr {
		return nil
	}
	expanded, err := n.canonElement(t)
	if err != nil {
		return err
	}
	*elems = append(*elems, expanded...)
	return nil
}

// canonElement rewrites one sequence element into atomic form. Quantifiers
// are materialized into fresh rules; a bounded repetition expands into
// several elements.
func (n *normalizer) canonElement(t *node) ([]*node, error) {
	switch t.typ {
	case grammar.ByteString, grammar.CharacterClass, grammar.CharacterClassStar, grammar.RuleRef:
		return []*node{t}, nil

	case grammar.Choices:
		ref, err := n.genRule(n.curRule+"_choice", t)
		if err != nil {
			return nil, err
		}
		return []*node{ref}, nil

	case grammar.Star:
		kid := t.kids[0]
		if kid.typ == grammar.CharacterClass {
			return []*node{{typ: grammar.CharacterClassStar, negated: kid.negated, ranges: kid.ranges}}, nil
		}
		ref, err := n.genLoop(n.curRule+"_star", kid, nil)
		if err != nil {
			return nil, err
		}
		return []*node{ref}, nil

	case grammar.Plus:
		// A+ becomes R ::= A R | A.
		ref, err := n.genLoop(n.curRule+"_plus", t.kids[0], t.kids[0])
		if err != nil {
			return nil, err
		}
		return []*node{ref}, nil

	case grammar.Question:
		ref, err := n.genRule(n.curRule+"_opt",
			&node{typ: grammar.Choices, kids: []*node{{typ: grammar.EmptyStr}, t.kids[0]}})
		if err != nil {
			return nil, err
		}
		return []*node{ref}, nil

	case grammar.QuantifierRange:
		return n.expandRepetition(t)

	default:
		return nil, fmt.Errorf("ebnf: cannot normalize %s element", t.typ)
	}
}

// expandRepetition unrolls A{m,n} into m copies of A followed by n-m
// optional copies, or a starred tail when the upper bound is unbounded. The
// inner expression is shared through one atomic element.
func (n *normalizer) expandRepetition(t *node) ([]*node, error) {
	atom, err := n.canonAtom(t.kids[0])
	if err != nil {
		return nil, err
	}
	elems := make([]*node, 0, int(t.min)+1)
	for i := int32(0); i < t.min; i++ {
		elems = append(elems, atom)
	}
	switch {
	case t.max < 0:
		tail, err := n.genLoop(n.curRule+"_repeat", atom, nil)
		if err != nil {
			return nil, err
		}
		elems = append(elems, tail)
	case t.max > t.min:
		opt, err := n.genRule(n.curRule+"_opt",
			&node{typ: grammar.Choices, kids: []*node{{typ: grammar.EmptyStr}, atom}})
		if err != nil {
			return nil, err
		}
		for i := t.min; i < t.max; i++ {
			elems = append(elems, opt)
		}
	}
	return elems, nil
}

// canonAtom reduces an expression to a single atomic element, wrapping
// composites into a fresh rule.
func (n *normalizer) canonAtom(t *node) (*node, error) {
	elems, err := n.canonElement(t)
	if err != nil {
		return nil, err
	}
	if len(elems) == 1 {
		return elems[0], nil
	}
	ref, err := n.genRule(n.curRule+"_group", t)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// canonLookahead rewrites a look-ahead assertion. The result is always a
// Sequence, even for a single element.
func (n *normalizer) canonLookahead(t *node) (*node, error) {
	seq, err := n.canonSeq(t)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		seq = &node{typ: grammar.Sequence, kids: []*node{{typ: grammar.EmptyStr}}}
	}
	return seq, nil
}

// genRule declares a fresh rule with the canonical form of body and returns
// a reference to it.
func (n *normalizer) genRule(hint string, body *node) (*node, error) {
	id, name, err := n.declareFresh(hint)
	if err != nil {
		return nil, err
	}
	if err := n.fillRule(id, name, body); err != nil {
		return nil, err
	}
	return &node{typ: grammar.RuleRef, rule: id}, nil
}

// genLoop declares a self-recursive rule R ::= A R | last, where last is
// EmptyStr when nil. It implements both the star and the plus expansion.
func (n *normalizer) genLoop(hint string, inner, last *node) (*node, error) {
	id, name, err := n.declareFresh(hint)
	if err != nil {
		return nil, err
	}
	self := &node{typ: grammar.RuleRef, rule: id}
	if last == nil {
		last = &node{typ: grammar.EmptyStr}
	}
	body := &node{typ: grammar.Choices, kids: []*node{
		{typ: grammar.Sequence, kids: []*node{inner, self}},
		last,
	}}
	if err := n.fillRule(id, name, body); err != nil {
		return nil, err
	}
	return &node{typ: grammar.RuleRef, rule: id}, nil
}

func (n *normalizer) fillRule(id grammar.RuleID, name string, body *node) error {
	prev := n.curRule
	n.curRule = name
	canon, err := n.canonBody(body)
	n.curRule = prev
	if err != nil {
		return err
	}
	n.out.SetRuleBody(id, n.encode(canon))
	return nil
}

func (n *normalizer) declareFresh(hint string) (grammar.RuleID, string, error) {
	k := n.counts[hint]
	var name string
	for {
		name = fmt.Sprintf("%s_%d", hint, k)
		k++
		if !n.used[name] {
			break
		}
	}
	n.counts[hint] = k
	n.used[name] = true
	id, err := n.out.DeclareRule(name)
	return id, name, err
}
