package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample(t *testing.T) *Grammar {
	t.Helper()
	b := NewBuilder()
	root, err := b.DeclareRule("root")
	require.NoError(t, err)
	sub, err := b.DeclareRule("sub")
	require.NoError(t, err)

	a := b.AddByteString([]byte("a"))
	class := b.AddCharacterClassStar(false, []CharRange{{Lo: 'b', Hi: 'd'}})
	ref := b.AddRuleRef(sub)
	b.SetRuleBody(root, b.AddChoices([]ExprID{a, class, ref}))

	empty := b.AddEmptyStr()
	x := b.AddByteString([]byte("x"))
	y := b.AddByteString([]byte("y"))
	seq := b.AddSequence([]ExprID{x, y})
	b.SetRuleBody(sub, b.AddChoices([]ExprID{empty, seq}))
	b.SetRoot(root)

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuilderBuild(t *testing.T) {
	g := buildSample(t)

	assert.Equal(t, 2, g.RuleCount())
	assert.Equal(t, RuleID(0), g.Root())

	root := g.Rule(0)
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, NoExpr, root.Lookahead)

	id, ok := g.RuleByName("sub")
	require.True(t, ok)
	assert.Equal(t, RuleID(1), id)
	_, ok = g.RuleByName("missing")
	assert.False(t, ok)
}

func TestBuilderDuplicateRule(t *testing.T) {
	b := NewBuilder()
	_, err := b.DeclareRule("r")
	require.NoError(t, err)
	_, err = b.DeclareRule("r")
	assert.ErrorIs(t, err, ErrDuplicateRule)
}

func TestBuilderMissingBody(t *testing.T) {
	b := NewBuilder()
	id, err := b.DeclareRule("r")
	require.NoError(t, err)
	b.SetRoot(id)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrMissingBody)
}

func TestBuilderNoRoot(t *testing.T) {
	b := NewBuilder()
	id, err := b.DeclareRule("r")
	require.NoError(t, err)
	b.SetRuleBody(id, b.AddEmptyStr())
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestExprAccessors(t *testing.T) {
	g := buildSample(t)

	body := g.Expr(g.Rule(0).Body)
	assert.Equal(t, Choices, body.Type)

	kids := g.Children(g.Rule(0).Body)
	require.Len(t, kids, 3)

	assert.Equal(t, ByteString, g.Expr(kids[0]).Type)
	assert.Equal(t, []byte("a"), g.ByteStringValue(kids[0]))

	assert.Equal(t, CharacterClassStar, g.Expr(kids[1]).Type)
	negated, ranges := g.CharClass(kids[1])
	assert.False(t, negated)
	assert.Equal(t, []CharRange{{Lo: 'b', Hi: 'd'}}, ranges)

	assert.Equal(t, RuleRef, g.Expr(kids[2]).Type)
	assert.Equal(t, RuleID(1), g.RuleRefValue(kids[2]))
}

func TestQuantifierAccessors(t *testing.T) {
	b := NewBuilder()
	id, err := b.DeclareRule("root")
	require.NoError(t, err)
	a := b.AddByteString([]byte("a"))
	rep := b.AddQuantifierRange(a, 2, -1)
	b.SetRuleBody(id, rep)
	b.SetRoot(id)
	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, QuantifierRange, g.Expr(g.Rule(0).Body).Type)
	assert.Equal(t, a, g.Inner(g.Rule(0).Body))
	min, max := g.Bounds(g.Rule(0).Body)
	assert.Equal(t, int32(2), min)
	assert.Equal(t, int32(-1), max)
}

func TestExprTypeString(t *testing.T) {
	assert.Equal(t, "ByteString", ByteString.String())
	assert.Equal(t, "CharacterClassStar", CharacterClassStar.String())
	assert.Equal(t, "QuantifierRange", QuantifierRange.String())
	assert.Equal(t, "Unknown", ExprType(99).String())
}

func TestPrint(t *testing.T) {
	g := buildSample(t)
	want := "root ::= \"a\" | [b-d]* | sub\nsub ::= \"\" | \"x\" \"y\"\n"
	assert.Equal(t, want, g.Print())
}

func TestPrintEscapes(t *testing.T) {
	b := NewBuilder()
	id, err := b.DeclareRule("root")
	require.NoError(t, err)
	s := b.AddByteString([]byte("a\"\n\\"))
	class := b.AddCharacterClass(true, []CharRange{{Lo: 0, Hi: 0x1F}, {Lo: '-', Hi: '-'}})
	b.SetRuleBody(id, b.AddSequence([]ExprID{s, class}))
	b.SetRoot(id)
	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, `root ::= "a\"\n\\" [^\x00-\x1F\-]`+"\n", g.Print())
}

func TestPrintLookahead(t *testing.T) {
	b := NewBuilder()
	id, err := b.DeclareRule("root")
	require.NoError(t, err)
	b.SetRuleBody(id, b.AddByteString([]byte("a")))
	la := b.AddSequence([]ExprID{b.AddByteString([]byte("b"))})
	b.SetRuleLookahead(id, la)
	b.SetRoot(id)
	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "root ::= \"a\" (= \"b\")\n", g.Print())
}

func TestSerializeRoundTrip(t *testing.T) {
	g := buildSample(t)
	data, err := g.Serialize()
	require.NoError(t, err)

	back, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, g.RuleCount(), back.RuleCount())
	assert.Equal(t, g.Root(), back.Root())
	assert.Equal(t, g.ExprCount(), back.ExprCount())
	assert.Equal(t, g.Print(), back.Print())
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"bad indptr", `{"rules":[{"name":"root","body_expr_id":0,"lookahead_id":-1}],"grammar_expr_data":{"data":[3],"indptr":[0,2]},"root_rule_id":0}`},
		{"body out of range", `{"rules":[{"name":"root","body_expr_id":5,"lookahead_id":-1}],"grammar_expr_data":{"data":[3],"indptr":[0,1]},"root_rule_id":0}`},
		{"root out of range", `{"rules":[{"name":"root","body_expr_id":0,"lookahead_id":-1}],"grammar_expr_data":{"data":[3],"indptr":[0,1]},"root_rule_id":7}`},
		{"duplicate rule", `{"rules":[{"name":"r","body_expr_id":0,"lookahead_id":-1},{"name":"r","body_expr_id":0,"lookahead_id":-1}],"grammar_expr_data":{"data":[3],"indptr":[0,1]},"root_rule_id":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedJSON)
		})
	}
}
