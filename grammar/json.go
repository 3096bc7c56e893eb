package grammar

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coregx/ebnf/internal/graph"
)

// Errors reported by Deserialize.
var (
	// ErrMalformedJSON reports structurally invalid serialized data.
	ErrMalformedJSON = errors.New("grammar: malformed serialized grammar")
)

type jsonRule struct {
	Name        string `json:"name"`
	BodyExprID  int32  `json:"body_expr_id"`
	LookaheadID int32  `json:"lookahead_id"`
}

type jsonCSR struct {
	Data   []int32 `json:"data"`
	Indptr []int32 `json:"indptr"`
}

type jsonGrammar struct {
	Rules    []jsonRule `json:"rules"`
	ExprData jsonCSR    `json:"grammar_expr_data"`
	RootRule int32      `json:"root_rule_id"`
}

// Serialize encodes the grammar as JSON. The expression store is written as
// its raw data and indptr arrays, so round trips preserve expression ids.
func (g *Grammar) Serialize() ([]byte, error) {
	rules := make([]jsonRule, len(g.rules))
	for i, r := range g.rules {
		rules[i] = jsonRule{
			Name:        r.Name,
			BodyExprID:  int32(r.Body),
			LookaheadID: int32(r.Lookahead),
		}
	}
	return json.Marshal(jsonGrammar{
		Rules: rules,
		ExprData: jsonCSR{
			Data:   g.exprs.Data(),
			Indptr: g.exprs.Indptr(),
		},
		RootRule: int32(g.root),
	})
}

// Deserialize decodes a grammar produced by Serialize. Rule and expression
// ids are validated against the decoded tables.
func Deserialize(data []byte) (*Grammar, error) {
	var jg jsonGrammar
	if err := json.Unmarshal(data, &jg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	indptr := jg.ExprData.Indptr
	if len(indptr) == 0 || indptr[0] != 0 || indptr[len(indptr)-1] != int32(len(jg.ExprData.Data)) {
		return nil, fmt.Errorf("%w: bad expression index", ErrMalformedJSON)
	}
	for i := 1; i < len(indptr); i++ {
		if indptr[i] <= indptr[i-1] {
			return nil, fmt.Errorf("%w: bad expression index", ErrMalformedJSON)
		}
	}
	exprs := graph.FromArrays(jg.ExprData.Data, indptr)
	numExprs := int32(exprs.NumRows())
	numRules := int32(len(jg.Rules))

	rules := make([]Rule, len(jg.Rules))
	names := make(map[string]RuleID, len(jg.Rules))
	for i, r := range jg.Rules {
		if r.BodyExprID < 0 || r.BodyExprID >= numExprs {
			return nil, fmt.Errorf("%w: rule %q body id %d out of range", ErrMalformedJSON, r.Name, r.BodyExprID)
		}
		if r.LookaheadID != int32(NoExpr) && (r.LookaheadID < 0 || r.LookaheadID >= numExprs) {
			return nil, fmt.Errorf("%w: rule %q lookahead id %d out of range", ErrMalformedJSON, r.Name, r.LookaheadID)
		}
		if _, dup := names[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrMalformedJSON, r.Name)
		}
		rules[i] = Rule{Name: r.Name, Body: ExprID(r.BodyExprID), Lookahead: ExprID(r.LookaheadID)}
		names[r.Name] = RuleID(i)
	}
	if jg.RootRule < 0 || jg.RootRule >= numRules {
		return nil, fmt.Errorf("%w: root rule id %d out of range", ErrMalformedJSON, jg.RootRule)
	}

	return &Grammar{
		rules: rules,
		names: names,
		exprs: exprs,
		root:  RuleID(jg.RootRule),
	}, nil
}
