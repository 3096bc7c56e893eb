package grammar

import (
	"fmt"
	"strings"

	"github.com/coregx/ebnf/internal/conv"
)

// Print renders the grammar as EBNF text, one rule per line in declaration
// order. The output parses back to an equivalent grammar.
func (g *Grammar) Print() string {
	var sb strings.Builder
	for id := 0; id < len(g.rules); id++ {
		r := g.rules[RuleID(id)]
		sb.WriteString(r.Name)
		sb.WriteString(" ::= ")
		sb.WriteString(g.PrintExpr(r.Body))
		if r.Lookahead != NoExpr {
			sb.WriteString(" (= ")
			sb.WriteString(g.PrintExpr(r.Lookahead))
			sb.WriteString(")")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintExpr renders one expression. Composite children of sequences and
// quantifiers are parenthesized so precedence survives a round trip.
func (g *Grammar) PrintExpr(id ExprID) string {
	e := g.Expr(id)
	switch e.Type {
	case ByteString:
		return printByteString(g.ByteStringValue(id))

	case CharacterClass:
		negated, ranges := g.CharClass(id)
		return printClass(negated, ranges)

	case CharacterClassStar:
		negated, ranges := g.CharClass(id)
		return printClass(negated, ranges) + "*"

	case EmptyStr:
		return `""`

	case RuleRef:
		return g.rules[g.RuleRefValue(id)].Name

	case Sequence:
		parts := make([]string, 0, len(e.Data))
		for _, c := range g.Children(id) {
			parts = append(parts, g.printChild(c))
		}
		return strings.Join(parts, " ")

	case Choices:
		parts := make([]string, 0, len(e.Data))
		for _, c := range g.Children(id) {
			parts = append(parts, g.PrintExpr(c))
		}
		return strings.Join(parts, " | ")

	case Star:
		return g.printChild(g.Inner(id)) + "*"

	case Plus:
		return g.printChild(g.Inner(id)) + "+"

	case Question:
		return g.printChild(g.Inner(id)) + "?"

	case QuantifierRange:
		min, max := g.Bounds(id)
		if max < 0 {
			return fmt.Sprintf("%s{%d,}", g.printChild(g.Inner(id)), min)
		}
		return fmt.Sprintf("%s{%d,%d}", g.printChild(g.Inner(id)), min, max)

	default:
		return fmt.Sprintf("<%s>", e.Type)
	}
}

// printChild parenthesizes choices and sequences when they appear inside a
// sequence or under a quantifier.
func (g *Grammar) printChild(id ExprID) string {
	switch g.Expr(id).Type {
	case Sequence, Choices:
		return "(" + g.PrintExpr(id) + ")"
	default:
		return g.PrintExpr(id)
	}
}

func printByteString(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(b); {
		cp, size := conv.DecodeUTF8(b[i:])
		if cp == conv.InvalidUTF8 {
			fmt.Fprintf(&sb, `\x%02X`, b[i])
			i++
			continue
		}
		writeEscaped(&sb, cp, `"`)
		i += size
	}
	sb.WriteByte('"')
	return sb.String()
}

func printClass(negated bool, ranges []CharRange) string {
	var sb strings.Builder
	sb.WriteByte('[')
	if negated {
		sb.WriteByte('^')
	}
	for _, r := range ranges {
		writeEscaped(&sb, conv.Codepoint(r.Lo), `-]^`)
		if r.Hi != r.Lo {
			sb.WriteByte('-')
			writeEscaped(&sb, conv.Codepoint(r.Hi), `-]^`)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// writeEscaped writes one codepoint, backslash-escaping control characters,
// the backslash itself, and any character in extra.
func writeEscaped(sb *strings.Builder, cp conv.Codepoint, extra string) {
	switch cp {
	case '\\':
		sb.WriteString(`\\`)
		return
	case '\b':
		sb.WriteString(`\b`)
		return
	case '\f':
		sb.WriteString(`\f`)
		return
	case '\n':
		sb.WriteString(`\n`)
		return
	case '\r':
		sb.WriteString(`\r`)
		return
	case '\t':
		sb.WriteString(`\t`)
		return
	}
	if cp < 0x80 && strings.ContainsRune(extra, rune(cp)) {
		sb.WriteByte('\\')
		sb.WriteByte(byte(cp))
		return
	}
	switch {
	case cp < 0x20 || cp == 0x7F:
		fmt.Fprintf(sb, `\x%02X`, cp)
	case cp < 0x80:
		sb.WriteByte(byte(cp))
	case cp <= 0xFFFF:
		if cp >= 0xA0 {
			sb.WriteString(string(rune(cp)))
		} else {
			fmt.Fprintf(sb, `\u%04X`, cp)
		}
	default:
		sb.WriteString(string(rune(cp)))
	}
}
