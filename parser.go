package ebnf

import (
	"fmt"

	"github.com/coregx/ebnf/grammar"
	"github.com/coregx/ebnf/internal/conv"
)

// DefaultMaxDepth bounds nesting in rule bodies.
const DefaultMaxDepth = 200

// DefaultRoot is the rule name the grammar starts from.
const DefaultRoot = "root"

type config struct {
	root     string
	maxDepth int
}

// Option configures Parse and Compile.
type Option func(*config)

// WithRoot overrides the root rule name.
func WithRoot(name string) Option {
	return func(c *config) { c.root = name }
}

// WithMaxDepth overrides the nesting limit of rule bodies.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// classEscapes are the bytes that escape to themselves inside a character
// class, beyond the shared escape table.
const classEscapes = "-]^"

// maxRepetition caps the bounds of a {m,n} repetition.
const maxRepetition = 1 << 20

// parser is a two-pass recursive-descent parser over raw bytes. The first
// pass collects rule names so that bodies may reference rules defined later;
// the second parses the bodies.
type parser struct {
	src      []byte
	pos      int
	line     int
	col      int
	builder  *grammar.Builder
	inParens bool
	depth    int
	cfg      config
}

// Parse parses EBNF text into a raw grammar. The grammar is not normalized;
// rule bodies mirror the written structure.
func Parse(text string, opts ...Option) (*grammar.Grammar, error) {
	cfg := config{root: DefaultRoot, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	p := &parser{
		src:     []byte(text),
		line:    1,
		col:     1,
		builder: grammar.NewBuilder(),
		cfg:     cfg,
	}
	if err := p.collectNames(); err != nil {
		return nil, err
	}
	p.pos, p.line, p.col = 0, 1, 1
	if err := p.parseRules(); err != nil {
		return nil, err
	}
	root, ok := p.builder.RuleID(cfg.root)
	if !ok {
		return nil, &ParseError{Line: p.line, Column: p.col, Err: ErrNoRootRule,
			Msg: fmt.Sprintf("root rule %q is not defined", cfg.root)}
	}
	p.builder.SetRoot(root)
	return p.builder.Build()
}

func (p *parser) lexErr(err error, format string, args ...any) error {
	return &LexError{Line: p.line, Column: p.col, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseErr(err error, format string, args ...any) error {
	return &ParseError{Line: p.line, Column: p.col, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(delta int) byte {
	if p.pos+delta >= len(p.src) {
		return 0
	}
	return p.src[p.pos+delta]
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

// consume advances n bytes, tracking line and column. A \r\n pair counts as
// one line break.
func (p *parser) consume(n int) {
	for i := 0; i < n && p.pos < len(p.src); i++ {
		c := p.src[p.pos]
		if c == '\n' || (c == '\r' && p.peekAt(1) != '\n') {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

// skipSpace skips spaces, tabs, and comments. Newlines are skipped only when
// allowNewline is true; a comment ends before its newline so the caller's
// newline policy applies.
func (p *parser) skipSpace(allowNewline bool) {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t':
			p.consume(1)
		case '#':
			for !p.eof() && p.peek() != '\n' && p.peek() != '\r' {
				p.consume(1)
			}
		case '\n', '\r':
			if !allowNewline {
				return
			}
			p.consume(1)
		default:
			return
		}
	}
}

func isNameChar(c byte, first bool) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(!first && c >= '0' && c <= '9')
}

// parseName consumes an identifier. An empty result is reported only when
// required is set.
func (p *parser) parseName(required bool) (string, error) {
	start := p.pos
	first := true
	for !p.eof() && isNameChar(p.peek(), first) {
		p.consume(1)
		first = false
	}
	if start == p.pos && required {
		return "", p.lexErr(ErrUnexpectedChar, "expected identifier")
	}
	return string(p.src[start:p.pos]), nil
}

// collectNames is the first pass: for every top-level NAME ::= it declares
// the rule so bodies can reference rules defined later in the input.
func (p *parser) collectNames() error {
	p.skipSpace(true)
	for !p.eof() {
		name, err := p.parseName(false)
		if err != nil {
			return err
		}
		p.skipSpace(false)
		if p.peek() == ':' && p.peekAt(1) == ':' && p.peekAt(2) == '=' {
			if name == "" {
				return p.parseErr(ErrUnexpectedToken, "expected rule name before ::=")
			}
			p.consume(3)
			if _, err := p.builder.DeclareRule(name); err != nil {
				return p.parseErr(ErrDuplicateRule, "rule %q is defined multiple times", name)
			}
		}
		for !p.eof() && p.peek() != '\n' && p.peek() != '\r' {
			switch p.peek() {
			case '(':
				p.inParenSkip()
			case '"':
				p.skipQuoted('"')
			case '[':
				p.skipQuoted(']')
			case '#':
				for !p.eof() && p.peek() != '\n' && p.peek() != '\r' {
					p.consume(1)
				}
			default:
				p.consume(1)
			}
		}
		p.skipSpace(true)
	}
	return nil
}

// inParenSkip skips a parenthesized group during name collection so that
// newlines inside parentheses do not terminate the rule scan early. Strings
// and classes are skipped opaquely.
func (p *parser) inParenSkip() {
	depth := 0
	for !p.eof() {
		switch p.peek() {
		case '(':
			depth++
			p.consume(1)
		case ')':
			depth--
			p.consume(1)
			if depth == 0 {
				return
			}
		case '"':
			p.skipQuoted('"')
		case '[':
			p.skipQuoted(']')
		case '#':
			for !p.eof() && p.peek() != '\n' && p.peek() != '\r' {
				p.consume(1)
			}
		default:
			p.consume(1)
		}
	}
}

// skipQuoted consumes up to and including the closing delimiter, honoring
// backslash escapes.
func (p *parser) skipQuoted(close byte) {
	p.consume(1)
	for !p.eof() && p.peek() != close && p.peek() != '\n' && p.peek() != '\r' {
		if p.peek() == '\\' {
			p.consume(1)
		}
		p.consume(1)
	}
	if p.peek() == close {
		p.consume(1)
	}
}

// parseRules is the second pass: it parses every rule body and optional
// look-ahead assertion.
func (p *parser) parseRules() error {
	p.skipSpace(true)
	for !p.eof() {
		if p.peek() == '(' && p.peekAt(1) == '=' {
			return p.parseErr(ErrMultipleLookahead, "unexpected lookahead assertion")
		}
		if err := p.parseRule(); err != nil {
			return err
		}
		p.skipSpace(true)
	}
	return nil
}

func (p *parser) parseRule() error {
	name, err := p.parseName(true)
	if err != nil {
		return err
	}
	p.skipSpace(false)
	if p.peek() != ':' || p.peekAt(1) != ':' || p.peekAt(2) != '=' {
		return p.parseErr(ErrUnexpectedToken, "expected ::= after rule name %q", name)
	}
	p.consume(3)
	p.skipSpace(false)

	id, ok := p.builder.RuleID(name)
	if !ok {
		return p.parseErr(ErrUnknownRule, "rule %q is not declared", name)
	}
	body, err := p.parseChoices()
	if err != nil {
		return err
	}
	p.builder.SetRuleBody(id, body)

	p.skipSpace(false)
	if p.peek() == '(' && p.peekAt(1) == '=' {
		la, err := p.parseLookahead()
		if err != nil {
			return err
		}
		p.builder.SetRuleLookahead(id, la)
	}
	return nil
}

func (p *parser) parseLookahead() (grammar.ExprID, error) {
	p.consume(2)
	prev := p.inParens
	p.inParens = true
	p.skipSpace(true)
	seq, err := p.parseSequence()
	if err != nil {
		return grammar.NoExpr, err
	}
	p.skipSpace(true)
	if p.peek() != ')' {
		return grammar.NoExpr, p.parseErr(ErrUnexpectedToken, "expected ) after lookahead assertion")
	}
	p.consume(1)
	p.inParens = prev
	return seq, nil
}

func (p *parser) parseChoices() (grammar.ExprID, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.cfg.maxDepth {
		return grammar.NoExpr, p.parseErr(ErrRecursionLimit, "nesting deeper than %d", p.cfg.maxDepth)
	}

	first, err := p.parseSequence()
	if err != nil {
		return grammar.NoExpr, err
	}
	choices := []grammar.ExprID{first}
	p.skipSpace(p.inParens)
	for p.peek() == '|' {
		p.consume(1)
		p.skipSpace(true)
		seq, err := p.parseSequence()
		if err != nil {
			return grammar.NoExpr, err
		}
		choices = append(choices, seq)
		p.skipSpace(p.inParens)
	}
	return p.builder.AddChoices(choices), nil
}

// parseSequence parses quantified elements until a separator. Outside
// parentheses a newline ends the sequence; a look-ahead opener always does.
func (p *parser) parseSequence() (grammar.ExprID, error) {
	var elems []grammar.ExprID
	for {
		e, err := p.parseQuantified()
		if err != nil {
			return grammar.NoExpr, err
		}
		elems = append(elems, e)
		p.skipSpace(p.inParens)
		c := p.peek()
		if p.eof() || c == '|' || c == ')' || c == '\n' || c == '\r' ||
			(c == '(' && p.peekAt(1) == '=') {
			break
		}
	}
	return p.builder.AddSequence(elems), nil
}

func (p *parser) parseQuantified() (grammar.ExprID, error) {
	e, err := p.parseElement()
	if err != nil {
		return grammar.NoExpr, err
	}
	p.skipSpace(p.inParens)
	switch p.peek() {
	case '*':
		p.consume(1)
		return p.builder.AddStar(e), nil
	case '+':
		p.consume(1)
		return p.builder.AddPlus(e), nil
	case '?':
		p.consume(1)
		return p.builder.AddQuestion(e), nil
	case '{':
		min, max, err := p.parseBounds()
		if err != nil {
			return grammar.NoExpr, err
		}
		return p.builder.AddQuantifierRange(e, min, max), nil
	}
	return e, nil
}

// parseBounds parses {m}, {m,}, or {m,n}.
func (p *parser) parseBounds() (min, max int32, err error) {
	p.consume(1)
	p.skipSpace(true)
	min, err = p.parseInt()
	if err != nil {
		return 0, 0, err
	}
	p.skipSpace(true)
	switch p.peek() {
	case '}':
		p.consume(1)
		return min, min, nil
	case ',':
		p.consume(1)
		p.skipSpace(true)
		if p.peek() == '}' {
			p.consume(1)
			return min, -1, nil
		}
		max, err = p.parseInt()
		if err != nil {
			return 0, 0, err
		}
		p.skipSpace(true)
		if p.peek() != '}' {
			return 0, 0, p.parseErr(ErrUnexpectedToken, "expected } in repetition range")
		}
		p.consume(1)
		if max < min {
			return 0, 0, p.parseErr(ErrBadRepetitionBounds, "repetition bounds {%d,%d} are reversed", min, max)
		}
		return min, max, nil
	}
	return 0, 0, p.parseErr(ErrUnexpectedToken, "expected , or } in repetition range")
}

func (p *parser) parseInt() (int32, error) {
	c := p.peek()
	if c < '0' || c > '9' {
		return 0, p.lexErr(ErrUnexpectedChar, "expected integer")
	}
	var n int32
	for c := p.peek(); c >= '0' && c <= '9'; c = p.peek() {
		n = n*10 + int32(c-'0')
		if n > maxRepetition {
			return 0, p.parseErr(ErrBadRepetitionBounds, "repetition bound larger than %d", maxRepetition)
		}
		p.consume(1)
	}
	return n, nil
}

func (p *parser) parseElement() (grammar.ExprID, error) {
	switch c := p.peek(); {
	case c == '(':
		p.consume(1)
		p.skipSpace(true)
		if p.peek() == ')' {
			p.consume(1)
			return p.builder.AddEmptyStr(), nil
		}
		prev := p.inParens
		p.inParens = true
		e, err := p.parseChoices()
		if err != nil {
			return grammar.NoExpr, err
		}
		p.skipSpace(true)
		if p.peek() != ')' {
			return grammar.NoExpr, p.parseErr(ErrUnexpectedToken, "expected )")
		}
		p.consume(1)
		p.inParens = prev
		return e, nil

	case c == '[':
		return p.parseCharClass()

	case c == '"':
		return p.parseString()

	case isNameChar(c, true):
		name, err := p.parseName(true)
		if err != nil {
			return grammar.NoExpr, err
		}
		id, ok := p.builder.RuleID(name)
		if !ok {
			return grammar.NoExpr, p.parseErr(ErrUnknownRule, "rule %q is not defined", name)
		}
		return p.builder.AddRuleRef(id), nil

	default:
		return grammar.NoExpr, p.lexErr(ErrUnexpectedChar, "expected element, got %q", c)
	}
}

// parseString parses a double-quoted literal. The empty string becomes
// EmptyStr; a single codepoint becomes one ByteString; longer literals become
// a Sequence of per-codepoint ByteStrings.
func (p *parser) parseString() (grammar.ExprID, error) {
	p.consume(1)
	var parts []grammar.ExprID
	for !p.eof() && p.peek() != '"' && p.peek() != '\n' && p.peek() != '\r' {
		cp, n := p.decodeChar("")
		if cp < 0 {
			return grammar.NoExpr, p.charErr(cp)
		}
		p.consume(n)
		parts = append(parts, p.builder.AddByteString(conv.AppendUTF8(nil, cp)))
	}
	if p.peek() != '"' {
		return grammar.NoExpr, p.lexErr(ErrUnterminated, "unterminated string literal")
	}
	p.consume(1)
	switch len(parts) {
	case 0:
		return p.builder.AddEmptyStr(), nil
	case 1:
		return parts[0], nil
	default:
		return p.builder.AddSequence(parts), nil
	}
}

// decodeChar decodes one codepoint at the cursor, either an escape sequence
// or raw UTF-8, without consuming it.
func (p *parser) decodeChar(extra string) (conv.Codepoint, int) {
	if p.peek() == '\\' {
		return conv.DecodeEscape(p.src[p.pos:], extra)
	}
	return conv.DecodeUTF8(p.src[p.pos:])
}

func (p *parser) charErr(cp conv.Codepoint) error {
	if cp == conv.InvalidEscape {
		return p.lexErr(ErrInvalidEscape, "invalid escape sequence")
	}
	return p.lexErr(ErrInvalidUTF8, "invalid UTF-8 sequence")
}

// parseCharClass parses [...] content. A leading ^ negates; a hyphen is
// literal at either extreme or when escaped; ranges require lo <= hi.
func (p *parser) parseCharClass() (grammar.ExprID, error) {
	p.consume(1)
	negated := false
	if p.peek() == '^' {
		negated = true
		p.consume(1)
	}

	var ranges []grammar.CharRange
	prevSingle := false
	pendingRange := false
	for !p.eof() && p.peek() != ']' {
		if p.peek() == '\n' || p.peek() == '\r' {
			return grammar.NoExpr, p.lexErr(ErrUnterminated, "character class contains newline")
		}
		if p.peek() == '-' && p.peekAt(1) != ']' && prevSingle && !pendingRange {
			p.consume(1)
			pendingRange = true
			prevSingle = false
			continue
		}
		cp, n := p.decodeChar(classEscapes)
		if cp < 0 {
			return grammar.NoExpr, p.charErr(cp)
		}
		p.consume(n)
		if pendingRange {
			lo := ranges[len(ranges)-1].Lo
			if lo > cp {
				return grammar.NoExpr, p.lexErr(ErrInvalidCharClass, "range bounds are reversed")
			}
			ranges[len(ranges)-1].Hi = cp
			pendingRange = false
		} else {
			ranges = append(ranges, grammar.CharRange{Lo: cp, Hi: cp})
			prevSingle = true
		}
	}
	if p.eof() {
		return grammar.NoExpr, p.lexErr(ErrUnterminated, "unterminated character class")
	}
	p.consume(1)
	if len(ranges) == 0 {
		return grammar.NoExpr, p.lexErr(ErrInvalidCharClass, "empty character class")
	}
	return p.builder.AddCharacterClass(negated, ranges), nil
}
