package regex

import "github.com/coregx/ebnf/internal/conv"

// DefaultMaxDepth is the default nesting depth limit for the parser.
const DefaultMaxDepth = 200

// Option configures parsing and compilation.
type Option func(*parser)

// WithMaxDepth overrides the nesting depth limit.
func WithMaxDepth(n int) Option {
	return func(p *parser) { p.maxDepth = n }
}

// metaEscapes are the bytes that escape to themselves in pattern position,
// beyond the shared escape table.
const metaEscapes = `-]^*+?()[{}|.$`

type parser struct {
	pattern  string
	src      []byte
	pos      int
	depth    int
	maxDepth int
}

// Parse parses pattern into its IR. The returned tree is freshly allocated
// and owned by the caller.
func Parse(pattern string, opts ...Option) (*Node, error) {
	p := &parser{pattern: pattern, src: []byte(pattern), maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(p)
	}
	n, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, p.errAt(p.pos, ErrUnbalancedBracket)
	}
	return n, nil
}

func (p *parser) errAt(pos int, err error) error {
	return &ParseError{Pattern: p.pattern, Pos: pos, Err: err}
}

func (p *parser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseUnion() (*Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, p.errAt(p.pos, ErrRecursionLimit)
	}

	first, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	alts := []*Node{first}
	for p.eat('|') {
		n, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		alts = append(alts, n)
	}
	if len(alts) == 1 {
		return first, nil
	}
	return &Node{Kind: KindUnion, Subs: alts}, nil
}

func (p *parser) parseConcat() (*Node, error) {
	var subs []*Node
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '|' || c == ')' {
			break
		}
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		node := atom
		if p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '*', '+', '?':
				node = &Node{Kind: KindSymbol, Op: p.src[p.pos], Subs: []*Node{atom}}
				p.pos++
			case '{':
				node, err = p.parseRepeat(atom)
				if err != nil {
					return nil, err
				}
			}
		}
		// Fuse adjacent unquantified literal fragments.
		if node == atom && atom.Kind == KindLiteral && len(subs) > 0 &&
			subs[len(subs)-1].Kind == KindLiteral {
			prev := subs[len(subs)-1]
			prev.Text = append(prev.Text, atom.Text...)
			continue
		}
		subs = append(subs, node)
	}
	switch len(subs) {
	case 0:
		return &Node{Kind: KindLiteral}, nil
	case 1:
		return subs[0], nil
	}
	return &Node{Kind: KindGroup, Subs: subs}, nil
}

func (p *parser) parseAtom() (*Node, error) {
	switch c := p.src[p.pos]; c {
	case '(':
		open := p.pos
		p.pos++
		if p.pos < len(p.src) && p.src[p.pos] == '?' {
			if p.pos+1 >= len(p.src) || (p.src[p.pos+1] != '=' && p.src[p.pos+1] != '!') {
				return nil, p.errAt(p.pos, ErrStrayOperator)
			}
			positive := p.src[p.pos+1] == '='
			p.pos += 2
			body, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			if !p.eat(')') {
				return nil, p.errAt(open, ErrUnbalancedBracket)
			}
			return &Node{Kind: KindLookAhead, Positive: positive, Subs: []*Node{body}}, nil
		}
		body, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if !p.eat(')') {
			return nil, p.errAt(open, ErrUnbalancedBracket)
		}
		return body, nil

	case '[':
		return p.parseClass()

	case '.':
		p.pos++
		return &Node{Kind: KindClass, Text: []byte(`^\n`)}, nil

	case '*', '+', '?', '{':
		return nil, p.errAt(p.pos, ErrStrayOperator)

	case ')':
		return nil, p.errAt(p.pos, ErrUnbalancedBracket)

	case '\\':
		cp, n := conv.DecodeEscape(p.src[p.pos:], metaEscapes)
		if n == 0 {
			return nil, p.errAt(p.pos, ErrInvalidEscape)
		}
		p.pos += n
		return &Node{Kind: KindLiteral, Text: conv.AppendUTF8(nil, cp)}, nil

	default:
		if c < 0x80 {
			p.pos++
			return &Node{Kind: KindLiteral, Text: []byte{c}}, nil
		}
		cp, n := conv.DecodeUTF8(p.src[p.pos:])
		if n == 0 {
			return nil, p.errAt(p.pos, ErrInvalidUTF8)
		}
		p.pos += n
		return &Node{Kind: KindLiteral, Text: conv.AppendUTF8(nil, cp)}, nil
	}
}

func (p *parser) parseClass() (*Node, error) {
	open := p.pos
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ']' {
		if p.src[p.pos] == '\\' {
			p.pos++
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, p.errAt(open, ErrUnbalancedBracket)
	}
	text := append([]byte(nil), p.src[start:p.pos]...)
	p.pos++
	if _, _, err := parseClassText(text); err != nil {
		return nil, p.errAt(open, err)
	}
	return &Node{Kind: KindClass, Text: text}, nil
}

func (p *parser) parseRepeat(atom *Node) (*Node, error) {
	open := p.pos
	p.pos++
	min, ok := p.parseInt()
	if !ok {
		return nil, p.errAt(open, ErrBadRepetitionBounds)
	}
	max := min
	if p.eat(',') {
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			max = -1
		} else {
			max, ok = p.parseInt()
			if !ok {
				return nil, p.errAt(open, ErrBadRepetitionBounds)
			}
		}
	}
	if !p.eat('}') {
		return nil, p.errAt(open, ErrBadRepetitionBounds)
	}
	if max >= 0 && min > max {
		return nil, p.errAt(open, ErrBadRepetitionBounds)
	}
	return &Node{Kind: KindRepeat, Min: min, Max: max, Subs: []*Node{atom}}, nil
}

func (p *parser) parseInt() (int, bool) {
	start := p.pos
	v := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		v = v*10 + int(p.src[p.pos]-'0')
		if v > 1<<20 {
			return 0, false
		}
		p.pos++
	}
	return v, p.pos > start
}
