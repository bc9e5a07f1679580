package formula

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// maxDepth bounds nesting of parentheses and unary signs.
const maxDepth = 200

type parser struct {
	toks  []token
	pos   int
	depth int
}

// Parse parses src into an expression tree. A leading '=' is ignored.
//
//	expr   := term (('+'|'-') term)*
//	term   := factor (('*'|'/'|'//'|'%') factor)*
//	factor := ('+'|'-') factor | power
//	power  := atom ('**' factor)?
//	atom   := NUMBER | IDENT | '(' expr ')'
func Parse(src string) (Expr, error) {
	s := strip(src)
	if s == "" {
		return nil, ErrEmpty
	}
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
	return e, nil
}

// Variables returns the distinct identifiers src references, sorted.
func Variables(src string) ([]string, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	collectVariables(e, seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return ErrTooDeep
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().kind {
		case tokPlus:
			op = OpAdd
		case tokMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) term() (Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		case tokDoubleSlash:
			op = OpFloorDiv
		case tokPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) factor() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch p.peek().kind {
	case tokMinus, tokPlus:
		op := OpNeg
		if p.next().kind == tokPlus {
			op = OpPos
		}
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.factor()
	if err != nil {
		return nil, err
	}
	return Binary{Op: OpPow, Left: base, Right: exp}, nil
}

func (p *parser) atom() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("%w: malformed number %q", ErrSyntax, t.text)
		}
		return Number{Value: v}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return nil, fmt.Errorf("%w: calls are not allowed (%s)", ErrSyntax, t.text)
		}
		return Variable{Name: t.text}, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')' at %d", ErrSyntax, closing.pos)
		}
		return e, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
}
