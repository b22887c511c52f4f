package marker

import (
	"fmt"
	"slices"
	"strings"
)

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	src    string
	tokens []token
	cur    int
}

var operators = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

func (p *parser) errorf(format string, args ...any) error {
	pos := len(p.src)
	if !p.done() {
		pos = p.peek().pos
	}
	return &SyntaxError{Marker: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) tokenize() error {
	s := p.src
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			p.tokens = append(p.tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			p.tokens = append(p.tokens, token{tokRParen, ")", i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return &SyntaxError{Marker: s, Pos: i, Msg: "unterminated string"}
			}
			p.tokens = append(p.tokens, token{tokString, s[i+1 : i+1+end], i})
			i += end + 2
		case isIdentByte(c):
			start := i
			for i < len(s) && (isIdentByte(s[i]) || s[i] == '.') {
				i++
			}
			p.tokens = append(p.tokens, token{tokIdent, s[start:i], start})
		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(s[i:], op) {
					p.tokens = append(p.tokens, token{tokOp, op, i})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return &SyntaxError{Marker: s, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
		}
	}
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) done() bool {
	return p.cur >= len(p.tokens)
}

func (p *parser) peek() token {
	return p.tokens[p.cur]
}

func (p *parser) advance() token {
	t := p.tokens[p.cur]
	p.cur++
	return t
}

func (p *parser) acceptKeyword(kw string) bool {
	if !p.done() && p.peek().kind == tokIdent && p.peek().text == kw {
		p.cur++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("and") {
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseExpr() (node, error) {
	if p.done() {
		return nil, p.errorf("expected expression")
	}
	if p.peek().kind == tokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek().kind != tokRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.advance()
		return &group{inner: inner}, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &compare{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	if p.done() {
		return operand{}, p.errorf("expected a variable or a quoted string")
	}
	t := p.peek()
	switch t.kind {
	case tokString:
		p.advance()
		return operand{literal: t.text}, nil
	case tokIdent:
		name := strings.ReplaceAll(t.text, "platform.", "platform_")
		if !slices.Contains(Variables, name) {
			return operand{}, p.errorf("unknown variable %q", t.text)
		}
		p.advance()
		return operand{variable: name}, nil
	}
	return operand{}, p.errorf("expected a variable or a quoted string, got %q", t.text)
}

func (p *parser) parseOperator() (string, error) {
	if p.done() {
		return "", p.errorf("expected an operator")
	}
	t := p.peek()
	switch {
	case t.kind == tokOp:
		p.advance()
		return t.text, nil
	case p.acceptKeyword("in"):
		return "in", nil
	case p.acceptKeyword("not"):
		if !p.acceptKeyword("in") {
			return "", p.errorf("expected 'in' after 'not'")
		}
		return "not in", nil
	}
	return "", p.errorf("expected an operator, got %q", t.text)
}
