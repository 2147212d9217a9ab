package sym

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Parse reads an expression previously rendered by Expr.String. It
// understands numeric literals, symbol names (including bracketed names
// like "x[4]" produced by imported parameter vectors), the constant pi,
// unary minus, and the operators + - * / with parentheses.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	expr, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected %q at position %d in %q", p.input[p.pos], p.pos, input)
	}
	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for {
		ch, ok := p.peek()
		if !ok || (ch != '+' && ch != '-') {
			break
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		if ch == '-' {
			right = NewNeg(right)
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return NewSum(terms...), nil
}

func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	factors := []Expr{left}
	for {
		ch, ok := p.peek()
		if !ok || (ch != '*' && ch != '/') {
			break
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		if ch == '/' {
			v, numeric := right.Number()
			if !numeric {
				return nil, fmt.Errorf("division by symbolic expression %q is not supported", right)
			}
			if v == 0 {
				return nil, fmt.Errorf("division by zero in %q", p.input)
			}
			right = Number(1 / v)
		}
		factors = append(factors, right)
	}
	if len(factors) == 1 {
		return factors[0], nil
	}
	return NewProduct(factors...), nil
}

func (p *parser) parseFactor() (Expr, error) {
	ch, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression %q", p.input)
	}
	switch {
	case ch == '-':
		p.pos++
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return NewNeg(operand), nil
	case ch == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if next, ok := p.peek(); !ok || next != ')' {
			return nil, fmt.Errorf("missing closing parenthesis in %q", p.input)
		}
		p.pos++
		return inner, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(ch)) || ch == '_':
		return p.parseIdent()
	}
	return nil, fmt.Errorf("unexpected %q at position %d in %q", ch, p.pos, p.input)
}

func (p *parser) parseNumber() (Expr, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch >= '0' && ch <= '9' || ch == '.' {
			p.pos++
			continue
		}
		// Scientific notation, e.g. 1e-07.
		if (ch == 'e' || ch == 'E') && p.pos > start {
			next := p.pos + 1
			if next < len(p.input) && (p.input[next] == '+' || p.input[next] == '-') {
				next++
			}
			if next < len(p.input) && p.input[next] >= '0' && p.input[next] <= '9' {
				p.pos = next
				continue
			}
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", p.input[start:p.pos], err)
	}
	return Number(v), nil
}

func (p *parser) parseIdent() (Expr, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.input[start:p.pos]
	// Bracketed suffix for parameter-vector symbols ("x[4]").
	if p.pos < len(p.input) && p.input[p.pos] == '[' {
		end := strings.IndexByte(p.input[p.pos:], ']')
		if end < 0 {
			return nil, fmt.Errorf("missing closing bracket in symbol name at %q", p.input[start:])
		}
		name += p.input[p.pos : p.pos+end+1]
		p.pos += end + 1
	}
	if name == "pi" {
		return Number(math.Pi), nil
	}
	return Symbol{name: name}, nil
}
