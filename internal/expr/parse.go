package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse parses a Fortran-style expression. Subscripted names are read as
// array references, except for the min/max intrinsics which become
// calls.
func Parse(s string) (Expr, error) {
	p := &parser{src: s}
	p.next()
	e, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	if p.tok != tokEOF {
		return nil, fmt.Errorf("unexpected %q in expression %q", p.lit, s)
	}
	return e, nil
}

// ParseRange parses a `lo:hi[:step]` range as used by the loop-fusion
// range parameter.
func ParseRange(s string) (start, stop, step Expr, err error) {
	parts := SplitTop(s, ':')
	if len(parts) != 2 && len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("malformed range %q", s)
	}
	if start, err = Parse(parts[0]); err != nil {
		return nil, nil, nil, err
	}
	if stop, err = Parse(parts[1]); err != nil {
		return nil, nil, nil, err
	}
	if len(parts) == 3 {
		if step, err = Parse(parts[2]); err != nil {
			return nil, nil, nil, err
		}
	}
	return start, stop, step, nil
}

// SplitTop splits on a separator at parenthesis depth zero.
func SplitTop(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[last:]))
}

type token int

const (
	tokEOF token = iota
	tokInt
	tokIdent
	tokOp    // + - * /
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokCmp // < <= > >= == /=
	tokAnd // .and.
)

type parser struct {
	src string
	pos int
	tok token
	lit string
}

func (p *parser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok, p.lit = tokEOF, ""
		return
	}
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		p.tok, p.lit = tokInt, p.src[start:p.pos]
	case unicode.IsLetter(rune(c)) || c == '_':
		start := p.pos
		for p.pos < len(p.src) && (unicode.IsLetter(rune(p.src[p.pos])) || unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '_') {
			p.pos++
		}
		p.tok, p.lit = tokIdent, strings.ToLower(p.src[start:p.pos])
	case c == '.' && strings.HasPrefix(strings.ToLower(p.src[p.pos:]), ".and."):
		p.pos += len(".and.")
		p.tok, p.lit = tokAnd, ".and."
	case c == '+' || c == '-' || c == '*':
		p.pos++
		p.tok, p.lit = tokOp, string(c)
	case c == '/':
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '=' {
			p.pos += 2
			p.tok, p.lit = tokCmp, "/="
			return
		}
		p.pos++
		p.tok, p.lit = tokOp, "/"
	case c == '(':
		p.pos++
		p.tok, p.lit = tokLParen, "("
	case c == ')':
		p.pos++
		p.tok, p.lit = tokRParen, ")"
	case c == ',':
		p.pos++
		p.tok, p.lit = tokComma, ","
	case c == ':':
		p.pos++
		p.tok, p.lit = tokColon, ":"
	case c == '<' || c == '>' || c == '=':
		op := string(c)
		p.pos++
		if p.pos < len(p.src) && p.src[p.pos] == '=' {
			op += "="
			p.pos++
		}
		p.tok, p.lit = tokCmp, op
	default:
		p.tok, p.lit = tokEOF, ""
		p.pos = len(p.src)
	}
}

func (p *parser) conjunction() (Expr, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.tok != tokAnd {
		return left, nil
	}
	conds := []Expr{left}
	for p.tok == tokAnd {
		p.next()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		conds = append(conds, right)
	}
	return &And{Conds: conds}, nil
}

func (p *parser) comparison() (Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	if p.tok != tokCmp {
		return left, nil
	}
	var op CmpOp
	switch p.lit {
	case "<":
		op = Lt
	case "<=":
		op = Le
	case ">":
		op = Gt
	case ">=":
		op = Ge
	case "==", "=":
		op = Eq
	case "/=":
		op = Ne
	}
	p.next()
	right, err := p.additive()
	if err != nil {
		return nil, err
	}
	return &Cmp{Op: op, Left: left, Right: right}, nil
}

func (p *parser) additive() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for p.tok == tokOp && (p.lit == "+" || p.lit == "-") {
		neg := p.lit == "-"
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if neg {
			right = MulOf(Int(-1), right)
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return &Sum{Terms: terms}, nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	out := left
	for p.tok == tokOp && (p.lit == "*" || p.lit == "/") {
		div := p.lit == "/"
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if div {
			out = &Div{Num: out, Den: right}
		} else {
			out = MulOf(out, right)
		}
	}
	return out, nil
}

func (p *parser) unary() (Expr, error) {
	if p.tok == tokOp && (p.lit == "+" || p.lit == "-") {
		neg := p.lit == "-"
		p.next()
		e, err := p.primary()
		if err != nil {
			return nil, err
		}
		if neg {
			return MulOf(Int(-1), e), nil
		}
		return e, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	switch p.tok {
	case tokInt:
		v, err := strconv.ParseInt(p.lit, 10, 64)
		if err != nil {
			return nil, err
		}
		p.next()
		return Int(v), nil
	case tokIdent:
		name := p.lit
		p.next()
		if p.tok != tokLParen {
			return V(name), nil
		}
		p.next()
		var args []Expr
		for {
			arg, err := p.subscript()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok != tokComma {
				break
			}
			p.next()
		}
		if p.tok != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis after %q", name)
		}
		p.next()
		if name == "min" || name == "max" {
			return &Call{Fn: name, Args: args}, nil
		}
		return &ArrayRef{Name: name, Index: args}, nil
	case tokLParen:
		p.next()
		e, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		if p.tok != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return e, nil
	}
	return nil, fmt.Errorf("unexpected %q", p.lit)
}

// subscript parses one array subscript, which may be a range such as
// `1:n` or the bare colon.
func (p *parser) subscript() (Expr, error) {
	if p.tok == tokColon {
		p.next()
		return &RangeIdx{}, nil
	}
	e, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	if p.tok != tokColon {
		return e, nil
	}
	p.next()
	if p.tok == tokComma || p.tok == tokRParen {
		return &RangeIdx{Start: e}, nil
	}
	stop, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	return &RangeIdx{Start: e, Stop: stop}, nil
}
