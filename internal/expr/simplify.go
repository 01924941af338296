package expr

import (
	"fmt"
	"sort"
	"strings"
)

// Monomial is a product of variables with an integer coefficient. A
// monomial with no variables is the constant term.
type Monomial struct {
	Vars  []string
	Coeff int64
}

// poly is a normalized polynomial, keyed by the canonical variable
// product of each monomial. The empty key holds the constant term.
type poly struct {
	terms map[string]*Monomial
}

func newPoly() *poly { return &poly{terms: map[string]*Monomial{}} }

func monoKey(vars []string) string { return strings.Join(vars, "*") }

func (p *poly) add(vars []string, coeff int64) {
	if coeff == 0 {
		return
	}
	key := monoKey(vars)
	if m, ok := p.terms[key]; ok {
		m.Coeff += coeff
		if m.Coeff == 0 {
			delete(p.terms, key)
		}
		return
	}
	p.terms[key] = &Monomial{Vars: vars, Coeff: coeff}
}

func (p *poly) addPoly(q *poly) {
	for _, m := range q.terms {
		p.add(m.Vars, m.Coeff)
	}
}

func (p *poly) mulPoly(q *poly) *poly {
	out := newPoly()
	for _, a := range p.terms {
		for _, b := range q.terms {
			vars := append(append([]string{}, a.Vars...), b.Vars...)
			sort.Strings(vars)
			out.add(vars, a.Coeff*b.Coeff)
		}
	}
	return out
}

// polyOf normalizes an expression into polynomial form. It fails for
// expressions that are not polynomials over integer coefficients, such
// as min/max calls or inexact quotients.
func polyOf(e Expr) (*poly, bool) {
	switch v := e.(type) {
	case *IntLit:
		p := newPoly()
		p.add(nil, v.Val)
		return p, true
	case *Var:
		p := newPoly()
		p.add([]string{v.Name}, 1)
		return p, true
	case *Sum:
		p := newPoly()
		for _, t := range v.Terms {
			q, ok := polyOf(t)
			if !ok {
				return nil, false
			}
			p.addPoly(q)
		}
		return p, true
	case *Mul:
		p := newPoly()
		p.add(nil, 1)
		for _, f := range v.Factors {
			q, ok := polyOf(f)
			if !ok {
				return nil, false
			}
			p = p.mulPoly(q)
		}
		return p, true
	case *Div:
		num, ok := polyOf(v.Num)
		if !ok {
			return nil, false
		}
		den, ok := polyOf(v.Den)
		if !ok {
			return nil, false
		}
		d, ok := den.constant()
		if !ok || d == 0 {
			return nil, false
		}
		out := newPoly()
		for _, m := range num.terms {
			if m.Coeff%d != 0 {
				return nil, false
			}
			out.add(m.Vars, m.Coeff/d)
		}
		return out, true
	}
	return nil, false
}

// constant returns the value of a constant polynomial.
func (p *poly) constant() (int64, bool) {
	switch len(p.terms) {
	case 0:
		return 0, true
	case 1:
		if m, ok := p.terms[""]; ok {
			return m.Coeff, true
		}
	}
	return 0, false
}

// expr rebuilds a polynomial into a deterministic expression: variable
// terms in sorted key order, constant term last.
func (p *poly) expr() Expr {
	keys := make([]string, 0, len(p.terms))
	for k := range p.terms {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var terms []Expr
	for _, k := range keys {
		m := p.terms[k]
		factors := make([]Expr, 0, len(m.Vars)+1)
		if m.Coeff != 1 && !(m.Coeff == -1 && len(m.Vars) > 0) {
			factors = append(factors, Int(m.Coeff))
		} else if m.Coeff == -1 {
			factors = append(factors, Int(-1))
		}
		for _, name := range m.Vars {
			factors = append(factors, V(name))
		}
		terms = append(terms, MulOf(factors...))
	}
	if c, ok := p.terms[""]; ok {
		terms = append(terms, Int(c.Coeff))
	}
	if len(terms) == 0 {
		return Int(0)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return &Sum{Terms: terms}
}

// Simplify returns a canonical form of the expression: polynomial parts
// are folded and collected, everything else is simplified recursively.
func Simplify(e Expr) Expr {
	if e == nil {
		return nil
	}
	if p, ok := polyOf(e); ok {
		return p.expr()
	}
	switch v := e.(type) {
	case *Sum:
		terms := make([]Expr, 0, len(v.Terms))
		for _, t := range v.Terms {
			terms = append(terms, Simplify(t))
		}
		return &Sum{Terms: terms}
	case *Mul:
		factors := make([]Expr, 0, len(v.Factors))
		for _, f := range v.Factors {
			factors = append(factors, Simplify(f))
		}
		return &Mul{Factors: factors}
	case *Div:
		num, den := Simplify(v.Num), Simplify(v.Den)
		if d, ok := den.(*IntLit); ok {
			switch {
			case d.Val == 1:
				return num
			case d.Val == -1:
				return Simplify(MulOf(Int(-1), num))
			}
			if n, ok := num.(*IntLit); ok && d.Val != 0 && n.Val%d.Val == 0 {
				return Int(n.Val / d.Val)
			}
		}
		return &Div{Num: num, Den: den}
	case *Call:
		args := make([]Expr, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, Simplify(a))
		}
		return &Call{Fn: v.Fn, Args: args}
	case *Cmp:
		return &Cmp{Op: v.Op, Left: Simplify(v.Left), Right: Simplify(v.Right)}
	case *And:
		conds := make([]Expr, 0, len(v.Conds))
		for _, c := range v.Conds {
			conds = append(conds, Simplify(c))
		}
		return &And{Conds: conds}
	case *ArrayRef:
		idx := make([]Expr, 0, len(v.Index))
		for _, i := range v.Index {
			idx = append(idx, Simplify(i))
		}
		return &ArrayRef{Name: v.Name, Index: idx}
	case *RangeIdx:
		return &RangeIdx{Start: Simplify(v.Start), Stop: Simplify(v.Stop), Step: Simplify(v.Step)}
	}
	return e
}

// Monomials decomposes an expression into its monomial terms and the
// constant term. It fails for non-polynomial expressions.
func Monomials(e Expr) ([]Monomial, int64, error) {
	p, ok := polyOf(e)
	if !ok {
		return nil, 0, fmt.Errorf("cannot decompose %q into monomials", e)
	}
	keys := make([]string, 0, len(p.terms))
	for k := range p.terms {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Monomial, 0, len(keys))
	for _, k := range keys {
		out = append(out, *p.terms[k])
	}
	var c int64
	if m, ok := p.terms[""]; ok {
		c = m.Coeff
	}
	return out, c, nil
}

// IsConstant reports whether the expression simplifies to an integer
// literal.
func IsConstant(e Expr) bool {
	_, ok := Simplify(e).(*IntLit)
	return ok
}

// ConstValue returns the value of a constant expression.
func ConstValue(e Expr) (int64, bool) {
	lit, ok := Simplify(e).(*IntLit)
	if !ok {
		return 0, false
	}
	return lit.Val, true
}

// Compare evaluates `a op b` symbolically. For ordering operators the
// result is decided only when a-b simplifies to a constant; an
// undecidable comparison reports false. Equality falls back to
// structural comparison of the simplified operands.
func Compare(a Expr, op CmpOp, b Expr) bool {
	d, constant := ConstValue(Sub(a, b))
	if constant {
		switch op {
		case Lt:
			return d < 0
		case Le:
			return d <= 0
		case Gt:
			return d > 0
		case Ge:
			return d >= 0
		case Eq:
			return d == 0
		case Ne:
			return d != 0
		}
	}
	switch op {
	case Eq:
		return Equal(a, b)
	case Ne:
		return !Equal(a, b)
	}
	return false
}

// Substitute replaces variable references by name. Array references
// whose base name maps to a plain variable are renamed, keeping their
// subscripts.
func Substitute(e Expr, mapping map[string]Expr) Expr {
	if e == nil || len(mapping) == 0 {
		return e
	}
	switch v := e.(type) {
	case *IntLit:
		return v
	case *Var:
		if repl, ok := mapping[v.Name]; ok {
			return repl
		}
		return v
	case *Sum:
		terms := make([]Expr, 0, len(v.Terms))
		for _, t := range v.Terms {
			terms = append(terms, Substitute(t, mapping))
		}
		return &Sum{Terms: terms}
	case *Mul:
		factors := make([]Expr, 0, len(v.Factors))
		for _, f := range v.Factors {
			factors = append(factors, Substitute(f, mapping))
		}
		return &Mul{Factors: factors}
	case *Div:
		return &Div{Num: Substitute(v.Num, mapping), Den: Substitute(v.Den, mapping)}
	case *Call:
		args := make([]Expr, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, Substitute(a, mapping))
		}
		return &Call{Fn: v.Fn, Args: args}
	case *Cmp:
		return &Cmp{Op: v.Op, Left: Substitute(v.Left, mapping), Right: Substitute(v.Right, mapping)}
	case *And:
		conds := make([]Expr, 0, len(v.Conds))
		for _, c := range v.Conds {
			conds = append(conds, Substitute(c, mapping))
		}
		return &And{Conds: conds}
	case *ArrayRef:
		name := v.Name
		if repl, ok := mapping[v.Name]; ok {
			if rv, ok := repl.(*Var); ok {
				name = rv.Name
			}
		}
		idx := make([]Expr, 0, len(v.Index))
		for _, i := range v.Index {
			idx = append(idx, Substitute(i, mapping))
		}
		return &ArrayRef{Name: name, Index: idx}
	case *RangeIdx:
		return &RangeIdx{
			Start: Substitute(v.Start, mapping),
			Stop:  Substitute(v.Stop, mapping),
			Step:  Substitute(v.Step, mapping),
		}
	}
	return e
}

// Vars returns the sorted set of variable names referenced by the
// expression, including array base names.
func Vars(e Expr) []string {
	seen := map[string]bool{}
	collectVars(e, seen)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectVars(e Expr, seen map[string]bool) {
	switch v := e.(type) {
	case nil:
		return
	case *Var:
		seen[v.Name] = true
	case *Sum:
		for _, t := range v.Terms {
			collectVars(t, seen)
		}
	case *Mul:
		for _, f := range v.Factors {
			collectVars(f, seen)
		}
	case *Div:
		collectVars(v.Num, seen)
		collectVars(v.Den, seen)
	case *Call:
		for _, a := range v.Args {
			collectVars(a, seen)
		}
	case *Cmp:
		collectVars(v.Left, seen)
		collectVars(v.Right, seen)
	case *And:
		for _, c := range v.Conds {
			collectVars(c, seen)
		}
	case *ArrayRef:
		seen[v.Name] = true
		for _, i := range v.Index {
			collectVars(i, seen)
		}
	case *RangeIdx:
		collectVars(v.Start, seen)
		collectVars(v.Stop, seen)
		collectVars(v.Step, seen)
	}
}
