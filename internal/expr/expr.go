// Package expr implements the symbolic expression algebra used by the
// loop-transformation engine: integer-coefficient linear expressions,
// min/max calls, comparisons and array subscripts, together with
// simplification, monomial decomposition and substitution.
package expr

import (
	"fmt"
	"strings"
)

// Expr is the closed set of expression node kinds.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// IntLit is an integer literal.
type IntLit struct {
	Val int64
}

// Var is a scalar variable reference. Names are case-normalized to lower
// case by the frontend.
type Var struct {
	Name string
}

// Sum is an n-ary addition.
type Sum struct {
	Terms []Expr
}

// Mul is an n-ary multiplication.
type Mul struct {
	Factors []Expr
}

// Div is an integer quotient.
type Div struct {
	Num Expr
	Den Expr
}

// Call is an intrinsic call such as min(...) or max(...).
type Call struct {
	Fn   string
	Args []Expr
}

// CmpOp enumerates comparison operators.
type CmpOp int

const (
	Lt CmpOp = iota
	Le
	Gt
	Ge
	Eq
	Ne
)

func (op CmpOp) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case Eq:
		return "=="
	default:
		return "/="
	}
}

// Cmp is a relational expression.
type Cmp struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

// And is a logical conjunction.
type And struct {
	Conds []Expr
}

// ArrayRef is a subscripted variable reference.
type ArrayRef struct {
	Name  string
	Index []Expr
}

// RangeIdx is a subscript range lo:hi[:step]; any component may be nil,
// and the all-nil value prints as the full-range colon.
type RangeIdx struct {
	Start Expr
	Stop  Expr
	Step  Expr
}

func (*IntLit) isExpr()   {}
func (*Var) isExpr()      {}
func (*Sum) isExpr()      {}
func (*Mul) isExpr()      {}
func (*Div) isExpr()      {}
func (*Call) isExpr()     {}
func (*Cmp) isExpr()      {}
func (*And) isExpr()      {}
func (*ArrayRef) isExpr() {}
func (*RangeIdx) isExpr() {}

// Int returns an integer literal.
func Int(v int64) *IntLit { return &IntLit{Val: v} }

// V returns a variable reference with the name lowered.
func V(name string) *Var { return &Var{Name: strings.ToLower(name)} }

// Add returns the sum of the given terms, collapsing the trivial cases.
func Add(terms ...Expr) Expr {
	if len(terms) == 1 {
		return terms[0]
	}
	return &Sum{Terms: terms}
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	return &Sum{Terms: []Expr{a, &Mul{Factors: []Expr{Int(-1), b}}}}
}

// MulOf returns the product of the given factors, collapsing the trivial
// cases.
func MulOf(factors ...Expr) Expr {
	if len(factors) == 1 {
		return factors[0]
	}
	return &Mul{Factors: factors}
}

func (e *IntLit) String() string {
	return fmt.Sprintf("%d", e.Val)
}

func (e *Var) String() string { return e.Name }

func (e *Sum) String() string {
	var b strings.Builder
	for i, t := range e.Terms {
		s := t.String()
		if i == 0 {
			b.WriteString(s)
			continue
		}
		if strings.HasPrefix(s, "-") {
			b.WriteString(" - ")
			b.WriteString(s[1:])
		} else {
			b.WriteString(" + ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func (e *Mul) String() string {
	parts := make([]string, 0, len(e.Factors))
	for _, f := range e.Factors {
		parts = append(parts, parenthesize(f))
	}
	// fold a leading -1 coefficient into a sign
	if len(parts) > 1 && parts[0] == "-1" {
		return "-" + strings.Join(parts[1:], "*")
	}
	return strings.Join(parts, "*")
}

func (e *Div) String() string {
	return parenthesize(e.Num) + " / " + parenthesize(e.Den)
}

func (e *Call) String() string {
	args := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, a.String())
	}
	return e.Fn + "(" + strings.Join(args, ", ") + ")"
}

func (e *Cmp) String() string {
	return e.Left.String() + " " + e.Op.String() + " " + e.Right.String()
}

func (e *And) String() string {
	parts := make([]string, 0, len(e.Conds))
	for _, c := range e.Conds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " .and. ")
}

func (e *ArrayRef) String() string {
	idx := make([]string, 0, len(e.Index))
	for _, i := range e.Index {
		idx = append(idx, i.String())
	}
	return e.Name + "(" + strings.Join(idx, ", ") + ")"
}

func (e *RangeIdx) String() string {
	if e.Start == nil && e.Stop == nil && e.Step == nil {
		return ":"
	}
	s := ""
	if e.Start != nil {
		s += e.Start.String()
	}
	s += ":"
	if e.Stop != nil {
		s += e.Stop.String()
	}
	if e.Step != nil {
		s += ":" + e.Step.String()
	}
	return s
}

func parenthesize(e Expr) string {
	switch e.(type) {
	case *Sum, *Div:
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Equal reports structural equality of two expressions after
// simplification.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return Simplify(a).String() == Simplify(b).String()
}
