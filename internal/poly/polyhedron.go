// Package poly implements the affine halfspace model of loop iteration
// spaces and its Fourier-Motzkin projection. A polyhedron is the region
// {x | Ax <= b} over the loop variables plus any free symbols occurring
// in the bounds. Values are built per driver call and discarded after
// use.
package poly

import (
	"sort"
	"strings"

	"github.com/fortress-labs/floop/internal/expr"
	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/types"
)

// Polyhedron is the halfspace system Ax <= b with integer entries.
// Variables names the columns.
type Polyhedron struct {
	A         [][]int64
	B         []int64
	Variables []string
}

// New validates the system dimensions and wraps them.
func New(a [][]int64, b []int64, variables []string) (*Polyhedron, error) {
	if len(a) != len(b) {
		return nil, types.Structural("polyhedron", "matrix has %d rows but right-hand side has %d entries", len(a), len(b))
	}
	for _, row := range a {
		if len(row) != len(variables) {
			return nil, types.Structural("polyhedron", "row width %d does not match %d variables", len(row), len(variables))
		}
	}
	return &Polyhedron{A: a, B: b, Variables: variables}, nil
}

// Index returns the column of a variable.
func (p *Polyhedron) Index(name string) (int, error) {
	name = strings.ToLower(name)
	for j, v := range p.Variables {
		if v == name {
			return j, nil
		}
	}
	return 0, types.Reference(name, "variable not present in polyhedron")
}

// lowerBoundRow derives the matrix row and right-hand side entry for
// the lower bound `x_index >= bound`. Upper bounds are obtained by
// negating both sides. Only affine bounds can be represented; anything
// else is a StructuralError naming the offending expression.
func lowerBoundRow(bound expr.Expr, variables []string, index int) ([]int64, int64, error) {
	monos, c, err := expr.Monomials(bound)
	if err != nil {
		return nil, 0, types.Structural("loop bound", "cannot derive inequality from bound %q", bound)
	}
	row := make([]int64, len(variables))
	row[index] = -1
	for _, m := range monos {
		if len(m.Vars) != 1 {
			return nil, 0, types.Structural("loop bound", "non-affine bound %q", bound)
		}
		j := -1
		for k, v := range variables {
			if v == m.Vars[0] {
				j = k
				break
			}
		}
		if j < 0 {
			return nil, 0, types.Reference(m.Vars[0], "bound %q references unknown variable", bound)
		}
		row[j] = m.Coeff
	}
	return row, -c, nil
}

// FromLoopRanges builds the iteration-space polyhedron of a loop nest:
// two rows per loop, one for each bound. The variable list is the loop
// variables followed by the free symbols of the bounds in sorted order.
// Only unit-stride loops can be modeled.
func FromLoopRanges(loopVars []string, ranges []ir.LoopRange) (*Polyhedron, error) {
	if len(loopVars) != len(ranges) {
		return nil, types.Structural("loop nest", "%d variables for %d ranges", len(loopVars), len(ranges))
	}

	variables := make([]string, 0, len(loopVars))
	for _, v := range loopVars {
		variables = append(variables, strings.ToLower(v))
	}
	free := map[string]bool{}
	for _, r := range ranges {
		if r.Step != nil {
			if v, ok := expr.ConstValue(r.Step); !ok || v != 1 {
				return nil, types.Structural("loop nest", "non-unit loop step %q", r.Step)
			}
		}
		for _, name := range expr.Vars(r.Start) {
			free[name] = true
		}
		for _, name := range expr.Vars(r.Stop) {
			free[name] = true
		}
	}
	extra := make([]string, 0, len(free))
	for name := range free {
		if !contains(variables, name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	variables = append(variables, extra...)

	a := make([][]int64, 0, 2*len(ranges))
	b := make([]int64, 0, 2*len(ranges))
	for i, r := range ranges {
		// loop variables occupy the leading columns
		j := i

		row, rhs, err := lowerBoundRow(r.Start, variables, j)
		if err != nil {
			return nil, err
		}
		a = append(a, row)
		b = append(b, rhs)

		row, rhs, err = lowerBoundRow(r.Stop, variables, j)
		if err != nil {
			return nil, err
		}
		for k := range row {
			row[k] = -row[k]
		}
		a = append(a, row)
		b = append(b, -rhs)
	}

	return New(a, b, variables)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// boundExprs isolates the bounds imposed on column j by the rows whose
// sign in column j matches the given predicate, skipping rows that
// reference any ignored column. Each bound is the simplified quotient
// (b_i - sum of the other columns) / A_ij, in row order.
func (p *Polyhedron) boundExprs(j int, ignore []int, want func(int64) bool) []expr.Expr {
	var out []expr.Expr
rows:
	for i := range p.A {
		if !want(p.A[i][j]) {
			continue
		}
		for _, k := range ignore {
			if p.A[i][k] != 0 {
				continue rows
			}
		}
		terms := []expr.Expr{expr.Int(p.B[i])}
		for k := range p.A[i] {
			if k == j || p.A[i][k] == 0 {
				continue
			}
			terms = append(terms, expr.MulOf(expr.Int(-p.A[i][k]), expr.V(p.Variables[k])))
		}
		bound := expr.Simplify(&expr.Div{Num: expr.Add(terms...), Den: expr.Int(p.A[i][j])})
		out = append(out, bound)
	}
	return out
}

// LowerBounds returns all lower bounds imposed on column j, skipping
// rows that reference any ignored column.
func (p *Polyhedron) LowerBounds(j int, ignore []int) []expr.Expr {
	return p.boundExprs(j, ignore, func(a int64) bool { return a < 0 })
}

// UpperBounds returns all upper bounds imposed on column j.
func (p *Polyhedron) UpperBounds(j int, ignore []int) []expr.Expr {
	return p.boundExprs(j, ignore, func(a int64) bool { return a > 0 })
}

// Eliminate projects the polyhedron onto the hyperplane x_j = 0 by
// Fourier-Motzkin elimination: rows not involving x_j survive
// unchanged, and every (lower, upper) pair combines into one new row.
// No redundancy pruning is performed, so the row count can grow by
// |L|*|U| per elimination.
func Eliminate(p *Polyhedron, j int) *Polyhedron {
	var lower, upper, zero []int
	for i := range p.A {
		switch {
		case p.A[i][j] < 0:
			lower = append(lower, i)
		case p.A[i][j] > 0:
			upper = append(upper, i)
		default:
			zero = append(zero, i)
		}
	}

	width := len(p.Variables) - 1
	a := make([][]int64, 0, len(zero)+len(lower)*len(upper))
	b := make([]int64, 0, cap(a))

	drop := func(row []int64) []int64 {
		out := make([]int64, 0, width)
		out = append(out, row[:j]...)
		return append(out, row[j+1:]...)
	}

	for _, i := range zero {
		a = append(a, drop(p.A[i]))
		b = append(b, p.B[i])
	}
	for _, l := range lower {
		for _, u := range upper {
			row := make([]int64, len(p.Variables))
			for k := range row {
				row[k] = p.A[u][j]*p.A[l][k] - p.A[l][j]*p.A[u][k]
			}
			a = append(a, drop(row))
			b = append(b, p.A[u][j]*p.B[l]-p.A[l][j]*p.B[u])
		}
	}

	variables := make([]string, 0, width)
	variables = append(variables, p.Variables[:j]...)
	variables = append(variables, p.Variables[j+1:]...)
	return &Polyhedron{A: a, B: b, Variables: variables}
}

// Reorder builds the iteration-space polyhedron for a new variable
// order. Variables are projected out one at a time, innermost first in
// the new order, recording each variable's bound set at elimination
// time; the recorded bounds are then reassembled into a system over the
// reordered variable list.
func Reorder(p *Polyhedron, order []int) (*Polyhedron, error) {
	if len(order) > len(p.Variables) {
		return nil, types.Structural("iteration space", "order names %d variables but only %d exist", len(order), len(p.Variables))
	}

	lower := make([][]expr.Expr, len(order))
	upper := make([][]expr.Expr, len(order))
	indexMap := make([]int, len(order))
	for i := range indexMap {
		indexMap[i] = i
	}

	reduced := p
	for n := len(order) - 1; n >= 0; n-- {
		varIdx := order[n]
		idx := indexMap[varIdx]
		lower[varIdx] = reduced.LowerBounds(idx, nil)
		upper[varIdx] = reduced.UpperBounds(idx, nil)
		reduced = Eliminate(reduced, idx)
		for k := range indexMap {
			if indexMap[k] > idx {
				indexMap[k]--
			}
		}
		indexMap[varIdx] = -1
	}

	variables := make([]string, 0, len(p.Variables))
	for _, i := range order {
		variables = append(variables, p.Variables[i])
	}
	variables = append(variables, p.Variables[len(order):]...)

	var a [][]int64
	var b []int64
	for newIdx, varIdx := range order {
		for _, bound := range lower[varIdx] {
			row, rhs, err := lowerBoundRow(bound, variables, newIdx)
			if err != nil {
				return nil, err
			}
			a = append(a, row)
			b = append(b, rhs)
		}
		for _, bound := range upper[varIdx] {
			row, rhs, err := lowerBoundRow(bound, variables, newIdx)
			if err != nil {
				return nil, err
			}
			for k := range row {
				row[k] = -row[k]
			}
			a = append(a, row)
			b = append(b, -rhs)
		}
	}
	return New(a, b, variables)
}
