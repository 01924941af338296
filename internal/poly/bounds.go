package poly

import (
	"github.com/fortress-labs/floop/internal/expr"
)

// MaxOf synthesizes a single lower bound from a candidate set: the
// expression itself for one candidate, a max(...) call otherwise. The
// true lower bound of a variable is the maximum of all that apply.
func MaxOf(bounds []expr.Expr) expr.Expr {
	if len(bounds) == 1 {
		return bounds[0]
	}
	return &expr.Call{Fn: "max", Args: bounds}
}

// MinOf is the upper-bound counterpart of MaxOf.
func MinOf(bounds []expr.Expr) expr.Expr {
	if len(bounds) == 1 {
		return bounds[0]
	}
	return &expr.Call{Fn: "min", Args: bounds}
}

// MergeLower folds a candidate lower bound into the accumulated set for
// a fused (covering) iteration space. The candidate is adopted when it
// teaches us something new: there are no bounds yet, it is provably
// below an existing bound, or it is symbolic and no existing bound is
// provably below it. Bounds made redundant by the candidate are
// dropped; an undecidable candidate is kept alongside rather than
// silently discarded.
func MergeLower(acc []expr.Expr, bound expr.Expr) []expr.Expr {
	diff := make([]expr.Expr, len(acc))
	anyBelow, anyNotBelow := false, false
	for i, b := range acc {
		diff[i] = expr.Simplify(expr.Sub(bound, b))
		if v, ok := expr.ConstValue(diff[i]); ok {
			if v < 0 {
				anyBelow = true
			} else {
				anyNotBelow = true
			}
		}
	}
	adopt := len(acc) == 0 || anyBelow || (!expr.IsConstant(bound) && !anyNotBelow)
	if !adopt {
		return acc
	}
	out := make([]expr.Expr, 0, len(acc)+1)
	for i, b := range acc {
		if v, ok := expr.ConstValue(diff[i]); ok && v < 0 {
			continue
		}
		out = append(out, b)
	}
	return append(out, bound)
}

// MergeUpper is the covering counterpart of MergeLower: a candidate is
// adopted when it is provably above an existing bound, or symbolic with
// no existing bound provably above it.
func MergeUpper(acc []expr.Expr, bound expr.Expr) []expr.Expr {
	diff := make([]expr.Expr, len(acc))
	anyAbove, anyNotAbove := false, false
	for i, b := range acc {
		diff[i] = expr.Simplify(expr.Sub(bound, b))
		if v, ok := expr.ConstValue(diff[i]); ok {
			if v > 0 {
				anyAbove = true
			} else {
				anyNotAbove = true
			}
		}
	}
	adopt := len(acc) == 0 || anyAbove || (!expr.IsConstant(bound) && !anyNotAbove)
	if !adopt {
		return acc
	}
	out := make([]expr.Expr, 0, len(acc)+1)
	for i, b := range acc {
		if v, ok := expr.ConstValue(diff[i]); ok && v > 0 {
			continue
		}
		out = append(out, b)
	}
	return append(out, bound)
}
