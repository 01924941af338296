package transforms

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/expr"
	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/types"
)

// promotionSpec accumulates the variables named by promote() parameters
// across every directive of one pass invocation. Each variable gains
// one trailing dimension per recorded loop, sized by the loop's upper
// bound and indexed by its variable, innermost first. Recording the
// same variable twice is allowed as long as rank and index agree; sizes
// are widened element-wise.
type promotionSpec struct {
	sizes map[string][]expr.Expr
	index map[string][]expr.Expr
	order []string
}

func newPromotionSpec() *promotionSpec {
	return &promotionSpec{sizes: map[string][]expr.Expr{}, index: map[string][]expr.Expr{}}
}

// record registers the variables of one promote() list against the
// given enclosing loops.
func (s *promotionSpec) record(list string, loops []*ir.Loop) error {
	names := ir.SplitList(list)
	if len(names) == 0 {
		return nil
	}

	sizes := make([]expr.Expr, 0, len(loops))
	index := make([]expr.Expr, 0, len(loops))
	for i := len(loops) - 1; i >= 0; i-- {
		sizes = append(sizes, expr.Simplify(loops[i].Bounds.Stop))
		index = append(index, expr.V(loops[i].Variable))
	}

	for _, name := range names {
		prev, seen := s.sizes[name]
		if !seen {
			s.sizes[name] = append([]expr.Expr{}, sizes...)
			s.index[name] = append([]expr.Expr{}, index...)
			s.order = append(s.order, name)
			continue
		}
		if len(prev) != len(sizes) {
			return types.Configuration(name, "conflicting promotion ranks %d and %d", len(prev), len(sizes))
		}
		for i := range sizes {
			if !expr.Equal(s.index[name][i], index[i]) {
				return types.Configuration(name, "promotion index %q conflicts with %q", index[i], s.index[name][i])
			}
			if expr.Compare(prev[i], expr.Lt, sizes[i]) {
				s.sizes[name][i] = sizes[i]
			}
		}
	}
	return nil
}

// apply performs the accumulated promotions on the routine, grouping
// variables that share an index and size vector into one traversal.
func (s *promotionSpec) apply(r *ir.Routine, log *zap.Logger) {
	if len(s.order) == 0 {
		return
	}

	type bucket struct {
		names []string
		index []expr.Expr
		sizes []expr.Expr
	}
	var buckets []*bucket
	keyOf := map[string]*bucket{}
	for _, name := range s.order {
		key := exprListKey(s.index[name]) + "|" + exprListKey(s.sizes[name])
		b, ok := keyOf[key]
		if !ok {
			b = &bucket{index: s.index[name], sizes: s.sizes[name]}
			keyOf[key] = b
			buckets = append(buckets, b)
		}
		b.names = append(b.names, name)
	}

	for _, b := range buckets {
		promoteVariables(r, b.names, b.index, b.sizes)
	}
	log.Info("promoted variables", zap.String("routine", r.Name), zap.Strings("variables", s.order))
}

func exprListKey(list []expr.Expr) string {
	parts := make([]string, 0, len(list))
	for _, e := range list {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ",")
}

// promoteVariables appends the index vector to every reference of the
// named variables and the size vector to their declared shapes. Scalars
// become arrays.
func promoteVariables(r *ir.Routine, names []string, index, sizes []expr.Expr) {
	set := map[string]bool{}
	for _, name := range names {
		set[name] = true
	}

	r.Body = ir.MapExprs(r.Body, func(e expr.Expr) expr.Expr {
		return expr.Rewrite(e, func(x expr.Expr) expr.Expr {
			switch v := x.(type) {
			case *expr.Var:
				if set[v.Name] {
					return &expr.ArrayRef{Name: v.Name, Index: append([]expr.Expr{}, index...)}
				}
			case *expr.ArrayRef:
				if set[v.Name] {
					idx := append(append([]expr.Expr{}, v.Index...), index...)
					return &expr.ArrayRef{Name: v.Name, Index: idx}
				}
			}
			return x
		})
	})

	for _, name := range names {
		d := r.Lookup(name)
		if d == nil {
			continue
		}
		d.Shape = append(append([]expr.Expr{}, d.Shape...), sizes...)
	}
}
