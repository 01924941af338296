package expr

// Rewrite rebuilds an expression bottom-up, applying fn to every node
// after its children have been rewritten. Nodes returned by fn are not
// revisited.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *Sum:
		terms := make([]Expr, 0, len(v.Terms))
		for _, t := range v.Terms {
			terms = append(terms, Rewrite(t, fn))
		}
		return fn(&Sum{Terms: terms})
	case *Mul:
		factors := make([]Expr, 0, len(v.Factors))
		for _, f := range v.Factors {
			factors = append(factors, Rewrite(f, fn))
		}
		return fn(&Mul{Factors: factors})
	case *Div:
		return fn(&Div{Num: Rewrite(v.Num, fn), Den: Rewrite(v.Den, fn)})
	case *Call:
		args := make([]Expr, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, Rewrite(a, fn))
		}
		return fn(&Call{Fn: v.Fn, Args: args})
	case *Cmp:
		return fn(&Cmp{Op: v.Op, Left: Rewrite(v.Left, fn), Right: Rewrite(v.Right, fn)})
	case *And:
		conds := make([]Expr, 0, len(v.Conds))
		for _, c := range v.Conds {
			conds = append(conds, Rewrite(c, fn))
		}
		return fn(&And{Conds: conds})
	case *ArrayRef:
		idx := make([]Expr, 0, len(v.Index))
		for _, i := range v.Index {
			idx = append(idx, Rewrite(i, fn))
		}
		return fn(&ArrayRef{Name: v.Name, Index: idx})
	case *RangeIdx:
		return fn(&RangeIdx{Start: Rewrite(v.Start, fn), Stop: Rewrite(v.Stop, fn), Step: Rewrite(v.Step, fn)})
	}
	return fn(e)
}
