package ir

import (
	"github.com/fortress-labs/floop/internal/expr"
)

// Walk visits nodes in pre-order. The callback returns whether to
// descend into the node's children.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch v := n.(type) {
		case *Loop:
			Walk(v.Body, fn)
		case *Conditional:
			Walk(v.Body, fn)
			Walk(v.Else, fn)
		}
	}
}

// FindLoops returns all loops in pre-order, outer before inner.
func FindLoops(nodes []Node) []*Loop {
	var out []*Loop
	Walk(nodes, func(n Node) bool {
		if l, ok := n.(*Loop); ok {
			out = append(out, l)
		}
		return true
	})
	return out
}

// FindPragmas returns all standalone pragma nodes in pre-order.
func FindPragmas(nodes []Node) []*Pragma {
	var out []*Pragma
	Walk(nodes, func(n Node) bool {
		if p, ok := n.(*Pragma); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Transform rebuilds the tree, splicing in the mapped replacement
// wherever a key node is found. A nil replacement slice drops the node.
// Replacement nodes are emitted verbatim, not revisited.
func Transform(nodes []Node, mapper map[Node][]Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if repl, ok := mapper[n]; ok {
			out = append(out, repl...)
			continue
		}
		out = append(out, rebuild(n, mapper))
	}
	return out
}

func rebuild(n Node, mapper map[Node][]Node) Node {
	switch v := n.(type) {
	case *Loop:
		return &Loop{Variable: v.Variable, Bounds: v.Bounds, Pragmas: v.Pragmas, Body: Transform(v.Body, mapper)}
	case *Conditional:
		return &Conditional{Cond: v.Cond, Body: Transform(v.Body, mapper), Else: Transform(v.Else, mapper)}
	}
	return n
}

// MapExprs rebuilds the tree applying fn to every expression position,
// including loop bounds.
func MapExprs(nodes []Node, fn func(expr.Expr) expr.Expr) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Loop:
			out = append(out, &Loop{
				Variable: v.Variable,
				Bounds: LoopRange{
					Start: mapExpr(v.Bounds.Start, fn),
					Stop:  mapExpr(v.Bounds.Stop, fn),
					Step:  mapExpr(v.Bounds.Step, fn),
				},
				Pragmas: v.Pragmas,
				Body:    MapExprs(v.Body, fn),
			})
		case *Conditional:
			out = append(out, &Conditional{Cond: fn(v.Cond), Body: MapExprs(v.Body, fn), Else: MapExprs(v.Else, fn)})
		case *Assignment:
			out = append(out, &Assignment{LHS: fn(v.LHS), RHS: fn(v.RHS)})
		case *CallStmt:
			args := make([]expr.Expr, 0, len(v.Args))
			for _, a := range v.Args {
				args = append(args, fn(a))
			}
			out = append(out, &CallStmt{Name: v.Name, Args: args})
		default:
			out = append(out, n)
		}
	}
	return out
}

func mapExpr(e expr.Expr, fn func(expr.Expr) expr.Expr) expr.Expr {
	if e == nil {
		return nil
	}
	return fn(e)
}

// SubstituteExprs rebuilds the tree substituting variable references by
// name. Loop variables that map to a plain variable are renamed too.
func SubstituteExprs(nodes []Node, mapping map[string]expr.Expr) []Node {
	out := MapExprs(nodes, func(e expr.Expr) expr.Expr {
		return expr.Substitute(e, mapping)
	})
	return renameLoopVars(out, mapping)
}

func renameLoopVars(nodes []Node, mapping map[string]expr.Expr) []Node {
	for i, n := range nodes {
		switch v := n.(type) {
		case *Loop:
			variable := v.Variable
			if repl, ok := mapping[variable]; ok {
				if rv, ok := repl.(*expr.Var); ok {
					variable = rv.Name
				}
			}
			nodes[i] = &Loop{Variable: variable, Bounds: v.Bounds, Pragmas: v.Pragmas, Body: renameLoopVars(v.Body, mapping)}
		case *Conditional:
			nodes[i] = &Conditional{Cond: v.Cond, Body: renameLoopVars(v.Body, mapping), Else: renameLoopVars(v.Else, mapping)}
		}
	}
	return nodes
}

// windowCursor carries the inside-window state of one SliceWindow call.
// The state is local to the call, keeping repeated invocations safe.
type windowCursor struct {
	active bool
	done   bool
	start  Node
	stop   Node
}

// SliceWindow returns a copy of the tree keeping only the pre-order
// span between start and stop, both exclusive. A nil start keeps from
// the beginning, a nil stop keeps to the end. Enclosing loops and
// conditionals that contain kept content are reproduced around it.
func SliceWindow(nodes []Node, start, stop Node) []Node {
	c := &windowCursor{active: start == nil, start: start, stop: stop}
	return sliceNodes(nodes, c)
}

func sliceNodes(nodes []Node, c *windowCursor) []Node {
	var out []Node
	for _, n := range nodes {
		if c.done {
			break
		}
		if n == c.start {
			c.active = true
			continue
		}
		if n == c.stop {
			c.active = false
			c.done = true
			break
		}
		switch v := n.(type) {
		case *Loop:
			activeAtEntry := c.active
			body := sliceNodes(v.Body, c)
			if activeAtEntry && c.active && !c.done {
				// no window boundary inside: keep the subtree as is
				out = append(out, v)
			} else if len(body) > 0 {
				out = append(out, &Loop{Variable: v.Variable, Bounds: v.Bounds, Pragmas: v.Pragmas, Body: body})
			}
		case *Conditional:
			activeAtEntry := c.active
			body := sliceNodes(v.Body, c)
			var els []Node
			if !c.done {
				els = sliceNodes(v.Else, c)
			}
			if activeAtEntry && c.active && !c.done {
				out = append(out, v)
			} else if len(body) > 0 || len(els) > 0 {
				out = append(out, &Conditional{Cond: v.Cond, Body: body, Else: els})
			}
		default:
			if c.active {
				out = append(out, n)
			}
		}
	}
	return out
}

// ScopePath returns the chain of structural nodes (loops, conditionals)
// enclosing the target, outermost first. It returns nil when the target
// is not in the tree.
func ScopePath(nodes []Node, target Node) []Node {
	for _, n := range nodes {
		if n == target {
			return []Node{}
		}
		switch v := n.(type) {
		case *Loop:
			if path := ScopePath(v.Body, target); path != nil {
				return append([]Node{n}, path...)
			}
		case *Conditional:
			if path := ScopePath(v.Body, target); path != nil {
				return append([]Node{n}, path...)
			}
			if path := ScopePath(v.Else, target); path != nil {
				return append([]Node{n}, path...)
			}
		}
	}
	return nil
}

// Mask rebuilds the tree removing the contents of each span. Spans map
// a start node to its stop node; both must live in the same statement
// list. The start node is dropped, the stop node is replaced by its
// entry in repl (or dropped). Other nodes found in repl are spliced.
func Mask(nodes []Node, spans map[Node]Node, repl map[Node][]Node) []Node {
	var out []Node
	var skipUntil Node
	for _, n := range nodes {
		if skipUntil != nil {
			if n == skipUntil {
				out = append(out, repl[n]...)
				skipUntil = nil
			}
			continue
		}
		if stop, ok := spans[n]; ok {
			out = append(out, repl[n]...)
			skipUntil = stop
			continue
		}
		if r, ok := repl[n]; ok {
			out = append(out, r...)
			continue
		}
		switch v := n.(type) {
		case *Loop:
			out = append(out, &Loop{Variable: v.Variable, Bounds: v.Bounds, Pragmas: v.Pragmas, Body: Mask(v.Body, spans, repl)})
		case *Conditional:
			out = append(out, &Conditional{Cond: v.Cond, Body: Mask(v.Body, spans, repl), Else: Mask(v.Else, spans, repl)})
		default:
			out = append(out, n)
		}
	}
	return out
}
