package transforms

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/expr"
	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/poly"
	"github.com/fortress-labs/floop/internal/types"
)

// Fusion merges annotated loops into one covering nest per fusion
// group. Members whose iteration range is a strict subset of the fused
// range keep their semantics behind a guard condition.
type Fusion struct {
	log *zap.Logger
}

func NewFusion(log *zap.Logger) *Fusion {
	return &Fusion{log: passLogger(log)}
}

func (t *Fusion) Name() string { return "loop-fusion" }

type fusionMember struct {
	loop   *ir.Loop
	params map[string]string
}

func (t *Fusion) Apply(r *ir.Routine) ([]types.Change, error) {
	groups := map[string][]fusionMember{}
	var order []string
	for _, loop := range ir.FindLoops(r.Body) {
		pragma := ir.Directive(loop.Pragmas, "loop-fusion")
		if pragma == nil {
			continue
		}
		params := ir.Params(pragma)
		name := params["group"]
		if name == "" {
			name = "default"
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], fusionMember{loop: loop, params: params})
	}
	if len(groups) == 0 {
		return nil, nil
	}

	var changes []types.Change
	mapper := map[ir.Node][]ir.Node{}
	fused := 0
	for _, name := range order {
		members := groups[name]
		repl, err := t.fuseGroup(name, members)
		if err != nil {
			var cfg *types.ConfigurationError
			if errors.As(err, &cfg) {
				// a misconfigured group poisons the whole invocation
				return nil, err
			}
			t.log.Warn("skipping fusion group",
				zap.String("routine", r.Name), zap.String("group", name), zap.Error(err))
			continue
		}
		mapper[members[0].loop] = repl
		note := &ir.Comment{Text: fmt.Sprintf("floop loop-fusion group(%s) - loop hoisted and fused", name)}
		for _, m := range members[1:] {
			mapper[m.loop] = []ir.Node{note}
		}
		fused++
		changes = append(changes, types.Change{
			Pass:    t.Name(),
			Routine: r.Name,
			Message: fmt.Sprintf("fused %d loops in group %q", len(members), name),
		})
	}

	if len(mapper) > 0 {
		r.Body = ir.Transform(r.Body, mapper)
		t.log.Info("fused loop groups", zap.String("routine", r.Name), zap.Int("count", fused))
	}
	return changes, nil
}

// fuseGroup builds the replacement nodes for the first member of a
// group: an annotation comment followed by the fused nest.
func (t *Fusion) fuseGroup(name string, members []fusionMember) ([]ir.Node, error) {
	collapse, err := agreedCollapse(name, members)
	if err != nil {
		return nil, err
	}
	explicit, err := agreedRanges(name, members, collapse)
	if err != nil {
		return nil, err
	}

	vars := make([][]string, len(members))
	ranges := make([][]ir.LoopRange, len(members))
	bodies := make([][][]ir.Node, len(members))
	spaces := make([]*poly.Polyhedron, len(members))
	for i, m := range members {
		loops, err := nestedLoops(m.loop, collapse)
		if err != nil {
			return nil, err
		}
		vars[i], ranges[i], bodies[i] = loopComponents(loops)
		if spaces[i], err = poly.FromLoopRanges(vars[i], ranges[i]); err != nil {
			return nil, err
		}
	}

	fusionRanges := explicit
	if fusionRanges == nil {
		fusionRanges = make([]ir.LoopRange, collapse)
		for level := 0; level < collapse; level++ {
			ignore := make([]int, 0, collapse-level-1)
			for k := level + 1; k < collapse; k++ {
				ignore = append(ignore, k)
			}
			var lows, ups []expr.Expr
			for _, space := range spaces {
				for _, b := range space.LowerBounds(level, ignore) {
					lows = poly.MergeLower(lows, b)
				}
				for _, b := range space.UpperBounds(level, ignore) {
					ups = poly.MergeUpper(ups, b)
				}
			}
			if len(lows) == 0 || len(ups) == 0 {
				return nil, types.Structural("fusion group "+name, "no bounds for fused loop level %d", level)
			}
			fusionRanges[level] = ir.LoopRange{Start: poly.MinOf(lows), Stop: poly.MaxOf(ups)}
		}
	}

	fusionVars := vars[0]
	var fusedBody []ir.Node
	for i := range members {
		body := make([]ir.Node, 0, len(bodies[i][collapse-1])+2)
		body = append(body, &ir.Comment{Text: fmt.Sprintf("floop loop-fusion group(%s) - body %d begin", name, i)})
		body = append(body, bodies[i][collapse-1]...)
		body = append(body, &ir.Comment{Text: fmt.Sprintf("floop loop-fusion group(%s) - body %d end", name, i)})

		mapping := map[string]expr.Expr{}
		for k := range fusionVars {
			if vars[i][k] != fusionVars[k] {
				mapping[vars[i][k]] = expr.V(fusionVars[k])
			}
		}
		if len(mapping) > 0 {
			body = ir.SubstituteExprs(body, mapping)
		}

		var conds []expr.Expr
		for k := 0; k < collapse; k++ {
			v := expr.V(fusionVars[k])
			if !expr.Equal(ranges[i][k].Start, fusionRanges[k].Start) {
				conds = append(conds, &expr.Cmp{Op: expr.Ge, Left: v, Right: ranges[i][k].Start})
			}
			if !expr.Equal(ranges[i][k].Stop, fusionRanges[k].Stop) {
				conds = append(conds, &expr.Cmp{Op: expr.Le, Left: v, Right: ranges[i][k].Stop})
			}
		}
		if len(conds) > 0 {
			var cond expr.Expr = conds[0]
			if len(conds) > 1 {
				cond = &expr.And{Conds: conds}
			}
			body = []ir.Node{&ir.Conditional{Cond: cond, Body: body}}
		}
		fusedBody = append(fusedBody, body...)
	}

	nest := fusedBody
	for k := collapse - 1; k >= 0; k-- {
		nest = []ir.Node{&ir.Loop{Variable: fusionVars[k], Bounds: fusionRanges[k], Body: nest}}
	}
	note := &ir.Comment{Text: fmt.Sprintf("floop loop-fusion group(%s) - %d loops fused", name, len(members))}
	return append([]ir.Node{note}, nest...), nil
}

// agreedCollapse validates that every member states the same collapse
// depth. A member without the parameter defaults to one.
func agreedCollapse(name string, members []fusionMember) (int, error) {
	first, firstSet := members[0].params["collapse"]
	for _, m := range members[1:] {
		value, set := m.params["collapse"]
		if set != firstSet || value != first {
			return 0, types.Configuration(name, "conflicting collapse depths %q and %q", first, value)
		}
	}
	if !firstSet {
		return 1, nil
	}
	n := intParam(members[0].params, "collapse", 0)
	if n < 1 {
		return 0, types.Configuration(name, "invalid collapse depth %q", first)
	}
	return n, nil
}

// agreedRanges parses the explicit range parameter when present. All
// members that state one must state the same ranges, one per collapsed
// level.
func agreedRanges(name string, members []fusionMember, collapse int) ([]ir.LoopRange, error) {
	var out []ir.LoopRange
	var from string
	for _, m := range members {
		value, ok := m.params["range"]
		if !ok {
			continue
		}
		parts := expr.SplitTop(value, ',')
		if len(parts) != collapse {
			return nil, types.Configuration(name, "range %q names %d levels but collapse is %d", value, len(parts), collapse)
		}
		parsed := make([]ir.LoopRange, 0, collapse)
		for _, part := range parts {
			start, stop, step, err := expr.ParseRange(part)
			if err != nil {
				return nil, types.Configuration(name, "malformed range %q", part)
			}
			parsed = append(parsed, ir.LoopRange{Start: start, Stop: stop, Step: step})
		}
		if out == nil {
			out, from = parsed, value
			continue
		}
		for i := range out {
			if !expr.Equal(out[i].Start, parsed[i].Start) || !expr.Equal(out[i].Stop, parsed[i].Stop) {
				return nil, types.Configuration(name, "conflicting fusion ranges %q and %q", from, value)
			}
		}
	}
	return out, nil
}
