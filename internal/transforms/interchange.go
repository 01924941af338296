package transforms

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/poly"
	"github.com/fortress-labs/floop/internal/types"
)

// Interchange reorders annotated loop nests. The new variable order
// comes from the directive value; without one the nest is reversed at
// depth two. With ProjectBounds set, bounds are recomputed from the
// projected iteration space, so triangular nests reorder correctly.
type Interchange struct {
	ProjectBounds bool

	log *zap.Logger
}

func NewInterchange(log *zap.Logger) *Interchange {
	return &Interchange{log: passLogger(log)}
}

func (t *Interchange) Name() string { return "loop-interchange" }

func (t *Interchange) Apply(r *ir.Routine) ([]types.Change, error) {
	var changes []types.Change
	mapper := map[ir.Node][]ir.Node{}

	for _, nest := range ir.FindLoops(r.Body) {
		pragma := ir.Directive(nest.Pragmas, "loop-interchange")
		if pragma == nil {
			continue
		}
		params := ir.Params(pragma)
		varOrder := ir.SplitList(params["loop-interchange"])

		depth := 2
		if len(varOrder) > 0 {
			depth = len(varOrder)
		}
		loops, err := nestedLoops(nest, depth)
		if err != nil {
			t.log.Warn("skipping loop nest", zap.String("routine", r.Name), zap.Error(err))
			continue
		}
		vars, ranges, _ := loopComponents(loops)
		if len(varOrder) == 0 {
			varOrder = reversed(vars)
		}
		order, err := orderIndices(vars, varOrder)
		if err != nil {
			t.log.Warn("skipping loop nest", zap.String("routine", r.Name), zap.Error(err))
			continue
		}

		var space *poly.Polyhedron
		if t.ProjectBounds {
			space, err = poly.FromLoopRanges(vars, ranges)
			if err == nil {
				space, err = poly.Reorder(space, order)
			}
			if err != nil {
				t.log.Warn("skipping loop nest", zap.String("routine", r.Name), zap.Error(err))
				continue
			}
		}

		rebuilt, err := t.rebuildNest(loops, vars, ranges, order, space)
		if err != nil {
			t.log.Warn("skipping loop nest", zap.String("routine", r.Name), zap.Error(err))
			continue
		}
		rebuilt.Pragmas = ir.StripDirective(rebuilt.Pragmas, "loop-interchange")

		note := &ir.Comment{Text: fmt.Sprintf("floop loop-interchange (%s <--> %s)",
			strings.Join(vars, ", "), strings.Join(varOrder, ", "))}
		mapper[nest] = []ir.Node{note, rebuilt}
		changes = append(changes, types.Change{
			Pass:    t.Name(),
			Routine: r.Name,
			Message: fmt.Sprintf("interchanged loop nest (%s) to (%s)", strings.Join(vars, ", "), strings.Join(varOrder, ", ")),
		})
	}

	if len(mapper) > 0 {
		r.Body = ir.Transform(r.Body, mapper)
		t.log.Info("interchanged loop nests",
			zap.String("routine", r.Name), zap.Int("count", len(mapper)))
	}
	return changes, nil
}

// rebuildNest reassembles the nest innermost first. The shell at each
// position keeps its body and pragmas but takes the variable, and
// possibly projected bounds, of the loop moving into that position.
func (t *Interchange) rebuildNest(loops []*ir.Loop, vars []string, ranges []ir.LoopRange, order []int, space *poly.Polyhedron) (*ir.Loop, error) {
	var rebuilt *ir.Loop
	var innerMap map[ir.Node][]ir.Node

	for pos := len(loops) - 1; pos >= 0; pos-- {
		src := order[pos]

		var bounds ir.LoopRange
		if space != nil {
			ignore := make([]int, 0, len(order)-pos-1)
			for k := pos + 1; k < len(order); k++ {
				ignore = append(ignore, k)
			}
			lows := space.LowerBounds(pos, ignore)
			ups := space.UpperBounds(pos, ignore)
			if len(lows) == 0 || len(ups) == 0 {
				return nil, types.Structural("loop nest", "no projected bounds for variable %q", vars[src])
			}
			bounds = ir.LoopRange{Start: poly.MaxOf(lows), Stop: poly.MinOf(ups)}
		} else {
			bounds = ranges[src]
		}

		shell := &ir.Loop{Variable: vars[src], Bounds: bounds, Pragmas: loops[pos].Pragmas, Body: loops[pos].Body}
		if innerMap != nil {
			shell = ir.Transform([]ir.Node{shell}, innerMap)[0].(*ir.Loop)
		}
		innerMap = map[ir.Node][]ir.Node{loops[pos]: {shell}}
		rebuilt = shell
	}
	return rebuilt, nil
}

func reversed(vars []string) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[len(vars)-1-i] = v
	}
	return out
}

// orderIndices resolves the requested variable order into positions in
// the current nest.
func orderIndices(vars, varOrder []string) ([]int, error) {
	if len(varOrder) != len(vars) {
		return nil, types.Reference(strings.Join(varOrder, ", "), "order names %d variables but the nest has %d", len(varOrder), len(vars))
	}
	out := make([]int, 0, len(varOrder))
	for _, name := range varOrder {
		idx := -1
		for i, v := range vars {
			if strings.EqualFold(v, name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, types.Reference(name, "variable not found in loop nest")
		}
		out = append(out, idx)
	}
	return out, nil
}
