// Package transforms implements the directive-driven loop
// transformation passes: interchange, fusion, fission and section
// hoisting. Every pass rewrites whole subtrees; a construct is either
// fully transformed or left untouched.
package transforms

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/types"
)

// Pass is one transformation driver, applied to a routine at a time.
type Pass interface {
	Name() string
	Apply(r *ir.Routine) ([]types.Change, error)
}

// nestedLoops extracts a loop nest of the given depth. Each level must
// contain exactly one loop in its body.
func nestedLoops(loop *ir.Loop, depth int) ([]*ir.Loop, error) {
	loops := []*ir.Loop{loop}
	for level := 1; level < depth; level++ {
		var inner []*ir.Loop
		for _, n := range loop.Body {
			if l, ok := n.(*ir.Loop); ok {
				inner = append(inner, l)
			}
		}
		if len(inner) != 1 {
			return nil, types.Reference(loop.Variable, "expected exactly one nested loop at depth %d, found %d", level, len(inner))
		}
		loop = inner[0]
		loops = append(loops, loop)
	}
	return loops, nil
}

// loopComponents splits a nest into variables, ranges and bodies.
func loopComponents(loops []*ir.Loop) ([]string, []ir.LoopRange, [][]ir.Node) {
	vars := make([]string, 0, len(loops))
	ranges := make([]ir.LoopRange, 0, len(loops))
	bodies := make([][]ir.Node, 0, len(loops))
	for _, l := range loops {
		vars = append(vars, l.Variable)
		ranges = append(ranges, l.Bounds)
		bodies = append(bodies, l.Body)
	}
	return vars, ranges, bodies
}

// intParam reads an integer directive parameter, falling back to the
// given default when absent or malformed.
func intParam(params map[string]string, key string, fallback int) int {
	value, ok := params[key]
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func passLogger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
