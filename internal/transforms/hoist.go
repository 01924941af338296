package transforms

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/types"
)

// Hoist moves marked statement sections to a target location. Sections
// are delimited by section-hoist and end section-hoist markers and
// collected per group; the target is a section-hoist pragma carrying
// the bare target parameter. With collapse(n) a section takes its n
// enclosing scopes along, and promote() variables gain the dimensions
// of the enclosing loops.
type Hoist struct {
	log *zap.Logger
}

func NewHoist(log *zap.Logger) *Hoist {
	return &Hoist{log: passLogger(log)}
}

func (t *Hoist) Name() string { return "section-hoist" }

type hoistSection struct {
	start, stop *ir.Pragma
	params      map[string]string
}

func (t *Hoist) Apply(r *ir.Routine) ([]types.Change, error) {
	sections := map[string][]*hoistSection{}
	targets := map[string][]*ir.Pragma{}
	var order []string

	var pending *hoistSection
	for _, p := range ir.FindPragmas(r.Body) {
		switch {
		case ir.IsDirective(p, "end section-hoist"):
			if pending == nil {
				t.log.Warn("ignoring unmatched hoist section end", zap.String("routine", r.Name))
				continue
			}
			pending.stop = p
			group := pending.params["group"]
			if group == "" {
				group = "default"
			}
			if _, seen := sections[group]; !seen && len(targets[group]) == 0 {
				order = append(order, group)
			}
			sections[group] = append(sections[group], pending)
			pending = nil
		case ir.IsDirective(p, "section-hoist"):
			params := ir.Params(p)
			if _, isTarget := params["target"]; isTarget {
				group := params["group"]
				if group == "" {
					group = "default"
				}
				if _, seen := sections[group]; !seen && len(targets[group]) == 0 {
					order = append(order, group)
				}
				targets[group] = append(targets[group], p)
				continue
			}
			if pending != nil {
				t.log.Warn("ignoring hoist section inside another section", zap.String("routine", r.Name))
				continue
			}
			pending = &hoistSection{start: p, params: params}
		}
	}
	if pending != nil {
		t.log.Warn("ignoring unterminated hoist section", zap.String("routine", r.Name))
	}
	if len(sections) == 0 {
		return nil, nil
	}

	promo := newPromotionSpec()
	spans := map[ir.Node]ir.Node{}
	repl := map[ir.Node][]ir.Node{}
	var changes []types.Change

	for _, group := range order {
		members := sections[group]
		if len(members) == 0 {
			continue
		}
		switch len(targets[group]) {
		case 1:
		case 0:
			return nil, types.Configuration(group, "no hoist target")
		default:
			return nil, types.Configuration(group, "%d hoist targets", len(targets[group]))
		}

		var hoistBody []ir.Node
		hoisted := 0
		for _, sec := range members {
			body, err := t.sectionBody(r, sec, promo)
			if err != nil {
				var cfg *types.ConfigurationError
				if errors.As(err, &cfg) {
					return nil, err
				}
				t.log.Warn("skipping hoist section",
					zap.String("routine", r.Name), zap.String("group", group), zap.Error(err))
				continue
			}
			hoistBody = append(hoistBody, &ir.Comment{Text: "floop " + sec.start.Content})
			hoistBody = append(hoistBody, body...)
			hoistBody = append(hoistBody, &ir.Comment{Text: "floop end section-hoist"})

			spans[sec.start] = sec.stop
			repl[sec.stop] = []ir.Node{&ir.Comment{Text: fmt.Sprintf("floop section-hoist group(%s) - section hoisted", group)}}
			hoisted++
		}
		if hoisted == 0 {
			continue
		}
		repl[targets[group][0]] = hoistBody
		changes = append(changes, types.Change{
			Pass:    t.Name(),
			Routine: r.Name,
			Message: fmt.Sprintf("hoisted %d sections in group %q", hoisted, group),
		})
	}

	if len(repl) > 0 {
		r.Body = ir.Mask(r.Body, spans, repl)
		promo.apply(r, t.log)
		t.log.Info("hoisted sections", zap.String("routine", r.Name), zap.Int("count", len(changes)))
	}
	return changes, nil
}

// sectionBody extracts the statements of one section, wrapped in its
// collapse(n) enclosing scopes when requested.
func (t *Hoist) sectionBody(r *ir.Routine, sec *hoistSection, promo *promotionSpec) ([]ir.Node, error) {
	slice := containingSlice(r.Body, sec.start)
	if !nodeInSlice(slice, sec.stop) {
		return nil, types.Structural("hoist section", "section end is not in the same statement list as its start")
	}

	collapse := intParam(sec.params, "collapse", 0)
	if collapse <= 0 {
		return ir.SliceWindow(r.Body, sec.start, sec.stop), nil
	}

	scopes := ir.ScopePath(r.Body, sec.start)
	if len(scopes) < collapse {
		return nil, types.Structural("hoist section", "collapse(%d) requested but only %d enclosing scopes exist", collapse, len(scopes))
	}
	scopes = scopes[len(scopes)-collapse:]

	var loops []*ir.Loop
	for _, s := range scopes {
		if l, ok := s.(*ir.Loop); ok {
			loops = append(loops, l)
		}
	}
	if err := promo.record(sec.params["promote"], loops); err != nil {
		return nil, err
	}
	return ir.SliceWindow([]ir.Node{scopes[0]}, sec.start, sec.stop), nil
}

// containingSlice returns the statement list holding the target node
// directly.
func containingSlice(nodes []ir.Node, target ir.Node) []ir.Node {
	for _, n := range nodes {
		if n == target {
			return nodes
		}
		switch v := n.(type) {
		case *ir.Loop:
			if s := containingSlice(v.Body, target); s != nil {
				return s
			}
		case *ir.Conditional:
			if s := containingSlice(v.Body, target); s != nil {
				return s
			}
			if s := containingSlice(v.Else, target); s != nil {
				return s
			}
		}
	}
	return nil
}

func nodeInSlice(nodes []ir.Node, target ir.Node) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}
