package transforms

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/ir"
	"github.com/fortress-labs/floop/internal/types"
)

// Fission splits loops at standalone marker pragmas. Each marker cuts
// the enclosing loop, or the outermost collapse(n) loops, into two
// copies carrying the original bounds; promote() variables gain one
// dimension per split loop level.
type Fission struct {
	log *zap.Logger
}

func NewFission(log *zap.Logger) *Fission {
	return &Fission{log: passLogger(log)}
}

func (t *Fission) Name() string { return "loop-fission" }

func (t *Fission) Apply(r *ir.Routine) ([]types.Change, error) {
	// validate promotions up front so a conflict aborts before any
	// rewrite
	promo := newPromotionSpec()
	for _, p := range ir.FindPragmas(r.Body) {
		if !ir.IsDirective(p, "loop-fission") {
			continue
		}
		loops := enclosingLoops(r.Body, p)
		if len(loops) == 0 {
			continue
		}
		params := ir.Params(p)
		split := splitLoops(loops, intParam(params, "collapse", 1))
		if err := promo.record(params["promote"], split); err != nil {
			return nil, err
		}
	}

	var changes []types.Change
	// nested markers survive inside the copies of an outer split;
	// re-scan until none remain
	for {
		mapper, sites := t.splitRound(r)
		if len(sites) == 0 {
			break
		}
		r.Body = ir.Transform(r.Body, mapper)
		for _, site := range sites {
			changes = append(changes, types.Change{
				Pass:    t.Name(),
				Routine: r.Name,
				Message: fmt.Sprintf("split loop %q into %d segments", site.loop.Variable, len(site.markers)+1),
			})
		}
	}

	if len(changes) > 0 {
		promo.apply(r, t.log)
		t.log.Info("split loops", zap.String("routine", r.Name), zap.Int("count", len(changes)))
	}
	return changes, nil
}

type fissionSite struct {
	loop    *ir.Loop
	markers []*ir.Pragma
}

// splitRound collects the current fission markers and builds the
// replacement map for their sites. Markers nested inside another site
// are left for the next round.
func (t *Fission) splitRound(r *ir.Routine) (map[ir.Node][]ir.Node, []*fissionSite) {
	mapper := map[ir.Node][]ir.Node{}
	var sites []*fissionSite
	siteOf := map[*ir.Loop]*fissionSite{}

	for _, p := range ir.FindPragmas(r.Body) {
		if !ir.IsDirective(p, "loop-fission") {
			continue
		}
		loops := enclosingLoops(r.Body, p)
		if len(loops) == 0 {
			t.log.Warn("ignoring fission marker outside any loop", zap.String("routine", r.Name))
			continue
		}
		split := splitLoops(loops, intParam(ir.Params(p), "collapse", 1))
		site, ok := siteOf[split[0]]
		if !ok {
			site = &fissionSite{loop: split[0]}
			siteOf[split[0]] = site
			sites = append(sites, site)
		}
		site.markers = append(site.markers, p)
	}

	// a site inside another current-round site is split on a later
	// round, against the copy the outer split leaves behind
	retained := sites[:0]
	for _, site := range sites {
		nested := false
		for _, l := range enclosingLoops(r.Body, site.loop) {
			if _, ok := siteOf[l]; ok {
				nested = true
				break
			}
		}
		if !nested {
			retained = append(retained, site)
		}
	}
	sites = retained

	for _, site := range sites {
		var repl []ir.Node
		var prev ir.Node
		windows := append([]ir.Node{}, nodeSlice(site.markers)...)
		windows = append(windows, nil)
		for _, stop := range windows {
			body := ir.SliceWindow(site.loop.Body, prev, stop)
			if start, ok := prev.(*ir.Pragma); ok && len(body) > 0 {
				repl = append(repl, &ir.Comment{Text: "floop " + start.Content})
			}
			if len(body) > 0 {
				repl = append(repl, &ir.Loop{
					Variable: site.loop.Variable,
					Bounds:   site.loop.Bounds,
					Pragmas:  site.loop.Pragmas,
					Body:     body,
				})
			}
			prev = stop
		}
		mapper[site.loop] = repl
	}
	return mapper, sites
}

// enclosingLoops returns the loop chain around a node, outermost first.
func enclosingLoops(nodes []ir.Node, target ir.Node) []*ir.Loop {
	var out []*ir.Loop
	for _, n := range ir.ScopePath(nodes, target) {
		if l, ok := n.(*ir.Loop); ok {
			out = append(out, l)
		}
	}
	return out
}

// splitLoops selects the loops affected by a collapse(n) marker: the
// innermost n of the enclosing chain, clamped to what exists.
func splitLoops(loops []*ir.Loop, collapse int) []*ir.Loop {
	if collapse < 1 {
		collapse = 1
	}
	if collapse > len(loops) {
		collapse = len(loops)
	}
	return loops[len(loops)-collapse:]
}

func nodeSlice(pragmas []*ir.Pragma) []ir.Node {
	out := make([]ir.Node, 0, len(pragmas))
	for _, p := range pragmas {
		out = append(out, p)
	}
	return out
}
