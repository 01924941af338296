package internal

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal/frontend"
	"github.com/fortress-labs/floop/internal/transforms"
	tt "github.com/fortress-labs/floop/internal/types"
)

// Engine manages the rewriting process.
type Engine struct {
	disabled map[string]bool
	passes   []transforms.Pass
	logger   *zap.Logger

	watcher    *fsnotify.Watcher
	isWatching bool
}

// NewEngine creates a new rewrite engine with the given pass
// configuration.
func NewEngine(cfg map[string]tt.ConfigPass, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &Engine{disabled: make(map[string]bool), logger: logger}
	engine.applyConfig(cfg)
	return engine
}

// Define the passConstructor type
type passConstructor func(*zap.Logger) transforms.Pass

// Create a map to hold the mappings of pass names to their constructors
var allPassConstructors = map[string]passConstructor{
	"loop-interchange": func(l *zap.Logger) transforms.Pass { return transforms.NewInterchange(l) },
	"loop-fusion":      func(l *zap.Logger) transforms.Pass { return transforms.NewFusion(l) },
	"loop-fission":     func(l *zap.Logger) transforms.Pass { return transforms.NewFission(l) },
	"section-hoist":    func(l *zap.Logger) transforms.Pass { return transforms.NewHoist(l) },
}

// pipeline fixes the order passes are applied in. Interchange and
// fusion consume loop-attached directives; fission and hoisting consume
// standalone markers and must see the tree those earlier passes left.
var pipeline = []string{
	"loop-interchange",
	"loop-fusion",
	"loop-fission",
	"section-hoist",
}

func (e *Engine) applyConfig(cfg map[string]tt.ConfigPass) {
	e.passes = e.passes[:0]
	for _, name := range pipeline {
		pass := allPassConstructors[name](e.logger)
		if pc, ok := cfg[name]; ok {
			if pc.Disabled {
				e.IgnorePass(name)
			}
			applyOptions(pass, pc.Options)
		}
		e.passes = append(e.passes, pass)
	}
}

func applyOptions(pass transforms.Pass, options map[string]string) {
	switch p := pass.(type) {
	case *transforms.Interchange:
		p.ProjectBounds = options["project-bounds"] == "true"
	}
}

// IgnorePass disables a pass by name.
func (e *Engine) IgnorePass(name string) {
	if e.disabled == nil {
		e.disabled = make(map[string]bool)
	}
	e.disabled[name] = true
}

// Result holds the rewritten source and the record of applied
// transformations.
type Result struct {
	Output  []byte
	Changes []tt.Change
}

// Run applies the pass pipeline to the given file.
func (e *Engine) Run(filename string) (*Result, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	result, err := e.RunSource(source)
	if err != nil {
		return nil, err
	}
	for i := range result.Changes {
		result.Changes[i].Filename = filename
	}
	return result, nil
}

// RunSource applies the pass pipeline to the given source and returns
// the rewritten text. A pass that fails on one routine is logged and
// skipped; the routine keeps the shape earlier passes gave it.
func (e *Engine) RunSource(source []byte) (*Result, error) {
	routines, err := frontend.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("error parsing source: %w", err)
	}

	var allChanges []tt.Change
	for _, routine := range routines {
		for _, pass := range e.passes {
			if e.disabled[pass.Name()] {
				continue
			}
			changes, err := pass.Apply(routine)
			if err != nil {
				e.logger.Error("pass aborted",
					zap.String("pass", pass.Name()),
					zap.String("routine", routine.Name),
					zap.Error(err))
				continue
			}
			allChanges = append(allChanges, changes...)
		}
	}

	return &Result{Output: []byte(frontend.Render(routines)), Changes: allChanges}, nil
}
