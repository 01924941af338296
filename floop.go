// Package floop rewrites Fortran routines according to !$floop source
// directives: loop interchange, fusion, fission and section hoisting
// over an affine model of the iteration spaces.
package floop

import (
	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal"
	tt "github.com/fortress-labs/floop/internal/types"
	"github.com/fortress-labs/floop/rewrite"
)

// Change records one applied transformation.
type Change = tt.Change

// Engine applies the transformation pipeline to parsed routines.
type Engine = internal.Engine

// New builds an engine from an optional configuration file path.
func New(configurationPath string, logger *zap.Logger) (*Engine, error) {
	return rewrite.New(configurationPath, logger)
}

// RewriteSource applies the default pipeline to in-memory source and
// returns the rewritten text with the record of applied changes.
func RewriteSource(source []byte) ([]byte, []Change, error) {
	result, err := internal.NewEngine(nil, nil).RunSource(source)
	if err != nil {
		return nil, nil, err
	}
	return result.Output, result.Changes, nil
}
