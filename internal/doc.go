// Package internal provides the core functionality of the rewrite
// tool.
//
// This package implements the engine that coordinates the
// transformation pipeline: sources are parsed into routines, each
// enabled pass rewrites the routines it finds directives for, and the
// result is printed back to source form.
//
// Key components:
//
// Engine: The main rewrite engine. It holds the configured pass
// pipeline and applies it to files or in-memory source.
//
// Result: The rewritten source text together with the record of
// applied changes.
//
// The subpackages divide the work: frontend parses and prints the
// source form, ir holds the statement tree and its traversal and
// rewriting helpers, expr implements the symbolic algebra of bounds
// and subscripts, poly implements the affine iteration-space model,
// and transforms implements the individual passes.
//
// Usage:
//
//	engine := internal.NewEngine(nil, logger)
//	result, err := engine.Run("kernels.f90")
//	if err != nil {
//	    // handle error
//	}
//	os.Stdout.Write(result.Output)
package internal
