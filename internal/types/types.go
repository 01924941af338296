// Package types holds the record and error types shared between the
// engine, the passes and the reporting layers.
package types

import "fmt"

// Change records one applied transformation.
type Change struct {
	Pass     string
	Routine  string
	Filename string
	Message  string
}

// ConfigPass configures a single transformation pass.
type ConfigPass struct {
	Disabled bool              `yaml:"disabled"`
	Options  map[string]string `yaml:"options,omitempty"`
}

// StructuralError reports a construct the polyhedral model cannot
// represent, such as a non-affine loop bound or a discontiguous marker
// window. It aborts only the construct being transformed.
type StructuralError struct {
	Construct string
	Detail    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s: %s", e.Construct, e.Detail)
}

// Structural builds a StructuralError.
func Structural(construct, format string, args ...any) *StructuralError {
	return &StructuralError{Construct: construct, Detail: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports conflicting directive parameters within
// one group or target. It aborts the whole driver invocation before
// any part of the tree is rewritten.
type ConfigurationError struct {
	Group  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in group %q: %s", e.Group, e.Detail)
}

// Configuration builds a ConfigurationError.
func Configuration(group, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Group: group, Detail: fmt.Sprintf(format, args...)}
}

// ReferenceError reports a directive naming a loop, group or variable
// that is absent from the tree. It aborts only the construct being
// transformed.
type ReferenceError struct {
	Name   string
	Detail string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference error for %q: %s", e.Name, e.Detail)
}

// Reference builds a ReferenceError.
func Reference(name, format string, args ...any) *ReferenceError {
	return &ReferenceError{Name: name, Detail: fmt.Sprintf(format, args...)}
}
