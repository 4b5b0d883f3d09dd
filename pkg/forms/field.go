// Package forms is the projection engine between the settings schema, the
// persisted document, and flattened form submissions.
//
// The read side (Project) pairs every schema node with the value currently
// persisted at its path, producing a tree a presentation layer can render
// without consulting the schema again. The write side (ParseSubmission,
// Merge) turns a flat path->string submission back into a validated nested
// tree and splices it into the document without disturbing anything else.
package forms

import "github.com/owl-os/retina-console/pkg/schema"

// Field pairs a schema node with the value currently persisted at its path.
//
// Set distinguishes "unset" from falsy values: a field absent from the
// document reports Set=false and a nil Value, never the schema kind's zero
// value.
type Field struct {
	Path        string      `json:"path,omitempty"`
	Name        string      `json:"name"`
	Kind        schema.Kind `json:"kind"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	ReadOnly    bool        `json:"readOnly,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Values      []string    `json:"values,omitempty"`

	Value any  `json:"value"`
	Set   bool `json:"set"`

	// TypeMismatch marks a document value whose runtime type conflicts
	// with the schema kind. The raw value is surfaced as-is; strict
	// validation happens only on submission.
	TypeMismatch bool `json:"typeMismatch,omitempty"`

	Children []*Field `json:"children,omitempty"`
}

// Submission is a flattened form submission: dotted field paths mapped to
// raw string values. Map presence carries meaning for checkbox-style bool
// fields, where absence is the only way to express false.
type Submission = map[string]string

// FieldError is a validation error scoped to a single field path so the
// presentation layer can highlight exactly that field. Value carries the
// rejected raw input for redisplay; it is never merged into the document.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// childPath extends a dotted path prefix with a child name.
func childPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
