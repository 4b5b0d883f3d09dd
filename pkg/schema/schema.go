// Package schema defines the declarative description of the retina node
// settings. The schema drives form rendering and submission validation; it
// is static data, built once at process start and treated as immutable.
package schema

import (
	"fmt"
)

// Kind identifies the type of a schema node.
type Kind string

// Supported node kinds.
const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindReal   Kind = "real"
	KindString Kind = "string"
	KindEnum   Kind = "enum"
	KindGroup  Kind = "group"
)

// Node describes one settings field or group of fields.
type Node struct {
	// Name is the document key for this node, unique among siblings.
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Display metadata.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ReadOnly    bool   `json:"readOnly,omitempty"`

	// Min and Max are inclusive bounds, valid for int and real kinds only.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Values is the allowed value set, valid for the enum kind only.
	Values []string `json:"values,omitempty"`

	// Children is the ordered field list, present for the group kind only.
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a single field rather than a group.
func (n *Node) IsLeaf() bool {
	return n.Kind != KindGroup
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Error describes an invalid schema definition. Schema errors are static
// configuration errors and abort process start.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %s", e.Message)
	}
	return fmt.Sprintf("invalid schema at %q: %s", e.Path, e.Message)
}

// Validate checks a schema tree for structural errors: unknown kinds,
// duplicate sibling names, children on leaf kinds, and constraints declared
// on kinds they do not apply to.
func Validate(root *Node) error {
	if root == nil {
		return &Error{Message: "schema root is nil"}
	}
	return validateNode(root, "")
}

func validateNode(n *Node, path string) error {
	switch n.Kind {
	case KindBool, KindInt, KindReal, KindString, KindEnum, KindGroup:
	default:
		return &Error{Path: path, Message: fmt.Sprintf("unknown kind %q", n.Kind)}
	}

	if n.Kind != KindGroup {
		if len(n.Children) > 0 {
			return &Error{Path: path, Message: fmt.Sprintf("leaf kind %q must not have children", n.Kind)}
		}
	}
	if n.Kind != KindInt && n.Kind != KindReal {
		if n.Min != nil || n.Max != nil {
			return &Error{Path: path, Message: fmt.Sprintf("min/max constraints are not valid for kind %q", n.Kind)}
		}
	}
	if n.Min != nil && n.Max != nil && *n.Min > *n.Max {
		return &Error{Path: path, Message: fmt.Sprintf("min %v is greater than max %v", *n.Min, *n.Max)}
	}
	if n.Kind == KindEnum && len(n.Values) == 0 {
		return &Error{Path: path, Message: "enum must declare at least one allowed value"}
	}
	if n.Kind != KindEnum && len(n.Values) > 0 {
		return &Error{Path: path, Message: fmt.Sprintf("allowed values are not valid for kind %q", n.Kind)}
	}

	seen := make(map[string]struct{}, len(n.Children))
	for _, c := range n.Children {
		if c.Name == "" {
			return &Error{Path: path, Message: "child with empty name"}
		}
		if _, dup := seen[c.Name]; dup {
			return &Error{Path: path, Message: fmt.Sprintf("duplicate child name %q", c.Name)}
		}
		seen[c.Name] = struct{}{}

		childPath := c.Name
		if path != "" {
			childPath = path + "." + c.Name
		}
		if err := validateNode(c, childPath); err != nil {
			return err
		}
	}
	return nil
}
