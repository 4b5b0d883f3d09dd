package forms

import "github.com/owl-os/retina-console/pkg/schema"

// Project converts a schema node and the corresponding values subtree into
// a renderable Field tree.
//
// Project is pure and total: it succeeds for every well-formed schema node
// whether values is empty, partially populated, or carries extraneous keys
// (which are ignored). Values come from the document only; schema defaults
// are never substituted for missing entries.
func Project(node *schema.Node, values map[string]any) *Field {
	return project(node, values, node.Name)
}

// project renders a node whose own values subtree is values (for groups)
// and which sits at the given dotted path.
func project(node *schema.Node, values map[string]any, path string) *Field {
	f := descriptor(node, path)

	if node.Kind != schema.KindGroup {
		// A leaf projected directly carries no surrounding mapping to
		// look itself up in; treat the subtree as the parent mapping.
		projectLeafValue(f, node, values)
		return f
	}

	f.Children = make([]*Field, 0, len(node.Children))
	for _, child := range node.Children {
		cp := childPath(path, child.Name)
		if child.Kind == schema.KindGroup {
			sub, _ := values[child.Name].(map[string]any)
			f.Children = append(f.Children, project(child, sub, cp))
			continue
		}
		cf := descriptor(child, cp)
		projectLeafValue(cf, child, values)
		f.Children = append(f.Children, cf)
	}
	return f
}

func descriptor(node *schema.Node, path string) *Field {
	return &Field{
		Path:        path,
		Name:        node.Name,
		Kind:        node.Kind,
		Title:       node.Title,
		Description: node.Description,
		ReadOnly:    node.ReadOnly,
		Min:         node.Min,
		Max:         node.Max,
		Values:      node.Values,
	}
}

func projectLeafValue(f *Field, node *schema.Node, values map[string]any) {
	v, ok := values[node.Name]
	if !ok {
		return
	}
	f.Value = v
	f.Set = true
	f.TypeMismatch = !kindMatches(node.Kind, v)
}

// kindMatches reports whether a document value's runtime type is compatible
// with the declared schema kind.
func kindMatches(kind schema.Kind, v any) bool {
	switch kind {
	case schema.KindBool:
		_, ok := v.(bool)
		return ok
	case schema.KindInt:
		switch v.(type) {
		case int, int64, uint64:
			return true
		}
		return false
	case schema.KindReal:
		switch v.(type) {
		case int, int64, uint64, float64:
			return true
		}
		return false
	case schema.KindString, schema.KindEnum:
		_, ok := v.(string)
		return ok
	}
	return false
}
