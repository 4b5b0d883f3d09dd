package forms

import "strings"

// Merge replaces the subtree of doc at the dotted path with value and
// returns the resulting document. The input document is not modified;
// mappings along the path are copied, every sibling key outside the path is
// carried over unchanged, and keys inside the replaced subtree that the new
// value does not name (extraneous or legacy content) pass through.
//
// An empty path addresses the document root.
func Merge(doc map[string]any, path string, value any) map[string]any {
	var segments []string
	if path != "" {
		segments = strings.Split(path, ".")
	}
	merged := mergeAt(doc, segments, value)
	if m, ok := merged.(map[string]any); ok {
		return m
	}
	// A scalar at the root cannot be a document; wrap rather than drop.
	return map[string]any{}
}

func mergeAt(current any, segments []string, value any) any {
	if len(segments) == 0 {
		return overlay(current, value)
	}

	out := copyMap(current)
	out[segments[0]] = mergeAt(out[segments[0]], segments[1:], value)
	return out
}

// overlay applies a replacement value on top of existing content. When both
// sides are mappings the replacement is applied key by key so existing keys
// the replacement does not mention survive; any other combination replaces
// outright.
func overlay(existing, value any) any {
	vm, ok := value.(map[string]any)
	if !ok {
		return value
	}

	out := copyMap(existing)
	for k, v := range vm {
		out[k] = overlay(out[k], v)
	}
	return out
}

func copyMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}
