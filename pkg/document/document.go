// Package document persists the retina node settings document (user.yml).
//
// The document is a nested string-keyed tree. It is not required to contain
// every field the schema describes, and it may contain fields the schema
// does not describe; unknown content survives load/modify/save cycles
// untouched so newer documents keep working with older consoles.
package document

import "maps"

// Document is the persisted settings tree. Nested mappings decode as
// map[string]any; leaf values are scalars or sequences.
type Document = map[string]any

// Clone returns a deep copy of a document. Nested mappings are copied;
// scalar and sequence leaves are shared.
func Clone(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			out[k] = Clone(m)
			continue
		}
		out[k] = v
	}
	return out
}

// Equal reports whether two documents have the same keys and values,
// ignoring key order.
func Equal(a, b Document) bool {
	return maps.EqualFunc(a, b, valueEqual)
}

func valueEqual(a, b any) bool {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok || bok {
		return aok && bok && Equal(am, bm)
	}
	as, aok := a.([]any)
	bs, bok := b.([]any)
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !valueEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
