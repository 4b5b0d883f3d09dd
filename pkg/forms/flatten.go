package forms

import (
	"fmt"
	"strconv"

	"github.com/owl-os/retina-console/pkg/schema"
)

// Flatten converts a nested value tree into the flat submission a form post
// would produce for the same schema. It is the inverse of ParseSubmission
// for valid trees: true bools flatten to a presence marker, false bools are
// omitted (checkbox semantics), and values the tree does not contain
// produce no entry.
func Flatten(node *schema.Node, values map[string]any, pathPrefix string) Submission {
	sub := Submission{}
	flattenInto(node, values, pathPrefix, sub)
	return sub
}

func flattenInto(node *schema.Node, values map[string]any, pathPrefix string, sub Submission) {
	for _, child := range node.Children {
		cp := childPath(pathPrefix, child.Name)

		if child.Kind == schema.KindGroup {
			if nested, ok := values[child.Name].(map[string]any); ok {
				flattenInto(child, nested, cp, sub)
			}
			continue
		}

		v, ok := values[child.Name]
		if !ok {
			continue
		}
		if child.Kind == schema.KindBool {
			if b, ok := v.(bool); ok && b {
				sub[cp] = "on"
			}
			continue
		}
		sub[cp] = formatValue(v)
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
