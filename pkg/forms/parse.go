package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/owl-os/retina-console/pkg/schema"
)

// ParseSubmission converts the flat submission entries under pathPrefix
// back into a nested value tree shaped like the schema, validating each
// field against its declared kind and constraints.
//
// Checkbox semantics apply to bool fields: any present value (including
// empty) means true, absence means false. Other leaf kinds contribute a
// value only when their path is present. Group keys are omitted entirely
// when no descendant leaf was submitted, so empty sub-mappings the document
// never had are not fabricated. Submission paths that no schema node
// describes are ignored.
//
// A non-empty error list must prevent the caller from merging or saving.
func ParseSubmission(node *schema.Node, sub Submission, pathPrefix string) (map[string]any, []FieldError) {
	if node.Kind != schema.KindGroup {
		// Parsing is always rooted at a group; a leaf has no mapping to
		// contribute to.
		return nil, nil
	}

	out := make(map[string]any)
	var errs []FieldError

	for _, child := range node.Children {
		cp := childPath(pathPrefix, child.Name)

		if child.Kind == schema.KindGroup {
			if !anyLeafPresent(child, sub, cp) {
				continue
			}
			nested, childErrs := ParseSubmission(child, sub, cp)
			errs = append(errs, childErrs...)
			if len(nested) > 0 {
				out[child.Name] = nested
			}
			continue
		}

		raw, present := sub[cp]

		if child.Kind == schema.KindBool {
			out[child.Name] = present
			continue
		}
		if !present {
			continue
		}

		value, err := parseLeaf(child, raw)
		if err != nil {
			errs = append(errs, FieldError{Path: cp, Message: err.Error(), Value: raw})
			continue
		}
		out[child.Name] = value
	}

	if len(out) == 0 {
		return nil, errs
	}
	return out, errs
}

// parseLeaf parses and validates a single submitted value against a leaf
// node. Out-of-range numbers still parse; the error carries the offending
// value so the caller can redisplay it, but the value is withheld from the
// result tree.
func parseLeaf(node *schema.Node, raw string) (any, error) {
	switch node.Kind {
	case schema.KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		if err := checkRange(node, float64(n)); err != nil {
			return nil, err
		}
		return int(n), nil

	case schema.KindReal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		if err := checkRange(node, f); err != nil {
			return nil, err
		}
		return f, nil

	case schema.KindEnum:
		for _, allowed := range node.Values {
			if raw == allowed {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of the allowed values (%s)", raw, strings.Join(node.Values, ", "))

	default:
		return raw, nil
	}
}

func checkRange(node *schema.Node, v float64) error {
	if node.Min != nil && v < *node.Min {
		return fmt.Errorf("%v is below the minimum %v", v, formatBound(*node.Min))
	}
	if node.Max != nil && v > *node.Max {
		return fmt.Errorf("%v is above the maximum %v", v, formatBound(*node.Max))
	}
	return nil
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// anyLeafPresent reports whether the submission carries a value for any
// leaf under node. An absent checkbox does not count: its absence is
// indistinguishable from the group not being on the form at all, and must
// not conjure a sub-mapping full of false values.
func anyLeafPresent(node *schema.Node, sub Submission, pathPrefix string) bool {
	for _, child := range node.Children {
		cp := childPath(pathPrefix, child.Name)
		if child.Kind == schema.KindGroup {
			if anyLeafPresent(child, sub, cp) {
				return true
			}
			continue
		}
		if _, ok := sub[cp]; ok {
			return true
		}
	}
	return false
}
