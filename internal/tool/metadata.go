package tool

import (
	"sort"
	"strings"
)

// Shape is the JSON shape a tool backend must answer with.
type Shape string

const (
	ShapeObject Shape = "object"
	ShapeList   Shape = "list"
)

type ToolMetadata struct {
	Capabilities []string
	Result       Shape
}

func normalizeToolMetadata(meta ToolMetadata) ToolMetadata {
	result := Shape(strings.TrimSpace(strings.ToLower(string(meta.Result))))
	switch result {
	case ShapeObject, ShapeList:
	default:
		result = ShapeObject
	}

	seen := make(map[string]struct{}, len(meta.Capabilities))
	capabilities := make([]string, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		normalized := normalizeCapability(capability)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		capabilities = append(capabilities, normalized)
	}
	sort.Strings(capabilities)

	return ToolMetadata{
		Capabilities: capabilities,
		Result:       result,
	}
}

func normalizeCapability(in string) string {
	return strings.TrimSpace(strings.ToLower(in))
}

// Matches reports whether a decoded backend value has the expected shape.
func (s Shape) Matches(v any) bool {
	switch s {
	case ShapeList:
		_, ok := v.([]any)
		return ok
	default:
		_, ok := v.(map[string]any)
		return ok
	}
}

// Normalize folds the variable block count of a list answer into a list:
// no content is an empty list and a single decoded entry is a one-element
// list. Object shapes are returned unchanged.
func (s Shape) Normalize(v any) any {
	if s != ShapeList {
		return v
	}
	switch list := v.(type) {
	case []any:
		return list
	case nil:
		return []any{}
	default:
		return []any{v}
	}
}
