// Package layout finds report layout objects embedded in free-form text.
//
// The scan is a heuristic, not a parser: the first JSON object carrying a
// reserved layout key wins, so earlier incidental JSON can shadow the layout
// the user meant.
package layout

import (
	"encoding/json"
	"strings"
)

// ReservedKeys are the keys that mark an object as a layout.
var ReservedKeys = []string{"header", "summary", "table", "notes", "footnote", "sections"}

// Extract returns the first layout object found in text, scanning left to right.
func Extract(text string) (map[string]any, bool) {
	for i := 0; i < len(text); {
		c := text[i]
		if c != '{' && c != '[' {
			i++
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			i++
			continue
		}

		if obj, ok := v.(map[string]any); ok && IsLayout(obj) {
			return obj, true
		}
		i += int(dec.InputOffset())
	}
	return nil, false
}

// IsLayout reports whether obj carries at least one reserved key.
func IsLayout(obj map[string]any) bool {
	for _, k := range ReservedKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// Canonical renders a layout object as compact JSON with sorted keys.
func Canonical(obj map[string]any) (string, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
