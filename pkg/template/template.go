// Package template expands {{data.path}} and {{context.path}} placeholders
// inside workflow action configuration strings.
package template

import (
	"fmt"
	"regexp"
)

// placeholderPattern matches {{ data.some.path }} and {{ context.some.path }}
// with optional whitespace inside the braces.
var placeholderPattern = regexp.MustCompile(`\{\{\s*(data|context)\.([^\s{}]+)\s*\}\}`)

// Bindings is the pair of maps templates are resolved against: the trigger
// payload (data) and the trigger context (context).
type Bindings struct {
	Data    map[string]any
	Context map[string]any
}

// Resolve replaces every placeholder in input with the value reached by its
// dotted path. A placeholder whose path is missing, or resolves to nil, is
// left in place verbatim; callers must not rely on empty-string substitution.
// Inputs without placeholders are returned unchanged.
func Resolve(input string, bindings Bindings) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)

		var root map[string]any

		switch groups[1] {
		case "data":
			root = bindings.Data
		case "context":
			root = bindings.Context
		}

		value, ok := GetPath(root, groups[2])
		if !ok || value == nil {
			return match
		}

		return stringify(value)
	})
}

// ResolveValue walks an arbitrary decoded-JSON value and resolves every
// string it contains. Non-string leaves pass through unchanged.
func ResolveValue(value any, bindings Bindings) any {
	switch v := value.(type) {
	case string:
		return Resolve(v, bindings)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			resolved[key] = ResolveValue(item, bindings)
		}

		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			resolved[i] = ResolveValue(item, bindings)
		}

		return resolved
	default:
		return value
	}
}

// GetPath walks a dotted path through nested maps. The second return is false
// when any segment is missing or a non-map is traversed.
func GetPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}

	var current any = root

	start := 0

	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}

		segment := path[start:i]
		start = i + 1

		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".0" so "{{data.quantity}} left" reads naturally.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
