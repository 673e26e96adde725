// Package shaper applies per-backend payload transforms to outbound
// request bodies: key deletion, default-key addition, and key renaming.
// All transforms are pure; the input tree is never mutated.
package shaper

// Delete removes any map entry whose key appears in names, recursively.
// Map values and slice elements are descended into; scalars pass through.
func Delete(data any, names []string) any {
	if len(names) == 0 {
		return clone(data)
	}

	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any)

		for key, value := range v {
			if containsKey(names, key) {
				continue
			}

			result[key] = Delete(value, names)
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = Delete(item, names)
		}

		return result
	default:
		return v
	}
}

// Add sets each (key, value) from additions on every map node in the tree
// that does not already carry the key. Existing keys always win.
func Add(data any, additions map[string]any) any {
	if len(additions) == 0 {
		return clone(data)
	}

	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any)

		for key, value := range v {
			result[key] = Add(value, additions)
		}

		for key, value := range additions {
			if _, exists := result[key]; !exists {
				result[key] = value
			}
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = Add(item, additions)
		}

		return result
	default:
		return v
	}
}

// Rename substitutes map keys using renames, recursively. Values keep
// their position under the new key and are themselves renamed.
func Rename(data any, renames map[string]string) any {
	if len(renames) == 0 {
		return clone(data)
	}

	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any)

		for key, value := range v {
			newKey := key
			if renamed, ok := renames[key]; ok {
				newKey = renamed
			}

			result[newKey] = Rename(value, renames)
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = Rename(item, renames)
		}

		return result
	default:
		return v
	}
}

// Apply runs the three transforms in their composition order:
// deletion strips incompatible fields, addition supplies backend
// defaults without clobbering caller values, rename adapts to
// upstream naming last.
func Apply(data any, deletions []string, additions map[string]any, renames map[string]string) any {
	return Rename(Add(Delete(data, deletions), additions), renames)
}

// clone deep-copies the tree so identity transforms still return a
// fresh tree with no aliasing into the input.
func clone(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = clone(value)
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = clone(item)
		}

		return result
	default:
		return v
	}
}

func containsKey(names []string, key string) bool {
	for _, name := range names {
		if name == key {
			return true
		}
	}

	return false
}
