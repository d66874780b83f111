package config

// CloneMap returns a deep copy of m. Nested maps and slices are copied;
// other values are shared. A nil map yields nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies the JSON-like shapes (map[string]any, []any,
// []string, map[string]bool) and returns everything else as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]bool:
		out := make(map[string]bool, len(val))
		for k, b := range val {
			out[k] = b
		}
		return out
	default:
		return v
	}
}

// Merge returns a new map holding base overwritten by each override in
// turn. Only the top level is merged; values are not copied.
func Merge(base map[string]any, overrides ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}
