package filter

import "strings"

// resolvePath walks a dot-notation field path (a.b.c) through nested
// JSON-shaped objects. Returns (value, true) if the full path resolves,
// or (nil, false) if any segment is missing or not an object — the spec
// requires missing fields to evaluate false, never error.
func resolvePath(root interface{}, path string) (interface{}, bool) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, exists := obj[seg]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// toFloat64 coerces the JSON-decoded numeric types (and Go-native numeric
// types used directly in tests) to float64. Returns false for anything
// else, including strings with numeric content — the spec requires no
// type coercion.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// valuesEqual compares two JSON-shaped scalar values for equality without
// coercing across type families (numeric vs string vs bool).
func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
		return false
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	if ab, aok := a.(bool); aok {
		bb, bok := b.(bool)
		return bok && ab == bb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return false
}

// asSlice returns v as a []interface{} if it is JSON-array-shaped.
func asSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}
