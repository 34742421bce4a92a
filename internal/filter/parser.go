package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON parses a raw JSON filter expression per §4.6's grammar.
func ParseJSON(raw []byte) (Filter, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, NewError("parse", "", fmt.Sprintf("invalid JSON: %v", err))
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, NewError("parse", "", "filter must be a JSON object")
	}
	return ParseObject(obj)
}

// ParseObject parses an already-decoded JSON object into a Filter.
func ParseObject(obj map[string]interface{}) (Filter, error) {
	if len(obj) == 0 {
		return nil, NewError("parse", "", "empty filter object is not allowed")
	}

	if len(obj) == 1 {
		for k, v := range obj {
			if strings.HasPrefix(k, "$") {
				return parseTopLevelOperator(k, v)
			}
			return parseFieldPredicate(k, v)
		}
	}

	// Multiple keys: implicit And over per-key equality predicates. Any
	// '$'-prefixed key mixed in at this level has no defined combination
	// rule and is rejected rather than guessed at.
	children := make([]Filter, 0, len(obj))
	for k, v := range obj {
		if strings.HasPrefix(k, "$") {
			return nil, NewError("parse", k, "operator key cannot be combined with other keys at the same level")
		}
		f, err := parseFieldPredicate(k, v)
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
	return NewAndFilter(children...), nil
}

func parseTopLevelOperator(op string, value interface{}) (Filter, error) {
	switch op {
	case "$and", "$or":
		arr, ok := value.([]interface{})
		if !ok {
			return nil, NewError("parse", op, "value must be an array of filter objects")
		}
		children := make([]Filter, 0, len(arr))
		for i, elem := range arr {
			elemObj, ok := elem.(map[string]interface{})
			if !ok {
				return nil, NewError("parse", op, fmt.Sprintf("element %d must be a filter object", i))
			}
			child, err := ParseObject(elemObj)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if op == "$and" {
			return NewAndFilter(children...), nil
		}
		return NewOrFilter(children...), nil
	default:
		return nil, NewError("parse", op, "unsupported operator")
	}
}

func parseFieldPredicate(field string, value interface{}) (Filter, error) {
	if nested, ok := value.(map[string]interface{}); ok {
		return parseFieldOperator(field, nested)
	}
	return NewEqualsFilter(field, value), nil
}

func parseFieldOperator(field string, obj map[string]interface{}) (Filter, error) {
	if len(obj) == 0 {
		return nil, NewError("parse", field, "empty operator object is not allowed")
	}

	if v, ok := obj["$in"]; ok {
		if len(obj) != 1 {
			return nil, NewError("parse", field, "$in cannot be combined with other operators")
		}
		arr, ok := v.([]interface{})
		if !ok {
			return nil, NewError("parse", field, "$in value must be an array")
		}
		return NewInFilter(field, arr), nil
	}

	gte, hasGte := obj["$gte"]
	lte, hasLte := obj["$lte"]
	if hasGte || hasLte {
		for k := range obj {
			if k != "$gte" && k != "$lte" {
				return nil, NewError("parse", field, fmt.Sprintf("unsupported operator %q", k))
			}
		}
		var min, max *float64
		if hasGte {
			f, ok := toFloat64(gte)
			if !ok {
				return nil, NewError("parse", field, "$gte value must be numeric")
			}
			min = &f
		}
		if hasLte {
			f, ok := toFloat64(lte)
			if !ok {
				return nil, NewError("parse", field, "$lte value must be numeric")
			}
			max = &f
		}
		return NewRangeFilter(field, min, max), nil
	}

	for k := range obj {
		return nil, NewError("parse", field, fmt.Sprintf("unsupported operator %q", k))
	}
	return nil, NewError("parse", field, "empty operator object is not allowed")
}
