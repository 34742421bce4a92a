package corevdb

import (
	"strconv"
	"strings"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/persist"
)

// Schema re-exports the persistence layer's schema shape so callers
// configure it without reaching into internal packages.
type Schema = persist.Schema

// FieldType re-exports the persistence layer's field type descriptor.
type FieldType = persist.FieldType

// Field kind constructors, mirroring §4.8's FieldType variants.
func StringField() FieldType { return FieldType{Kind: persist.KindString} }
func NumberField() FieldType { return FieldType{Kind: persist.KindNumber} }
func BoolField() FieldType   { return FieldType{Kind: persist.KindBool} }
func ArrayField(elem FieldType) FieldType {
	return FieldType{Kind: persist.KindArray, Elem: &elem}
}
func ObjectField(fields map[string]FieldType) FieldType {
	return FieldType{Kind: persist.KindObject, Obj: fields}
}

// validateSchema checks metadata against schema per §4.8: every
// required path must resolve to a non-null value; every declared path
// present in metadata must match its declared type; unknown fields are
// permitted.
func validateSchema(schema *Schema, metadata interface{}) error {
	if schema == nil {
		return nil
	}
	for _, path := range schema.Required {
		v, ok := resolvePath(metadata, path)
		if !ok || v == nil {
			return coreerr.Newf(coreerr.MissingField, "required field %q is missing", path).WithDetail("path", path)
		}
	}
	for path, ft := range schema.Fields {
		v, ok := resolvePath(metadata, path)
		if !ok || v == nil {
			continue
		}
		if err := checkType(path, ft, v); err != nil {
			return err
		}
	}
	return nil
}

func checkType(path string, ft FieldType, v interface{}) error {
	switch ft.Kind {
	case persist.KindString:
		if _, ok := v.(string); !ok {
			return typeErr(path, "string", v)
		}
	case persist.KindNumber:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return typeErr(path, "number", v)
		}
	case persist.KindBool:
		if _, ok := v.(bool); !ok {
			return typeErr(path, "boolean", v)
		}
	case persist.KindArray:
		arr, ok := v.([]interface{})
		if !ok {
			return typeErr(path, "array", v)
		}
		if ft.Elem != nil {
			for i, elem := range arr {
				if err := checkType(path+"["+strconv.Itoa(i)+"]", *ft.Elem, elem); err != nil {
					return err
				}
			}
		}
	case persist.KindObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return typeErr(path, "object", v)
		}
		for field, sub := range ft.Obj {
			if fv, ok := obj[field]; ok && fv != nil {
				if err := checkType(path+"."+field, sub, fv); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func typeErr(path, expected string, actual interface{}) error {
	return coreerr.Newf(coreerr.SchemaViolation, "field %q: expected %s", path, expected).
		WithDetail("path", path).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// resolvePath walks dot-notation path segments through nested objects
// (§4.6's field path resolution, reused here for schema checks).
func resolvePath(root interface{}, path string) (interface{}, bool) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
