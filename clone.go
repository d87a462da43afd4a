package model

import (
	"reflect"

	"github.com/spf13/cast"
)

// cloneAttributes returns a deep copy of a raw attribute map.
func cloneAttributes(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

// deepCopyValue copies maps and slices recursively, keeping their types.
// Scalars, structs and pointers are returned as-is.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return cloneAttributes(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case Collection:
		out := make(Collection, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Slice:
		if val.IsNil() {
			return v
		}
		out := reflect.MakeSlice(val.Type(), val.Len(), val.Len())
		for i := 0; i < val.Len(); i++ {
			copyInto(out.Index(i), val.Index(i))
		}
		return out.Interface()
	case reflect.Map:
		if val.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(val.Type(), val.Len())
		iter := val.MapRange()
		for iter.Next() {
			elem := reflect.New(val.Type().Elem()).Elem()
			copyInto(elem, iter.Value())
			out.SetMapIndex(iter.Key(), elem)
		}
		return out.Interface()
	default:
		return v
	}
}

// copyInto stores a deep copy of src in dst, which must share its type.
func copyInto(dst, src reflect.Value) {
	if src.Kind() == reflect.Interface && src.IsNil() {
		return
	}
	copied := deepCopyValue(src.Interface())
	if copied == nil {
		return
	}
	dst.Set(reflect.ValueOf(copied))
}

// equivalent reports whether two raw values should be treated as unchanged.
// Numeric text and numbers compare by value.
func equivalent(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isNumeric(a) && isNumeric(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)
		return errA == nil && errB == nil && fa == fb
	}
	return false
}
