package base

import (
	"reflect"
	"time"
)

// Copy returns a structural deep copy of a cached value so callers cannot
// mutate state held by the store.
//
// Policy: maps, slices, arrays and pointers are copied recursively; strings,
// numbers, booleans and time.Time pass through as values; structs, functions
// and channels pass through shallow. Cyclic graphs are not tracked and will
// not terminate; cached values must be acyclic.
func Copy(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		return t
	}
	return copyValue(reflect.ValueOf(value)).Interface()
}

func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyElem(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyElem(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyElem(v.Index(i)))
		}
		return out

	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(copyElem(v.Elem()))
		return out

	default:
		// Scalars copy by value; structs, funcs and chans pass through.
		return v
	}
}

// copyElem copies a value reached through a container, unwrapping interface
// elements so nested maps and slices are still copied.
func copyElem(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		inner := copyValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	}
	return copyValue(v)
}
