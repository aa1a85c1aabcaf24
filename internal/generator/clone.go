package generator

import "reflect"

// Clone returns a deep copy of v. Pointers, slices, maps, arrays, interfaces
// and exported struct fields are copied recursively; unexported struct fields
// are copied shallowly. Shared and cyclic pointers keep their shape.
func Clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	return cloneValue(v, make(map[uintptr]reflect.Value))
}

// CloneAll deep-copies a slice of values.
func CloneAll(vs []reflect.Value) []reflect.Value {
	out := make([]reflect.Value, len(vs))
	for i, v := range vs {
		out[i] = Clone(v)
	}
	return out
}

func cloneValue(v reflect.Value, seen map[uintptr]reflect.Value) reflect.Value {
	t := v.Type()
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		if c, ok := seen[v.Pointer()]; ok {
			return c
		}
		out := reflect.New(t.Elem())
		seen[v.Pointer()] = out
		out.Elem().Set(cloneValue(v.Elem(), seen))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), seen))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(cloneValue(iter.Key(), seen), cloneValue(iter.Value(), seen))
		}
		return out
	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), seen))
		}
		return out
	case reflect.Interface:
		out := reflect.New(t).Elem()
		if !v.IsNil() {
			out.Set(cloneValue(v.Elem(), seen))
		}
		return out
	case reflect.Struct:
		out := reflect.New(t).Elem()
		if !v.CanInterface() {
			return v
		}
		out.Set(v)
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(cloneValue(v.Field(i), seen))
		}
		return out
	default:
		return v
	}
}
