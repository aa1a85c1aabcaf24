package verifier

import (
	"math"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

type visit struct {
	a, b uintptr
	typ  reflect.Type
}

// EqualValues compares two values structurally.
//
// Unlike reflect.DeepEqual it treats NaN as equal to NaN, nil and empty
// slices or maps as equal, time.Time by instant, and values of distinct but
// identically shaped types (same kind, same field names) as comparable. The
// last rule lets a method that returns its own receiver type be compared
// across the reference and submission types.
func EqualValues(a, b reflect.Value) bool {
	return equal(a, b, make(map[visit]bool), make(map[[2]reflect.Type]bool))
}

func equal(a, b reflect.Value, seen map[visit]bool, shapes map[[2]reflect.Type]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() && !sameShape(a.Type(), b.Type(), shapes) {
		return false
	}
	if a.Type() == timeType && a.CanInterface() && b.CanInterface() {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}
	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return floatEqual(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := a.Complex(), b.Complex()
		return floatEqual(real(ca), real(cb)) && floatEqual(imag(ca), imag(cb))
	case reflect.String:
		return a.String() == b.String()
	case reflect.Func:
		return a.IsNil() && b.IsNil()
	case reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return equal(a.Elem(), b.Elem(), seen, shapes)
	case reflect.Ptr:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		if a.Type() == b.Type() && a.Pointer() == b.Pointer() {
			return true
		}
		if enter(a, b, seen) {
			return true
		}
		return equal(a.Elem(), b.Elem(), seen, shapes)
	case reflect.Slice:
		if a.Len() != b.Len() {
			return false
		}
		if a.Len() == 0 {
			return true
		}
		if enter(a, b, seen) {
			return true
		}
		return equalElems(a, b, seen, shapes)
	case reflect.Array:
		return equalElems(a, b, seen, shapes)
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		if a.Len() == 0 {
			return true
		}
		if enter(a, b, seen) {
			return true
		}
		return equalMaps(a, b, seen, shapes)
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !equal(a.Field(i), b.Field(i), seen, shapes) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func floatEqual(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

// enter records a visit and reports whether it was already in progress.
func enter(a, b reflect.Value, seen map[visit]bool) bool {
	pa, pb := a.Pointer(), b.Pointer()
	if pa > pb {
		pa, pb = pb, pa
	}
	v := visit{a: pa, b: pb, typ: a.Type()}
	if seen[v] {
		return true
	}
	seen[v] = true
	return false
}

func equalElems(a, b reflect.Value, seen map[visit]bool, shapes map[[2]reflect.Type]bool) bool {
	for i := 0; i < a.Len(); i++ {
		if !equal(a.Index(i), b.Index(i), seen, shapes) {
			return false
		}
	}
	return true
}

func equalMaps(a, b reflect.Value, seen map[visit]bool, shapes map[[2]reflect.Type]bool) bool {
	if a.Type().Key() == b.Type().Key() {
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !equal(iter.Value(), bv, seen, shapes) {
				return false
			}
		}
		return true
	}
	// Keys of distinct types need a pairwise search.
	used := make(map[int]bool, b.Len())
	bKeys := b.MapKeys()
	iter := a.MapRange()
	for iter.Next() {
		found := false
		for j, bk := range bKeys {
			if used[j] || !equal(iter.Key(), bk, seen, shapes) {
				continue
			}
			if !equal(iter.Value(), b.MapIndex(bk), seen, shapes) {
				return false
			}
			used[j] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// sameShape reports whether two distinct types are structurally
// interchangeable for comparison.
func sameShape(ta, tb reflect.Type, shapes map[[2]reflect.Type]bool) bool {
	if ta == tb {
		return true
	}
	if ta.Kind() != tb.Kind() {
		return false
	}
	key := [2]reflect.Type{ta, tb}
	if done, ok := shapes[key]; ok {
		return done
	}
	// Assume equal while recursing so recursive types terminate.
	shapes[key] = true
	ok := shapeOf(ta, tb, shapes)
	shapes[key] = ok
	return ok
}

func shapeOf(ta, tb reflect.Type, shapes map[[2]reflect.Type]bool) bool {
	switch ta.Kind() {
	case reflect.Ptr, reflect.Slice:
		return sameShape(ta.Elem(), tb.Elem(), shapes)
	case reflect.Array:
		return ta.Len() == tb.Len() && sameShape(ta.Elem(), tb.Elem(), shapes)
	case reflect.Map:
		return sameShape(ta.Key(), tb.Key(), shapes) && sameShape(ta.Elem(), tb.Elem(), shapes)
	case reflect.Struct:
		if ta == timeType || tb == timeType || ta.NumField() != tb.NumField() {
			return false
		}
		for i := 0; i < ta.NumField(); i++ {
			fa, fb := ta.Field(i), tb.Field(i)
			if fa.Name != fb.Name || !sameShape(fa.Type, fb.Type, shapes) {
				return false
			}
		}
		return true
	case reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}
