package generator

import (
	"math"
	"math/cmplx"
	"reflect"
)

const magnitudeDepth = 16

// Magnitude scores how "large" a value is: absolute value for numbers,
// length for strings, slices and maps, and the sum over elements for arrays
// and structs. It feeds per-round statistics.
func Magnitude(v reflect.Value) float64 {
	return magnitude(v, 0)
}

func magnitude(v reflect.Value, depth int) float64 {
	if !v.IsValid() || depth > magnitudeDepth {
		return 0
	}
	if v.Type() == timeType && v.CanInterface() {
		return math.Abs(float64(v.Interface().(interface{ Year() int }).Year() - epochYear))
	}
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return math.Abs(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return finite(math.Abs(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		return finite(cmplx.Abs(v.Complex()))
	case reflect.String, reflect.Slice, reflect.Map:
		return float64(v.Len())
	case reflect.Array:
		sum := 0.0
		for i := 0; i < v.Len(); i++ {
			sum += magnitude(v.Index(i), depth+1)
		}
		return sum
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return magnitude(v.Elem(), depth+1)
	case reflect.Struct:
		sum := 0.0
		for i := 0; i < v.NumField(); i++ {
			sum += magnitude(v.Field(i), depth+1)
		}
		return sum
	default:
		return 0
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
