package catalog

import (
	"math"
	"math/bits"
	"reflect"

	"parity/internal/descriptor"
)

// RefMagnitude is the reference absolute value with saturation.
type RefMagnitude struct{}

// Abs returns |x|, saturating at math.MaxInt.
func (*RefMagnitude) Abs(x int) int {
	switch {
	case x == math.MinInt:
		return math.MaxInt
	case x < 0:
		return -x
	default:
		return x
	}
}

// SubMagnitude computes the same value branch-free.
type SubMagnitude struct{}

// Abs returns |x|, saturating at math.MaxInt.
func (*SubMagnitude) Abs(x int) int {
	if x == math.MinInt {
		return math.MaxInt
	}
	mask := x >> (bits.UintSize - 1)
	return (x ^ mask) - mask
}

// NaiveMagnitude overflows on math.MinInt. Random inputs never reach it.
type NaiveMagnitude struct{}

// Abs returns |x| without saturation.
func (*NaiveMagnitude) Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MagnitudeEdges are the literal values every magnitude run must include.
var MagnitudeEdges = []any{math.MinInt, math.MaxInt, -1, 0}

func magnitudeEntry(sub any) descriptor.EntryPoint {
	return descriptor.EntryPoint{
		Reference:  descriptor.Class{Name: "RefMagnitude", Type: reflect.TypeOf(&RefMagnitude{})},
		Submission: descriptor.Class{Name: reflect.TypeOf(sub).Elem().Name(), Type: reflect.TypeOf(sub)},
		Method:     "Abs",
		EdgeCases:  []descriptor.EdgeCaseSet{{Type: reflect.TypeOf(0), Values: MagnitudeEdges}},
	}
}

func init() {
	register("edge-cases", func() Problem {
		return Problem{
			Description: "saturating abs with integer extremes as edge cases",
			ExpectPass:  true,
			EntryPoint:  magnitudeEntry(&SubMagnitude{}),
		}
	})
	register("edge-cases-wrong", func() Problem {
		return Problem{
			Description: "abs that overflows on math.MinInt, caught only by an edge case",
			EntryPoint:  magnitudeEntry(&NaiveMagnitude{}),
		}
	})
}
