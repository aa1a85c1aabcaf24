package catalog

import (
	"reflect"

	"parity/internal/descriptor"
)

// RefAdder is the reference adder.
type RefAdder struct{}

// Add returns a+b.
func (*RefAdder) Add(a, b int) int {
	return a + b
}

// SubAdder computes the same sum by subtraction.
type SubAdder struct{}

// Add returns a+b.
func (*SubAdder) Add(a, b int) int {
	return b - (-a)
}

// WrongAdder is off by one whenever the operands are equal.
type WrongAdder struct{}

// Add returns a+b, except 2a+1 when a == b.
func (*WrongAdder) Add(a, b int) int {
	if a == b {
		return 2*a + 1
	}
	return a + b
}

func init() {
	register("adder", func() Problem {
		return Problem{
			Description: "integer addition, equivalent implementations",
			ExpectPass:  true,
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefAdder", Type: reflect.TypeOf(&RefAdder{})},
				Submission: descriptor.Class{Name: "SubAdder", Type: reflect.TypeOf(&SubAdder{})},
				Method:     "Add",
			},
		}
	})
	register("adder-wrong", func() Problem {
		return Problem{
			Description: "integer addition, submission wrong on equal operands",
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefAdder", Type: reflect.TypeOf(&RefAdder{})},
				Submission: descriptor.Class{Name: "WrongAdder", Type: reflect.TypeOf(&WrongAdder{})},
				Method:     "Add",
			},
		}
	})
}
