package catalog

import (
	"math/rand"
	"reflect"

	"parity/internal/descriptor"
	"parity/internal/generator"
	"parity/internal/verifier"

	"github.com/pkg/errors"
)

// RefPair stores two integers and refuses default construction.
type RefPair struct {
	a, b int
	ok   bool
}

// NewRefPair returns an initialized pair.
func NewRefPair(a, b int) *RefPair {
	return &RefPair{a: a, b: b, ok: true}
}

// Values returns the stored pair.
func (p *RefPair) Values() (int, int) {
	if !p.ok {
		panic("pair used before initialization")
	}
	return p.a, p.b
}

// Sum returns a+b.
func (p *RefPair) Sum() int {
	return p.a + p.b
}

// SubPair stores the pair as a slice.
type SubPair struct {
	v []int
}

// NewSubPair returns an initialized pair.
func NewSubPair(a, b int) *SubPair {
	return &SubPair{v: []int{a, b}}
}

// Values returns the stored pair.
func (p *SubPair) Values() (int, int) {
	return p.v[0], p.v[1]
}

// Sum returns a+b.
func (p *SubPair) Sum() int {
	return p.v[0] + p.v[1]
}

func fixedPair(newPair func(a, b int) any, a, b int) descriptor.Construction {
	return descriptor.Construction{
		Kind:          descriptor.DesignatedConstruction,
		DefaultUnsafe: true,
		Designated: func(int, *rand.Rand) (any, error) {
			return newPair(a, b), nil
		},
	}
}

// randomPair draws both fields from r so identically seeded sides agree.
func randomPair(newPair func(a, b int) any) descriptor.Construction {
	return descriptor.Construction{
		Kind:          descriptor.DesignatedConstruction,
		DefaultUnsafe: true,
		Designated: func(c int, r *rand.Rand) (any, error) {
			bound := generator.Bound(c)
			a := int(r.Int63n(2*bound+1) - bound)
			b := int(r.Int63n(2*bound+1) - bound)
			return newPair(a, b), nil
		},
	}
}

func refPair(a, b int) any { return NewRefPair(a, b) }
func subPair(a, b int) any { return NewSubPair(a, b) }

// SameSum is a standalone routine comparing the receivers' sums.
func SameSum(ref, sub verifier.Output) error {
	rp, ok := ref.Receiver.(*RefPair)
	if !ok {
		return errors.Errorf("reference receiver is %T", ref.Receiver)
	}
	sp, ok := sub.Receiver.(*SubPair)
	if !ok {
		return errors.Errorf("submission receiver is %T", sub.Receiver)
	}
	if rp.Sum() != sp.Sum() {
		return errors.Errorf("sum %d != %d", rp.Sum(), sp.Sum())
	}
	return nil
}

func init() {
	register("override-ctor", func() Problem {
		return Problem{
			Description: "designated construction (3, 4) on both sides, getter compared",
			ExpectPass:  true,
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefPair", Type: reflect.TypeOf(&RefPair{}), Construction: fixedPair(refPair, 3, 4)},
				Submission: descriptor.Class{Name: "SubPair", Type: reflect.TypeOf(&SubPair{}), Construction: fixedPair(subPair, 3, 4)},
				Method:     "Values",
			},
		}
	})
	register("override-ctor-wrong", func() Problem {
		return Problem{
			Description: "designated construction (3, 4) against (3, 5)",
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefPair", Type: reflect.TypeOf(&RefPair{}), Construction: fixedPair(refPair, 3, 4)},
				Submission: descriptor.Class{Name: "SubPair", Type: reflect.TypeOf(&SubPair{}), Construction: fixedPair(subPair, 3, 5)},
				Method:     "Values",
			},
		}
	})
	register("standalone", func() Problem {
		return Problem{
			Description: "no solution method, receivers compared by a standalone routine",
			ExpectPass:  true,
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefPair", Type: reflect.TypeOf(&RefPair{}), Construction: randomPair(refPair)},
				Submission: descriptor.Class{Name: "SubPair", Type: reflect.TypeOf(&SubPair{}), Construction: randomPair(subPair)},
				Verify:     &descriptor.Verification{Name: "SameSum", Standalone: true, Routine: SameSum},
			},
		}
	})
}
