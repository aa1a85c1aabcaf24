package catalog

import (
	"context"
	"math/rand"
	"reflect"
	"strings"
	"time"

	"parity/internal/config"
	"parity/internal/descriptor"
	"parity/internal/generator"
)

// RefWords counts whitespace separated words.
type RefWords struct{}

// Count returns the number of words in s.
func (*RefWords) Count(s string) int {
	return len(strings.Fields(s))
}

// BrokenWords dereferences a nil table on every call.
type BrokenWords struct {
	table *map[string]int
}

// Count always panics.
func (w *BrokenWords) Count(s string) int {
	return (*w.table)[s]
}

// RefDelay answers immediately.
type RefDelay struct{}

// Echo returns n.
func (*RefDelay) Echo(ctx context.Context, n int) (int, error) {
	return n, nil
}

// SlowDelay waits far longer than any configured limit unless canceled.
type SlowDelay struct{}

// Echo returns n after a long wait, or the context error.
func (*SlowDelay) Echo(ctx context.Context, n int) (int, error) {
	select {
	case <-time.After(time.Minute):
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Divisor is the right operand of Div. Its generator yields zero about a
// quarter of the time, independent of complexity.
type Divisor int

// GenerateDivisor draws a divisor in [-(c*c+1), c*c+1].
func GenerateDivisor(c int, r *rand.Rand) (any, error) {
	if r.Intn(4) == 0 {
		return Divisor(0), nil
	}
	d := Divisor(1 + r.Int63n(generator.Bound(c)+1))
	if r.Intn(2) == 0 {
		d = -d
	}
	return d, nil
}

// RefRatio divides integers.
type RefRatio struct{}

// Div returns a/b.
func (*RefRatio) Div(a int, b Divisor) int {
	return a / int(b)
}

// SubRatio divides via floats.
type SubRatio struct{}

// Div returns a/b truncated toward zero.
func (*SubRatio) Div(a int, b Divisor) int {
	return int(float64(a) / float64(b))
}

// NonZeroDivisor rejects inputs that would divide by zero.
func NonZeroDivisor(_ *RefRatio, _ int, b Divisor) bool {
	return b != 0
}

func init() {
	register("faulty", func() Problem {
		return Problem{
			Description: "submission panics with a nil dereference on every call",
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefWords", Type: reflect.TypeOf(&RefWords{})},
				Submission: descriptor.Class{Name: "BrokenWords", Type: reflect.TypeOf(&BrokenWords{})},
				Method:     "Count",
			},
		}
	})
	register("sleeper", func() Problem {
		return Problem{
			Description: "submission exceeds the per-invocation time limit",
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefDelay", Type: reflect.TypeOf(&RefDelay{})},
				Submission: descriptor.Class{Name: "SlowDelay", Type: reflect.TypeOf(&SlowDelay{})},
				Method:     "Echo",
				Timeout:    20 * time.Millisecond,
				Defaults:   &config.RunConfig{TrialsPerRound: 4, MaxComplexity: 1},
			},
		}
	})
	register("divider", func() Problem {
		return Problem{
			Description: "integer division guarded by a non-zero divisor precondition",
			ExpectPass:  true,
			EntryPoint: descriptor.EntryPoint{
				Reference:    descriptor.Class{Name: "RefRatio", Type: reflect.TypeOf(&RefRatio{})},
				Submission:   descriptor.Class{Name: "SubRatio", Type: reflect.TypeOf(&SubRatio{})},
				Method:       "Div",
				Precondition: NonZeroDivisor,
				Generators: []descriptor.GeneratorSpec{
					{Type: reflect.TypeOf(Divisor(0)), Generate: GenerateDivisor},
				},
			},
		}
	})
}
