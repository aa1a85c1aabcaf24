// Package builder constructs receivers for the reference and submission
// classes. The same rule applies to either side: a designated factory is the
// only path when present, otherwise the zero-argument constructor or a zero
// value is used.
package builder

import (
	"math/rand"
	"reflect"

	"parity/internal/descriptor"

	"github.com/pkg/errors"
)

var (
	// ErrConstruction reports a constructor that failed, panicked or
	// returned an unusable value during a trial.
	ErrConstruction = errors.New("construction failed")
	// ErrUnsafeDefault reports an attempt to use a default path marked unsafe.
	ErrUnsafeDefault = errors.New("default construction is unsafe")
)

// Builder constructs instances. The zero value is ready to use.
type Builder struct{}

// New creates a builder.
func New() *Builder {
	return &Builder{}
}

// Build returns a fresh instance of c. Designated factories receive
// complexity and r; the default path consumes neither.
func (b *Builder) Build(c descriptor.Class, complexity int, r *rand.Rand) (v reflect.Value, err error) {
	if c.Type == nil {
		return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s has no receiver type", c.Label())
	}
	defer func() {
		if p := recover(); p != nil {
			v = reflect.Value{}
			err = errors.Wrapf(ErrConstruction, "%s %s construction panicked: %v", c.Label(), c.Construction.Kind, p)
		}
	}()
	switch c.Construction.Kind {
	case descriptor.DesignatedConstruction:
		if c.Construction.Designated == nil {
			return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s has no designated factory", c.Label())
		}
		raw, ferr := c.Construction.Designated(complexity, r)
		if ferr != nil {
			return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s designated construction: %v", c.Label(), ferr)
		}
		return convert(c, raw)
	default:
		if c.Construction.DefaultUnsafe {
			return reflect.Value{}, errors.Wrap(ErrUnsafeDefault, c.Label())
		}
		if c.Construction.New != nil {
			return convert(c, c.Construction.New())
		}
		return zero(c.Type), nil
	}
}

// zero allocates a usable zero instance; pointer types point at a zero value.
func zero(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem())
	}
	return reflect.New(t).Elem()
}

func convert(c descriptor.Class, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s constructor returned nil", c.Label())
	}
	v := reflect.ValueOf(raw)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s constructor returned a nil %s", c.Label(), v.Type())
	}
	if !v.Type().AssignableTo(c.Type) {
		return reflect.Value{}, errors.Wrapf(ErrConstruction, "%s constructor returned %s, want %s", c.Label(), v.Type(), c.Type)
	}
	out := reflect.New(c.Type).Elem()
	out.Set(v)
	return out, nil
}
