// Package generator produces argument values for trials.
//
// A Registry resolves one generator per type: a registered custom Func wins,
// otherwise a reflective default keyed on the type's kind is used. Every
// default scales with the complexity knob so round 0 yields degenerate inputs
// (zero, empty, nil) and later rounds widen ranges and lengths. Edge-case
// literals are kept per type and handed out through PlanEdges.
package generator

import (
	"fmt"
	"math/rand"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// ErrNoGenerator reports a type with neither a custom nor a default generator.
var ErrNoGenerator = errors.New("no generator")

// ErrGeneratorFailed reports a custom generator that panicked or returned an
// unusable value.
var ErrGeneratorFailed = errors.New("generator failed")

// Func is a custom generator. It must return a value assignable to the type it
// is registered for; nil is accepted for nilable types.
type Func func(complexity int, r *rand.Rand) (any, error)

const defaultMaxDepth = 6

// Registry maps types to generators and edge-case literals.
// Registration happens before a run; Generate is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	custom   map[reflect.Type]Func
	edges    map[reflect.Type][]reflect.Value
	maxDepth int
}

// NewRegistry creates a registry. maxDepth bounds nesting for recursive types.
func NewRegistry(maxDepth int) *Registry {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Registry{
		custom:   make(map[reflect.Type]Func),
		edges:    make(map[reflect.Type][]reflect.Value),
		maxDepth: maxDepth,
	}
}

// Register installs a custom generator that fully overrides the default for t,
// including where t appears nested in other types.
func (g *Registry) Register(t reflect.Type, fn Func) error {
	if t == nil || fn == nil {
		return errors.New("register generator: nil type or func")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.custom[t]; ok {
		return errors.Errorf("register generator: duplicate generator for %s", t)
	}
	g.custom[t] = fn
	return nil
}

// AddEdgeCases appends literal edge values for t, keeping their order.
func (g *Registry) AddEdgeCases(t reflect.Type, values ...any) error {
	if t == nil {
		return errors.New("edge cases: nil type")
	}
	converted := make([]reflect.Value, 0, len(values))
	for i, raw := range values {
		v, err := valueOf(t, raw)
		if err != nil {
			return errors.Wrapf(err, "edge case %d for %s", i, t)
		}
		converted = append(converted, v)
	}
	g.mu.Lock()
	g.edges[t] = append(g.edges[t], converted...)
	g.mu.Unlock()
	return nil
}

// EdgeCases returns deep copies of the edge values registered for t.
func (g *Registry) EdgeCases(t reflect.Type) []reflect.Value {
	g.mu.RLock()
	src := g.edges[t]
	g.mu.RUnlock()
	out := make([]reflect.Value, len(src))
	for i, v := range src {
		out[i] = Clone(v)
	}
	return out
}

// EdgeCase returns a deep copy of the idx-th edge value for t.
func (g *Registry) EdgeCase(t reflect.Type, idx int) (reflect.Value, error) {
	g.mu.RLock()
	vals := g.edges[t]
	g.mu.RUnlock()
	if idx < 0 || idx >= len(vals) {
		return reflect.Value{}, errors.Errorf("edge case %d out of range for %s (have %d)", idx, t, len(vals))
	}
	return Clone(vals[idx]), nil
}

// EdgeCount reports how many edge values are registered for t.
func (g *Registry) EdgeCount(t reflect.Type) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges[t])
}

// Resolve checks that every type reachable from t has a generator.
// It is meant to run before any trial so a missing generator surfaces as a
// setup failure.
func (g *Registry) Resolve(t reflect.Type) error {
	return g.resolve(t, t.String(), make(map[reflect.Type]bool))
}

func (g *Registry) resolve(t reflect.Type, path string, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if g.hasCustom(t) || t == timeType {
		return nil
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Ptr, reflect.Slice, reflect.Array:
		return g.resolve(t.Elem(), path+"."+elemLabel(t), seen)
	case reflect.Map:
		if err := g.resolve(t.Key(), path+".key", seen); err != nil {
			return err
		}
		return g.resolve(t.Elem(), path+".value", seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := g.resolve(f.Type, path+"."+f.Name, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Wrapf(ErrNoGenerator, "type %s at %s", t, path)
	}
}

func elemLabel(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		return "*"
	}
	return "[]"
}

// Generate returns a value of type t at the given complexity.
func (g *Registry) Generate(t reflect.Type, complexity int, r *rand.Rand) (reflect.Value, error) {
	if complexity < 0 {
		complexity = 0
	}
	return g.generate(t, complexity, r, 0)
}

func (g *Registry) generate(t reflect.Type, c int, r *rand.Rand, depth int) (reflect.Value, error) {
	if fn, ok := g.lookupCustom(t); ok {
		return callCustom(t, fn, c, r)
	}
	return g.generateDefault(t, c, r, depth)
}

func (g *Registry) hasCustom(t reflect.Type) bool {
	_, ok := g.lookupCustom(t)
	return ok
}

func (g *Registry) lookupCustom(t reflect.Type) (Func, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.custom[t]
	return fn, ok
}

func callCustom(t reflect.Type, fn Func, c int, r *rand.Rand) (out reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrapf(ErrGeneratorFailed, "custom generator for %s panicked: %v", t, p)
		}
	}()
	raw, genErr := fn(c, r)
	if genErr != nil {
		return reflect.Value{}, errors.Wrapf(ErrGeneratorFailed, "custom generator for %s: %v", t, genErr)
	}
	v, convErr := valueOf(t, raw)
	if convErr != nil {
		return reflect.Value{}, errors.Wrapf(ErrGeneratorFailed, "custom generator for %s: %v", t, convErr)
	}
	return v, nil
}

// valueOf converts raw into a value of exactly type t.
func valueOf(t reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		if !nilable(t) {
			return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
		}
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(raw)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("value of type %s is not assignable to %s", v.Type(), t)
	}
	out := reflect.New(t).Elem()
	out.Set(v)
	return out, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
