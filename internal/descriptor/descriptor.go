// Package descriptor holds the resolved entry-point table that the discovery
// pass hands to the checker. A descriptor names the reference and submission
// classes, the operation under test, and every optional escape hatch:
// designated construction, custom generators, edge cases, a verification
// routine, a precondition, and per-entry-point run defaults.
//
// Go has no classes. A Class here is a receiver type plus the package-level
// functions that stand in for its static operations.
package descriptor

import (
	"math/rand"
	"reflect"
	"time"

	"parity/internal/config"
	"parity/internal/generator"
	"parity/internal/verifier"
)

// ConstructionKind selects how instances of a class are built.
type ConstructionKind int

// Construction kinds.
const (
	DefaultConstruction ConstructionKind = iota
	DesignatedConstruction
)

// String implements fmt.Stringer.
func (k ConstructionKind) String() string {
	if k == DesignatedConstruction {
		return "designated"
	}
	return "default"
}

// Factory is a designated construction path. It receives the trial's
// complexity and a random source seeded identically for both sides.
type Factory func(complexity int, r *rand.Rand) (any, error)

// Construction describes the class's construction strategy.
type Construction struct {
	Kind ConstructionKind
	// New is the zero-argument constructor. When nil the default path
	// allocates a zero value of the class type.
	New func() any
	// Designated is the only path used under DesignatedConstruction.
	Designated Factory
	// DefaultUnsafe marks the zero-argument path as never to be used.
	DefaultUnsafe bool
}

// Class is one side of the comparison.
type Class struct {
	Name string
	// Type is the receiver type, usually a pointer to a struct. It may be
	// nil when every operation is static.
	Type         reflect.Type
	Construction Construction
	// Funcs maps static operation names to package-level functions.
	Funcs map[string]any
}

// Label returns the class name, falling back to the type name.
func (c Class) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Type != nil {
		return c.Type.String()
	}
	return "<static>"
}

// GeneratorSpec registers a custom generator for a type.
type GeneratorSpec struct {
	Type     reflect.Type
	Generate generator.Func
}

// EdgeCaseSet lists literal values for a type, in order.
type EdgeCaseSet struct {
	Type   reflect.Type
	Values []any
}

// Verification replaces default equality with a routine.
type Verification struct {
	Name string
	// Standalone routines may run without any solution method; each side's
	// outcome is then an empty normal return and the routine inspects the
	// receivers.
	Standalone bool
	Routine    verifier.Routine
}

// EntryPoint is the immutable description of one operation to check.
type EntryPoint struct {
	Name       string
	Reference  Class
	Submission Class
	// Method names the operation. It may be empty only with a standalone
	// verification.
	Method string
	Static bool
	Verify *Verification
	// Precondition filters generated inputs. For instance operations it is
	// called as func(receiver, args...) bool; for static ones as
	// func(args...) bool. It only sees reference-side values.
	Precondition any
	Generators   []GeneratorSpec
	EdgeCases    []EdgeCaseSet
	// Defaults overrides the non-zero fields of the run configuration.
	Defaults *config.RunConfig
	// Timeout overrides the per-invocation time limit.
	Timeout time.Duration
	// Serial forces one worker and in-order trials.
	Serial bool
}

// Label returns the entry point name, falling back to the method.
func (e EntryPoint) Label() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Method != "" {
		return e.Reference.Label() + "." + e.Method
	}
	return e.Reference.Label()
}

// RunConfig returns base with the entry point's defaults applied.
func (e EntryPoint) RunConfig(base config.RunConfig) config.RunConfig {
	cfg := base
	if e.Defaults != nil {
		cfg = cfg.Merge(*e.Defaults)
	}
	if e.Timeout > 0 {
		cfg.TimeoutMs = int(e.Timeout / time.Millisecond)
		if cfg.TimeoutMs == 0 {
			cfg.TimeoutMs = 1
		}
	}
	return cfg.Normalize()
}

// HasSolution reports whether an operation is invoked per trial.
func (e EntryPoint) HasSolution() bool {
	return e.Method != ""
}
