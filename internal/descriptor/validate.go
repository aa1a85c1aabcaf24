package descriptor

import (
	"reflect"

	"parity/internal/generator"

	"github.com/pkg/errors"
)

var boolType = reflect.TypeOf(false)

// Validate checks the descriptor for setup defects and returns the resolved
// solution signature. Every failure is a *ConfigError.
func (e EntryPoint) Validate() (Signature, error) {
	name := e.Label()
	needReceivers := !e.Static || !e.HasSolution()
	if needReceivers {
		for _, c := range []Class{e.Reference, e.Submission} {
			if c.Type == nil {
				return Signature{}, configErrorf(name, "descriptor", "%s has no receiver type", c.Label())
			}
			if err := checkConstruction(c); err != nil {
				return Signature{}, NewConfigError(name, "construction", err)
			}
		}
	}
	if e.Verify != nil && e.Verify.Routine == nil {
		return Signature{}, configErrorf(name, "verification", "verification %q has no routine", e.Verify.Name)
	}
	if !e.HasSolution() {
		if e.Static {
			return Signature{}, configErrorf(name, "descriptor", "static entry point needs a solution method")
		}
		if e.Verify == nil || !e.Verify.Standalone {
			return Signature{}, configErrorf(name, "descriptor", "no solution method and no standalone verification")
		}
		if e.Precondition != nil {
			return Signature{}, configErrorf(name, "precondition", "precondition needs a solution method")
		}
		return Signature{}, e.validateGenerators(name)
	}

	refSig, err := e.Reference.Signature(e.Method, e.Static)
	if err != nil {
		return Signature{}, NewConfigError(name, "descriptor", err)
	}
	subSig, err := e.Submission.Signature(e.Method, e.Static)
	if err != nil {
		return Signature{}, NewConfigError(name, "descriptor", err)
	}
	if err := compareSignatures(name, refSig, subSig); err != nil {
		return Signature{}, err
	}
	if e.Precondition != nil {
		if err := e.checkPrecondition(name, refSig); err != nil {
			return Signature{}, err
		}
	}
	if err := e.validateGenerators(name); err != nil {
		return Signature{}, err
	}
	return refSig, nil
}

func checkConstruction(c Class) error {
	switch c.Construction.Kind {
	case DesignatedConstruction:
		if c.Construction.Designated == nil {
			return errors.Errorf("%s: designated construction without a factory", c.Label())
		}
	case DefaultConstruction:
		if c.Construction.DefaultUnsafe {
			return errors.Errorf("%s: default construction is marked unsafe and no designated construction is given", c.Label())
		}
	default:
		return errors.Errorf("%s: unknown construction kind %d", c.Label(), int(c.Construction.Kind))
	}
	return nil
}

func compareSignatures(name string, ref, sub Signature) error {
	if len(ref.Params) != len(sub.Params) {
		return configErrorf(name, "signature", "reference takes %d arguments, submission takes %d", len(ref.Params), len(sub.Params))
	}
	for i := range ref.Params {
		rp, sp := ref.Params[i], sub.Params[i]
		if rp.Peer && sp.Peer {
			continue
		}
		if rp.Peer != sp.Peer || rp.Type != sp.Type {
			return configErrorf(name, "signature", "argument %d: reference %s, submission %s", i, rp.Type, sp.Type)
		}
	}
	if len(ref.Results) != len(sub.Results) {
		return configErrorf(name, "signature", "reference returns %d values, submission returns %d", len(ref.Results), len(sub.Results))
	}
	return nil
}

func (e EntryPoint) checkPrecondition(name string, sig Signature) error {
	t := reflect.TypeOf(e.Precondition)
	if t.Kind() != reflect.Func {
		return configErrorf(name, "precondition", "precondition is a %s, not a func", t.Kind())
	}
	if t.NumOut() != 1 || t.Out(0) != boolType {
		return configErrorf(name, "precondition", "precondition must return exactly one bool")
	}
	want := make([]reflect.Type, 0, len(sig.Params)+1)
	if !e.Static {
		want = append(want, e.Reference.Type)
	}
	want = append(want, sig.ParamTypes()...)
	if t.NumIn() != len(want) {
		return configErrorf(name, "precondition", "precondition takes %d arguments, want %d", t.NumIn(), len(want))
	}
	for i, w := range want {
		if !w.AssignableTo(t.In(i)) {
			return configErrorf(name, "precondition", "precondition argument %d is %s, want %s", i, t.In(i), w)
		}
	}
	return nil
}

func (e EntryPoint) validateGenerators(name string) error {
	seen := make(map[reflect.Type]bool, len(e.Generators))
	for _, g := range e.Generators {
		if g.Type == nil || g.Generate == nil {
			return configErrorf(name, "generator", "generator with nil type or func")
		}
		if seen[g.Type] {
			return configErrorf(name, "generator", "duplicate generator for %s", g.Type)
		}
		seen[g.Type] = true
	}
	for _, set := range e.EdgeCases {
		if set.Type == nil {
			return configErrorf(name, "edge cases", "edge case set with nil type")
		}
	}
	return nil
}

// Registry builds the generator registry for the entry point and resolves
// every generated parameter type.
func (e EntryPoint) Registry(sig Signature, maxDepth int) (*generator.Registry, error) {
	name := e.Label()
	reg := generator.NewRegistry(maxDepth)
	for _, g := range e.Generators {
		if err := reg.Register(g.Type, g.Generate); err != nil {
			return nil, NewConfigError(name, "generator", err)
		}
	}
	for _, set := range e.EdgeCases {
		if err := reg.AddEdgeCases(set.Type, set.Values...); err != nil {
			return nil, NewConfigError(name, "edge cases", err)
		}
	}
	for i, p := range sig.Params {
		if p.Peer {
			continue
		}
		if err := reg.Resolve(p.Type); err != nil {
			return nil, configErrorf(name, "generator", "argument %d: %v", i, err)
		}
	}
	return reg, nil
}
