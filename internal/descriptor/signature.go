package descriptor

import (
	"reflect"

	"parity/internal/harness"

	"github.com/pkg/errors"
)

// Param is one generated argument slot.
type Param struct {
	Type reflect.Type
	// Peer marks a parameter whose type is the class type itself. Peer
	// arguments are built per side rather than generated once.
	Peer bool
}

// Signature is an operation's shape with the receiver and any injected
// context stripped.
type Signature struct {
	Params       []Param
	Context      bool
	Results      []reflect.Type
	ReturnsError bool
}

// ParamTypes returns the parameter types in order.
func (s Signature) ParamTypes() []reflect.Type {
	out := make([]reflect.Type, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Type
	}
	return out
}

// Signature resolves the named operation's signature on the class.
func (c Class) Signature(method string, static bool) (Signature, error) {
	fnType, err := c.operationType(method, static)
	if err != nil {
		return Signature{}, err
	}
	sig := Signature{Context: harness.WantsContext(fnType), ReturnsError: harness.ReturnsError(fnType)}
	start := 0
	if sig.Context {
		start = 1
	}
	for i := start; i < fnType.NumIn(); i++ {
		t := fnType.In(i)
		sig.Params = append(sig.Params, Param{Type: t, Peer: c.Type != nil && t == c.Type})
	}
	results := fnType.NumOut()
	if sig.ReturnsError {
		results--
	}
	for i := 0; i < results; i++ {
		sig.Results = append(sig.Results, fnType.Out(i))
	}
	return sig, nil
}

// operationType returns the function type of the operation without its
// receiver.
func (c Class) operationType(method string, static bool) (reflect.Type, error) {
	if static {
		fn, ok := c.Funcs[method]
		if !ok || fn == nil {
			return nil, errors.Errorf("%s has no static operation %q", c.Label(), method)
		}
		t := reflect.TypeOf(fn)
		if t.Kind() != reflect.Func {
			return nil, errors.Errorf("%s static operation %q is a %s, not a func", c.Label(), method, t.Kind())
		}
		return t, nil
	}
	if c.Type == nil {
		return nil, errors.Errorf("%s has no receiver type for instance operation %q", c.Label(), method)
	}
	m, ok := c.Type.MethodByName(method)
	if !ok {
		return nil, errors.Errorf("%s has no exported method %q", c.Label(), method)
	}
	in := make([]reflect.Type, 0, m.Type.NumIn()-1)
	for i := 1; i < m.Type.NumIn(); i++ {
		in = append(in, m.Type.In(i))
	}
	out := make([]reflect.Type, 0, m.Type.NumOut())
	for i := 0; i < m.Type.NumOut(); i++ {
		out = append(out, m.Type.Out(i))
	}
	return reflect.FuncOf(in, out, m.Type.IsVariadic()), nil
}

// Operation returns the callable for the operation bound to recv.
// recv is ignored for static operations.
func (c Class) Operation(method string, static bool, recv reflect.Value) (reflect.Value, error) {
	if static {
		if _, err := c.operationType(method, true); err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(c.Funcs[method]), nil
	}
	if !recv.IsValid() {
		return reflect.Value{}, errors.Errorf("%s: no receiver for %q", c.Label(), method)
	}
	fn := recv.MethodByName(method)
	if !fn.IsValid() {
		return reflect.Value{}, errors.Errorf("%s has no exported method %q", c.Label(), method)
	}
	return fn, nil
}
