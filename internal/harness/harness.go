// Package harness invokes one operation under a time limit and captures what
// happened as an Outcome. Panics and non-nil trailing errors become Faulted,
// an expired limit becomes TimedOut; neither escapes to the caller.
package harness

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"time"
)

// Kind tags an Outcome.
type Kind int

// Outcome kinds.
const (
	NormalReturn Kind = iota
	Faulted
	TimedOut
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case NormalReturn:
		return "normal"
	case Faulted:
		return "faulted"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fault describes why an invocation did not return normally.
type Fault struct {
	// Kind is the dynamic type of the panic value or returned error, or a
	// fixed label such as "timeout" or "construction".
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Panic is true when the fault was a recovered panic.
	Panic bool `json:"panic,omitempty"`
	// Internal marks a failure around the invocation rather than inside
	// the operation, such as a receiver that could not be built.
	Internal bool   `json:"internal,omitempty"`
	Stack    string `json:"-"`
}

// Labels for faults raised around an invocation.
const (
	FaultConstruction = "construction"
	FaultOperation    = "operation"
)

// Error implements error.
func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return f.Kind + ": " + f.Message
}

// Outcome is the captured result of one invocation. It is never mutated
// after Invoke returns.
type Outcome struct {
	Kind Kind `json:"kind"`
	// Values holds the results, excluding a trailing error.
	Values   []any         `json:"values,omitempty"`
	Fault    *Fault        `json:"fault,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the invocation returned normally.
func (o Outcome) OK() bool {
	return o.Kind == NormalReturn
}

// String summarizes the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case NormalReturn:
		return fmt.Sprintf("returned %v", o.Values)
	case Faulted:
		return "faulted: " + o.Fault.Error()
	default:
		return fmt.Sprintf("timed out after %s", o.Duration)
	}
}

// NewFaulted builds a Faulted outcome for failures that happen around an
// invocation, such as receiver construction.
func NewFaulted(kind, message string) Outcome {
	return Outcome{Kind: Faulted, Fault: &Fault{Kind: kind, Message: message, Internal: true}}
}

// Empty is the outcome used when no operation is invoked.
func Empty() Outcome {
	return Outcome{Kind: NormalReturn}
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// WantsContext reports whether fn takes a leading context.Context.
func WantsContext(fn reflect.Type) bool {
	return fn.NumIn() > 0 && fn.In(0) == contextType
}

// ReturnsError reports whether fn's last result is an error.
func ReturnsError(fn reflect.Type) bool {
	return fn.NumOut() > 0 && fn.Out(fn.NumOut()-1) == errorType
}

// Harness runs invocations. The zero value is ready to use.
type Harness struct {
	// DefaultLimit applies when Invoke is given a non-positive limit.
	DefaultLimit time.Duration
}

// New creates a harness with the given fallback time limit.
func New(defaultLimit time.Duration) *Harness {
	return &Harness{DefaultLimit: defaultLimit}
}

// Invoke calls fn with args, which must not include an injected context.
// The call runs on its own goroutine under a context derived from ctx with
// the time limit applied. If the limit expires first the goroutine is
// abandoned and TimedOut is returned; operations that take a context observe
// its cancellation.
func (h *Harness) Invoke(ctx context.Context, fn reflect.Value, args []reflect.Value, limit time.Duration) Outcome {
	if limit <= 0 {
		limit = h.DefaultLimit
	}
	if limit <= 0 {
		limit = time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	in := args
	if WantsContext(fn.Type()) {
		in = make([]reflect.Value, 0, len(args)+1)
		in = append(in, reflect.ValueOf(callCtx))
		in = append(in, args...)
	}

	done := make(chan Outcome, 1)
	start := time.Now()
	go func() {
		done <- call(fn, in)
	}()

	select {
	case out := <-done:
		// A call that returns after its context expired, typically by
		// observing the cancellation, still counts as timed out.
		if callCtx.Err() == nil {
			out.Duration = time.Since(start)
			return out
		}
	case <-callCtx.Done():
	}
	return timedOut(ctx, limit, time.Since(start))
}

func timedOut(parent context.Context, limit, elapsed time.Duration) Outcome {
	msg := fmt.Sprintf("exceeded %s", limit)
	if parent.Err() != nil {
		msg = "run canceled: " + parent.Err().Error()
	}
	return Outcome{
		Kind:     TimedOut,
		Fault:    &Fault{Kind: "timeout", Message: msg},
		Duration: elapsed,
	}
}

func call(fn reflect.Value, in []reflect.Value) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Kind: Faulted, Fault: panicFault(p)}
		}
	}()
	results := Call(fn, in)
	if ReturnsError(fn.Type()) {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if !last.IsNil() {
			err := last.Interface().(error)
			return Outcome{Kind: Faulted, Fault: &Fault{Kind: typeName(err), Message: err.Error()}}
		}
	}
	values := make([]any, len(results))
	for i, r := range results {
		values[i] = r.Interface()
	}
	return Outcome{Kind: NormalReturn, Values: values}
}

// Call calls fn with in. For a variadic fn the last element of in is the
// whole variadic slice.
func Call(fn reflect.Value, in []reflect.Value) []reflect.Value {
	if fn.Type().IsVariadic() {
		return fn.CallSlice(in)
	}
	return fn.Call(in)
}

func panicFault(p any) *Fault {
	msg := fmt.Sprint(p)
	if err, ok := p.(error); ok {
		msg = err.Error()
	}
	return &Fault{
		Kind:    typeName(p),
		Message: msg,
		Panic:   true,
		Stack:   trimStack(string(debug.Stack())),
	}
}

func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	return strings.TrimPrefix(name, "*")
}

// trimStack drops the recovery frames so the stack starts at the panic site.
func trimStack(stack string) string {
	const marker = "panic("
	if idx := strings.Index(stack, marker); idx >= 0 {
		if nl := strings.Index(stack[idx:], "\n"); nl >= 0 {
			return stack[idx+nl+1:]
		}
	}
	return stack
}
