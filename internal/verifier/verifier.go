// Package verifier decides whether a reference outcome and a submission
// outcome are equivalent.
package verifier

import (
	"fmt"
	"reflect"

	"parity/internal/harness"
)

// Output is one side of a trial as seen by the verifier.
type Output struct {
	harness.Outcome
	// Receiver is the instance the operation ran on, after the call.
	// It is nil for static operations.
	Receiver any
	// Args are the arguments passed to the operation, after the call.
	Args []any
}

// Routine is a caller-supplied comparison. Returning nil means Match;
// returning an error or panicking means Mismatch.
type Routine func(ref, sub Output) error

// Decision is a verdict plus a human-readable reason.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Verifier compares outcomes with either default structural equality or a
// routine that replaces it entirely.
type Verifier struct {
	routine Routine
}

// New creates a verifier. A nil routine selects default equality.
func New(routine Routine) *Verifier {
	return &Verifier{routine: routine}
}

// Verify compares the two sides. Faults and timeouts short-circuit: the
// routine only ever sees two normal returns.
func (v *Verifier) Verify(ref, sub Output) Decision {
	switch {
	case ref.Kind == harness.TimedOut && sub.Kind == harness.TimedOut:
		return Decision{Verdict: Timeout, Reason: "both sides timed out"}
	case ref.Kind == harness.TimedOut:
		return Decision{Verdict: Timeout, Reason: "reference timed out: " + ref.Fault.Message}
	case sub.Kind == harness.TimedOut:
		return Decision{Verdict: Timeout, Reason: "submission timed out: " + sub.Fault.Message}
	case ref.Kind == harness.Faulted && sub.Kind == harness.Faulted:
		// A failure around the invocation says nothing about behavior, so
		// it never counts as agreement.
		if ref.Fault.Kind == sub.Fault.Kind && !ref.Fault.Internal && !sub.Fault.Internal {
			return Decision{Verdict: Match, Reason: "both faulted with " + ref.Fault.Kind}
		}
		return Decision{
			Verdict: BothFaulted,
			Reason:  fmt.Sprintf("reference faulted with %s, submission with %s", ref.Fault.Error(), sub.Fault.Error()),
		}
	case ref.Kind == harness.Faulted:
		return Decision{Verdict: ReferenceFaulted, Reason: "reference faulted: " + ref.Fault.Error()}
	case sub.Kind == harness.Faulted:
		return Decision{Verdict: SubmissionFaulted, Reason: "submission faulted: " + sub.Fault.Error()}
	}
	if v.routine != nil {
		return v.runRoutine(ref, sub)
	}
	if !Equal(ref.Values, sub.Values) {
		return Decision{
			Verdict: Mismatch,
			Reason:  fmt.Sprintf("reference returned %s, submission returned %s", format(ref.Values), format(sub.Values)),
		}
	}
	return Decision{Verdict: Match}
}

func (v *Verifier) runRoutine(ref, sub Output) (d Decision) {
	defer func() {
		if p := recover(); p != nil {
			d = Decision{Verdict: Mismatch, Reason: fmt.Sprintf("verification failed: %v", p)}
		}
	}()
	if err := v.routine(ref, sub); err != nil {
		return Decision{Verdict: Mismatch, Reason: "verification failed: " + err.Error()}
	}
	return Decision{Verdict: Match}
}

func format(values []any) string {
	if len(values) == 1 {
		return fmt.Sprintf("%#v", values[0])
	}
	return fmt.Sprintf("%#v", values)
}

// Equal reports whether two result lists are structurally equal.
func Equal(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualValues(reflect.ValueOf(a[i]), reflect.ValueOf(b[i])) {
			return false
		}
	}
	return true
}
