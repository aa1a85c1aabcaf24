package verifier

import (
	"fmt"

	"github.com/pkg/errors"
)

// Verdict classifies one trial.
type Verdict int

// Verdict values.
const (
	Match Verdict = iota
	Mismatch
	ReferenceFaulted
	SubmissionFaulted
	BothFaulted
	Timeout
)

// AllVerdicts lists every verdict in report order.
var AllVerdicts = []Verdict{Match, Mismatch, ReferenceFaulted, SubmissionFaulted, BothFaulted, Timeout}

var verdictNames = map[Verdict]string{
	Match:             "match",
	Mismatch:          "mismatch",
	ReferenceFaulted:  "reference_faulted",
	SubmissionFaulted: "submission_faulted",
	BothFaulted:       "both_faulted",
	Timeout:           "timeout",
}

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Failed reports whether the verdict counts against the submission.
func (v Verdict) Failed() bool {
	return v != Match
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	for k, name := range verdictNames {
		if name == string(text) {
			*v = k
			return nil
		}
	}
	return errors.Errorf("unknown verdict %q", text)
}
