package runner

import (
	"testing"

	"parity/internal/harness"
	"parity/internal/verifier"
)

func TestClassifyTrial(t *testing.T) {
	ok := harness.Outcome{Kind: harness.NormalReturn}
	fault := func(kind, msg string, panicked bool) harness.Outcome {
		return harness.Outcome{Kind: harness.Faulted, Fault: &harness.Fault{Kind: kind, Message: msg, Panic: panicked}}
	}
	timeout := harness.Outcome{Kind: harness.TimedOut, Fault: &harness.Fault{Kind: "timeout", Message: "exceeded 1s"}}
	cases := []struct {
		name string
		t    Trial
		want string
	}{
		{"match", Trial{Reference: ok, Submission: ok, Verdict: verifier.Match}, ""},
		{"mismatch", Trial{Reference: ok, Submission: ok, Verdict: verifier.Mismatch}, "mismatch"},
		{"sub nil", Trial{Reference: ok, Submission: fault("runtime.errorString", "runtime error: invalid memory address or nil pointer dereference", true), Verdict: verifier.SubmissionFaulted}, "submission:nil_dereference"},
		{"sub bounds", Trial{Reference: ok, Submission: fault("runtime.boundsError", "runtime error: index out of range [3] with length 2", true), Verdict: verifier.SubmissionFaulted}, "submission:runtime_error"},
		{"sub panic", Trial{Reference: ok, Submission: fault("string", "boom", true), Verdict: verifier.SubmissionFaulted}, "submission:panic"},
		{"sub error", Trial{Reference: ok, Submission: fault("errors.errorString", "bad input", false), Verdict: verifier.SubmissionFaulted}, "submission:error"},
		{"ref construction", Trial{Reference: harness.NewFaulted(harness.FaultConstruction, "nil"), Submission: ok, Verdict: verifier.ReferenceFaulted}, "reference:construction"},
		{"both construction", Trial{Reference: harness.NewFaulted(harness.FaultConstruction, "a"), Submission: harness.NewFaulted(harness.FaultConstruction, "b"), Verdict: verifier.BothFaulted}, "both:construction"},
		{"both", Trial{Reference: fault("string", "a", true), Submission: fault("errors.errorString", "b", false), Verdict: verifier.BothFaulted}, "both:error"},
		{"sub timeout", Trial{Reference: ok, Submission: timeout, Verdict: verifier.Timeout}, "submission:timeout"},
		{"ref timeout", Trial{Reference: timeout, Submission: ok, Verdict: verifier.Timeout}, "reference:timeout"},
	}
	for _, tc := range cases {
		if got := classifyTrial(tc.t); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
