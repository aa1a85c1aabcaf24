package runner

import (
	"strings"

	"parity/internal/harness"
	"parity/internal/verifier"
)

// classifyTrial buckets a failing trial for the per-run reason counts.
func classifyTrial(t Trial) string {
	switch t.Verdict {
	case verifier.Match:
		return ""
	case verifier.Mismatch:
		return "mismatch"
	case verifier.Timeout:
		if !t.Reference.OK() && t.Reference.Kind == harness.TimedOut {
			return "reference:timeout"
		}
		return "submission:timeout"
	case verifier.ReferenceFaulted:
		return "reference:" + faultClass(t.Reference.Fault)
	case verifier.SubmissionFaulted:
		return "submission:" + faultClass(t.Submission.Fault)
	case verifier.BothFaulted:
		return "both:" + faultClass(t.Submission.Fault)
	default:
		return "other"
	}
}

func faultClass(f *harness.Fault) string {
	if f == nil {
		return "unknown"
	}
	switch {
	case f.Internal:
		return f.Kind
	case f.Kind == "timeout":
		return "timeout"
	case isNilDereference(f):
		return "nil_dereference"
	case isRuntimeError(f):
		return "runtime_error"
	case f.Panic:
		return "panic"
	default:
		return "error"
	}
}

func isNilDereference(f *harness.Fault) bool {
	return strings.Contains(f.Message, "nil pointer dereference")
}

func isRuntimeError(f *harness.Fault) bool {
	return strings.HasPrefix(f.Kind, "runtime.") || strings.Contains(strings.ToLower(f.Message), "runtime error")
}
