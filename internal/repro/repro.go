// Package repro replays the counterexamples of a written case directory
// against the compiled-in catalog.
package repro

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"parity/internal/catalog"
	"parity/internal/config"
	"parity/internal/report"
	"parity/internal/runner"
	"parity/internal/util"

	"github.com/pkg/errors"
)

// Options configures a reproduction run.
type Options struct {
	CaseDir string
	// Problem overrides the entry point recorded in summary.json, for
	// replaying a case against a fixed submission.
	Problem string
}

// Result pairs a recorded counterexample with its replay.
type Result struct {
	Recorded   report.Counterexample
	Replayed   runner.Trial
	Reproduced bool
}

// Run replays every counterexample in the case directory.
func Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.CaseDir == "" {
		return nil, errors.New("case_dir is required")
	}
	var summary report.Summary
	if err := readJSON(filepath.Join(opts.CaseDir, "summary.json"), &summary); err != nil {
		return nil, errors.Wrap(err, "summary")
	}
	var recorded []report.Counterexample
	if err := readJSON(filepath.Join(opts.CaseDir, "counterexamples.json"), &recorded); err != nil {
		return nil, errors.Wrap(err, "counterexamples")
	}
	name := summary.EntryPoint
	if opts.Problem != "" {
		name = opts.Problem
	}
	p, ok := catalog.Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown problem %q", name)
	}
	cfg := config.Config{Seed: summary.Seed, Workers: 1, Run: summary.Config}
	r := runner.New(p.EntryPoint, cfg)
	util.Infof("replaying %d counterexample(s) entry=%s seed=%d", len(recorded), name, summary.Seed)

	out := make([]Result, 0, len(recorded))
	for _, ce := range recorded {
		in := runner.TrialInputs{
			Index:      ce.Index,
			Round:      ce.Round,
			Complexity: ce.Complexity,
			Seed:       ce.Seed,
			Attempt:    ce.Attempt,
			EdgeRow:    ce.EdgeRow,
		}
		trial, err := r.Replay(ctx, in)
		if err != nil {
			return out, errors.Wrapf(err, "replay trial %d", ce.Index)
		}
		res := Result{
			Recorded:   ce,
			Replayed:   trial,
			Reproduced: trial.Verdict.String() == ce.Verdict,
		}
		if res.Reproduced {
			util.Infof("trial %d reproduced %s: %s", ce.Index, ce.Verdict, trial.Reason)
		} else {
			util.Warnf("trial %d recorded %s, replayed %s", ce.Index, ce.Verdict, trial.Verdict)
		}
		out = append(out, res)
	}
	return out, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
