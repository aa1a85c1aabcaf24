package repro

import (
	"context"
	"testing"

	"parity/internal/catalog"
	"parity/internal/config"
	"parity/internal/report"
	"parity/internal/runner"
)

func writeCase(t *testing.T, problem string) report.Case {
	t.Helper()
	p, ok := catalog.Lookup(problem)
	if !ok {
		t.Fatalf("problem %s not registered", problem)
	}
	cfg := config.Config{
		Seed:    7,
		Workers: 4,
		Run:     config.RunConfig{TrialsPerRound: 8, MaxComplexity: 2},
	}
	res, err := runner.New(p.EntryPoint, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Counterexamples) == 0 {
		t.Fatalf("expected counterexamples from %s", problem)
	}
	c, _, err := report.New(t.TempDir()).Write(res, nil, false)
	if err != nil {
		t.Fatalf("write case: %v", err)
	}
	return c
}

func TestRunReproducesCounterexamples(t *testing.T) {
	c := writeCase(t, "adder-wrong")
	results, err := Run(context.Background(), Options{CaseDir: c.Dir})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected replayed counterexamples")
	}
	for _, r := range results {
		if !r.Reproduced {
			t.Fatalf("trial %d not reproduced: recorded %s, replayed %s", r.Recorded.Index, r.Recorded.Verdict, r.Replayed.Verdict)
		}
		if r.Replayed.Inputs.Seed != r.Recorded.Seed {
			t.Fatalf("trial %d replayed with seed %d, want %d", r.Recorded.Index, r.Replayed.Inputs.Seed, r.Recorded.Seed)
		}
	}
}

func TestRunReproducesEdgeCounterexample(t *testing.T) {
	c := writeCase(t, "edge-cases-wrong")
	results, err := Run(context.Background(), Options{CaseDir: c.Dir})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	edge := false
	for _, r := range results {
		if !r.Reproduced {
			t.Fatalf("trial %d not reproduced", r.Recorded.Index)
		}
		edge = edge || r.Replayed.Inputs.Edge()
	}
	if !edge {
		t.Fatalf("expected an edge counterexample")
	}
}

func TestRunAgainstFixedSubmission(t *testing.T) {
	c := writeCase(t, "adder-wrong")
	results, err := Run(context.Background(), Options{CaseDir: c.Dir, Problem: "adder"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for _, r := range results {
		if r.Reproduced || r.Replayed.Verdict.Failed() {
			t.Fatalf("trial %d should pass against the fixed submission, got %s", r.Recorded.Index, r.Replayed.Verdict)
		}
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{name: "missing dir", opts: Options{}},
		{name: "no summary", opts: Options{CaseDir: t.TempDir()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(context.Background(), tc.opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	c := writeCase(t, "adder-wrong")
	if _, err := Run(context.Background(), Options{CaseDir: c.Dir, Problem: "no-such-problem"}); err == nil {
		t.Fatalf("expected unknown problem error")
	}

	edge := writeCase(t, "edge-cases-wrong")
	if _, err := Run(context.Background(), Options{CaseDir: edge.Dir, Problem: "adder"}); err == nil {
		t.Fatalf("expected error replaying an edge row against a different problem")
	}
}
