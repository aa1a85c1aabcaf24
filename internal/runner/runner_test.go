package runner

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"

	"parity/internal/catalog"
	"parity/internal/config"
	"parity/internal/descriptor"
	"parity/internal/verifier"

	"github.com/pkg/errors"
)

func testConfig(workers int) config.Config {
	return config.Config{
		Seed:    42,
		Workers: workers,
		Run: config.RunConfig{
			TrialsPerRound: 16,
			MaxComplexity:  4,
		},
	}
}

func problem(t *testing.T, name string) descriptor.EntryPoint {
	t.Helper()
	p, ok := catalog.Lookup(name)
	if !ok {
		t.Fatalf("unknown catalog problem %q", name)
	}
	return p.EntryPoint
}

func mustRun(t *testing.T, ep descriptor.EntryPoint, cfg config.Config) *RunResult {
	t.Helper()
	res, err := New(ep, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run %s: %v", ep.Label(), err)
	}
	if res == nil {
		t.Fatalf("run %s: nil result", ep.Label())
	}
	return res
}

func TestRunEquivalentPasses(t *testing.T) {
	res := mustRun(t, problem(t, "adder"), testConfig(4))
	if !res.Passed() {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
	if res.Total != 5*16 || res.Counts[verifier.Match] != res.Total {
		t.Fatalf("unexpected counts total=%d %s", res.Total, res.CountsString())
	}
	if len(res.Rounds) != 5 {
		t.Fatalf("expected 5 rounds, got %d", len(res.Rounds))
	}
	if res.Rounds[0].MaxMagnitude != 0 {
		t.Fatalf("round 0 should be degenerate, max magnitude %v", res.Rounds[0].MaxMagnitude)
	}
	if res.Rounds[4].MeanMagnitude <= res.Rounds[1].MeanMagnitude {
		t.Fatalf("magnitude should grow with complexity: %+v", res.Rounds)
	}
	for i, tr := range res.Trials {
		if tr.Inputs.Index != i {
			t.Fatalf("trial log not ordered by index at %d: %d", i, tr.Inputs.Index)
		}
	}
	if res.ID == "" || res.Seed != 42 {
		t.Fatalf("unexpected identity id=%q seed=%d", res.ID, res.Seed)
	}
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	for _, name := range []string{"adder-wrong", "edge-cases-wrong", "divider"} {
		ep := problem(t, name)
		a := mustRun(t, ep, testConfig(1))
		b := mustRun(t, ep, testConfig(8))
		if a.Total != b.Total {
			t.Fatalf("%s: totals differ %d vs %d", name, a.Total, b.Total)
		}
		if !reflect.DeepEqual(a.Verdicts(), b.Verdicts()) {
			t.Fatalf("%s: verdict sequences differ", name)
		}
		for i := range a.Trials {
			ia, ib := a.Trials[i].Inputs, b.Trials[i].Inputs
			if ia.Seed != ib.Seed || !reflect.DeepEqual(ia.Args, ib.Args) {
				t.Fatalf("%s: trial %d inputs differ: %+v vs %+v", name, i, ia, ib)
			}
		}
	}
}

func TestRunSeedChangesInputs(t *testing.T) {
	ep := problem(t, "adder")
	cfg := testConfig(2)
	a := mustRun(t, ep, cfg)
	cfg.Seed = 43
	b := mustRun(t, ep, cfg)
	same := true
	for i := range a.Trials {
		if !reflect.DeepEqual(a.Trials[i].Inputs.Args, b.Trials[i].Inputs.Args) {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical inputs")
	}
}

func TestRunReflexive(t *testing.T) {
	cases := []struct {
		name string
		ep   descriptor.EntryPoint
	}{
		{
			name: "adder",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&catalog.RefAdder{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.RefAdder{})},
				Method:     "Add",
			},
		},
		{
			name: "magnitude",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&catalog.RefMagnitude{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.RefMagnitude{})},
				Method:     "Abs",
				EdgeCases:  []descriptor.EdgeCaseSet{{Type: reflect.TypeOf(0), Values: catalog.MagnitudeEdges}},
			},
		},
		{
			name: "words",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&catalog.RefWords{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.RefWords{})},
				Method:     "Count",
			},
		},
		{
			name: "faulty-self",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&catalog.BrokenWords{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.BrokenWords{})},
				Method:     "Count",
			},
		},
	}
	for _, tc := range cases {
		res := mustRun(t, tc.ep, testConfig(4))
		if res.Total == 0 || res.Counts[verifier.Match] != res.Total {
			t.Fatalf("%s: expected all matches, got %s", tc.name, res.CountsString())
		}
	}
}

func TestRunEdgeCasesIncluded(t *testing.T) {
	cfg := testConfig(2)
	cfg.Run.TrialsPerRound = 2
	cfg.Run.MaxComplexity = 0
	res := mustRun(t, problem(t, "edge-cases"), cfg)
	if res.Total != len(catalog.MagnitudeEdges)+2 {
		t.Fatalf("expected edge trials plus random trials, got %d", res.Total)
	}
	seen := make(map[int]bool)
	for _, tr := range res.Trials {
		if tr.Inputs.Edge() {
			seen[tr.Inputs.Args[0].(int)] = true
		}
	}
	for _, v := range catalog.MagnitudeEdges {
		if !seen[v.(int)] {
			t.Fatalf("edge value %v never exercised", v)
		}
	}
	if !res.Passed() {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
}

func TestRunEdgeCaseFindsOverflow(t *testing.T) {
	res := mustRun(t, problem(t, "edge-cases-wrong"), testConfig(4))
	if res.Counts[verifier.Mismatch] != 1 {
		t.Fatalf("expected exactly one mismatch, got %s", res.CountsString())
	}
	first, ok := res.FirstByVerdict[verifier.Mismatch]
	if !ok || first.Inputs.Args[0] != math.MinInt || !first.Inputs.Edge() {
		t.Fatalf("unexpected counterexample %+v", first.Inputs)
	}
	if len(res.Counterexamples) != 1 {
		t.Fatalf("expected one counterexample, got %d", len(res.Counterexamples))
	}
}

func TestRunSubmissionAlwaysFaults(t *testing.T) {
	res := mustRun(t, problem(t, "faulty"), testConfig(4))
	if res.Total == 0 || res.Counts[verifier.SubmissionFaulted] != res.Total {
		t.Fatalf("expected only submission faults, got %s", res.CountsString())
	}
	if res.Reasons["submission:nil_dereference"] != int64(res.Total) {
		t.Fatalf("unexpected reasons %v", res.Reasons)
	}
	if len(res.Counterexamples) != config.DefaultRunConfig().CounterexampleLimit {
		t.Fatalf("counterexamples not capped: %d", len(res.Counterexamples))
	}
}

func TestRunFailingRoutineAlwaysMismatches(t *testing.T) {
	ep := problem(t, "adder")
	ep.Verify = &descriptor.Verification{
		Name: "never",
		Routine: func(ref, sub verifier.Output) error {
			return errors.New("rejected")
		},
	}
	res := mustRun(t, ep, testConfig(4))
	if res.Total == 0 || res.Counts[verifier.Mismatch] != res.Total {
		t.Fatalf("expected only mismatches, got %s", res.CountsString())
	}
	if res.Reasons["mismatch"] != int64(res.Total) {
		t.Fatalf("unexpected reasons %v", res.Reasons)
	}
}

func TestRunDesignatedConstruction(t *testing.T) {
	res := mustRun(t, problem(t, "override-ctor"), testConfig(2))
	if !res.Passed() {
		t.Fatalf("(3,4) vs (3,4) should match, got %s", res.CountsString())
	}
	res = mustRun(t, problem(t, "override-ctor-wrong"), testConfig(2))
	if res.Total == 0 || res.Counts[verifier.Mismatch] != res.Total {
		t.Fatalf("(3,4) vs (3,5) should mismatch, got %s", res.CountsString())
	}
}

func TestRunStandaloneWithoutSolution(t *testing.T) {
	res := mustRun(t, problem(t, "standalone"), testConfig(4))
	if !res.Passed() {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
	for _, tr := range res.Trials {
		if !tr.Reference.OK() || len(tr.Reference.Values) != 0 {
			t.Fatalf("standalone trial should have an empty normal outcome: %+v", tr.Reference)
		}
	}
}

func TestRunFailFastIsDeterministic(t *testing.T) {
	for _, workers := range []int{1, 8} {
		cfg := testConfig(workers)
		cfg.Run.FailFastThreshold = 3
		res := mustRun(t, problem(t, "adder-wrong"), cfg)
		if !res.StoppedEarly || res.Total != 3 || res.Counts[verifier.Mismatch] != 3 {
			t.Fatalf("workers=%d: unexpected fail-fast result total=%d %s", workers, res.Total, res.CountsString())
		}
		for i, tr := range res.Trials {
			if tr.Inputs.Index != i {
				t.Fatalf("workers=%d: trial %d has index %d", workers, i, tr.Inputs.Index)
			}
		}
	}
}

func TestRunCanceledReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	ep := problem(t, "adder")
	ep.Serial = true
	ep.Precondition = func(_ *catalog.RefAdder, a, b int) bool {
		if calls.Add(1) == 5 {
			cancel()
		}
		return true
	}
	res, err := New(ep, testConfig(4)).Run(ctx)
	if err != nil {
		t.Fatalf("cancellation should not be an error: %v", err)
	}
	if !res.Canceled || res.Passed() {
		t.Fatalf("expected canceled result, got %+v", res)
	}
	if res.Total != 4 || len(res.Trials) != 4 {
		t.Fatalf("expected the four trials before cancellation, got %d", res.Total)
	}
	if len(res.Rounds) != 1 || res.Rounds[0].Trials != 4 {
		t.Fatalf("unexpected round stats %+v", res.Rounds)
	}
}

func TestRunPreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(problem(t, "adder"), testConfig(2)).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Canceled || res.Total != 0 || res.Counts == nil {
		t.Fatalf("expected empty canceled result, got %+v", res)
	}
}

func TestRunGivesUp(t *testing.T) {
	ep := problem(t, "adder")
	ep.Precondition = func(_ *catalog.RefAdder, a, b int) bool { return false }
	cfg := testConfig(1)
	cfg.Run.MaxDiscards = 10
	res := mustRun(t, ep, cfg)
	if !res.GaveUp || res.Total != 0 || res.Discarded != 10 {
		t.Fatalf("expected give-up after 10 discards, got gave_up=%t total=%d discarded=%d", res.GaveUp, res.Total, res.Discarded)
	}
	if res.Passed() {
		t.Fatalf("a run that gave up must not pass")
	}
}

func TestRunPreconditionRetries(t *testing.T) {
	res := mustRun(t, problem(t, "divider"), testConfig(4))
	if !res.Passed() {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
	if res.Discarded == 0 || res.GaveUp {
		t.Fatalf("expected some discards without giving up, got %d", res.Discarded)
	}
	if res.Total != 5*16 {
		t.Fatalf("discarded inputs should be replaced, got %d trials", res.Total)
	}
	retried := false
	for _, tr := range res.Trials {
		if tr.Inputs.Attempt > 0 {
			retried = true
		}
	}
	if !retried {
		t.Fatalf("no trial records a retry attempt")
	}
}

func TestRunSerialStaticState(t *testing.T) {
	catalog.ResetTallies()
	res := mustRun(t, problem(t, "counter"), testConfig(8))
	if !res.Passed() {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
	if res.Total != 5*16 {
		t.Fatalf("unexpected total %d", res.Total)
	}
}

func TestRunTimeout(t *testing.T) {
	res := mustRun(t, problem(t, "sleeper"), testConfig(4))
	if res.Total != 2*4 || res.Counts[verifier.Timeout] != res.Total {
		t.Fatalf("expected only timeouts, got total=%d %s", res.Total, res.CountsString())
	}
	if res.Reasons["submission:timeout"] != int64(res.Total) {
		t.Fatalf("unexpected reasons %v", res.Reasons)
	}
	if res.Config.TimeoutMs != 20 {
		t.Fatalf("entry point timeout not applied: %d", res.Config.TimeoutMs)
	}
}

func TestRunTrialLogLimit(t *testing.T) {
	cfg := testConfig(2)
	cfg.Run.TrialLogLimit = 5
	res := mustRun(t, problem(t, "adder"), cfg)
	if len(res.Trials) != 5 || res.Total != 5*16 {
		t.Fatalf("log limit should cap Trials only, got %d of %d", len(res.Trials), res.Total)
	}
}

type tripleAdder struct{}

func (*tripleAdder) Add(a, b, c int) int { return a + b + c }

type channelSink struct{}

func (*channelSink) Add(ch chan int) int { return len(ch) }

type richAdder struct{}

func (*richAdder) Add(a, b int) int { return a + b }
func (*richAdder) Sub(a, b int) int { return a - b }

func TestRunConfigErrors(t *testing.T) {
	adder := descriptor.Class{Type: reflect.TypeOf(&catalog.RefAdder{})}
	cases := []struct {
		name string
		ep   descriptor.EntryPoint
		cfg  func(*config.Config)
	}{
		{
			name: "missing method",
			ep:   descriptor.EntryPoint{Reference: adder, Submission: adder, Method: "Multiply"},
		},
		{
			name: "arity mismatch",
			ep: descriptor.EntryPoint{
				Reference:  adder,
				Submission: descriptor.Class{Type: reflect.TypeOf(&tripleAdder{})},
				Method:     "Add",
			},
		},
		{
			name: "no generator",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&channelSink{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&channelSink{})},
				Method:     "Add",
			},
		},
		{
			name: "unsafe default",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&catalog.RefPair{}), Construction: descriptor.Construction{DefaultUnsafe: true}},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.SubPair{})},
				Method:     "Sum",
			},
		},
		{
			name: "no solution",
			ep:   descriptor.EntryPoint{Reference: adder, Submission: adder},
		},
		{
			name: "bad precondition",
			ep: descriptor.EntryPoint{
				Reference:    adder,
				Submission:   adder,
				Method:       "Add",
				Precondition: func(a, b int) bool { return true },
			},
		},
		{
			name: "design mismatch",
			ep: descriptor.EntryPoint{
				Reference:  descriptor.Class{Type: reflect.TypeOf(&richAdder{})},
				Submission: descriptor.Class{Type: reflect.TypeOf(&catalog.SubAdder{})},
				Method:     "Add",
			},
			cfg: func(c *config.Config) { c.Run.CheckDesign = true },
		},
	}
	for _, tc := range cases {
		cfg := testConfig(2)
		if tc.cfg != nil {
			tc.cfg(&cfg)
		}
		res, err := New(tc.ep, cfg).Run(context.Background())
		if err == nil {
			t.Fatalf("%s: expected configuration error", tc.name)
		}
		if !errors.Is(err, descriptor.ErrConfig) {
			t.Fatalf("%s: expected ErrConfig, got %v", tc.name, err)
		}
		if res != nil {
			t.Fatalf("%s: no trials should run on a configuration error", tc.name)
		}
	}
}

func TestRunGeneratorFailureMidRun(t *testing.T) {
	ep := problem(t, "adder")
	ep.Generators = []descriptor.GeneratorSpec{{
		Type: reflect.TypeOf(0),
		Generate: func(c int, r *rand.Rand) (any, error) {
			if c >= 2 {
				return nil, errors.New("exhausted")
			}
			return r.Intn(10), nil
		},
	}}
	res, err := New(ep, testConfig(1)).Run(context.Background())
	if !errors.Is(err, descriptor.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if res == nil || res.Total != 2*16 {
		t.Fatalf("expected the partial result of rounds 0 and 1, got %+v", res)
	}
}

func TestReplayReproducesCounterexample(t *testing.T) {
	ep := problem(t, "adder-wrong")
	cfg := testConfig(4)
	res := mustRun(t, ep, cfg)
	if len(res.Counterexamples) == 0 {
		t.Fatalf("expected counterexamples")
	}
	want := res.Counterexamples[len(res.Counterexamples)-1]
	got, err := New(ep, cfg).Replay(context.Background(), want.Inputs)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got.Verdict != want.Verdict || !reflect.DeepEqual(got.Inputs.Args, want.Inputs.Args) {
		t.Fatalf("replay diverged: %+v vs %+v", got, want)
	}
}

func TestReplayRejectsForeignEdgeRow(t *testing.T) {
	ep := problem(t, "edge-cases")
	cases := []struct {
		name string
		row  []int
	}{
		{"index past edge values", []int{9}},
		{"row longer than arguments", []int{0, 1}},
	}
	for _, tc := range cases {
		_, err := New(ep, testConfig(1)).Replay(context.Background(), TrialInputs{Index: 0, Seed: 1, EdgeRow: tc.row})
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

type refTotal struct{}

func (refTotal) Sum(xs ...int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

type constTotal struct{}

func (constTotal) Sum(xs ...int) int { return 12345 }

func totalEntry(sub any) descriptor.EntryPoint {
	return descriptor.EntryPoint{
		Name:       "total",
		Reference:  descriptor.Class{Name: "refTotal", Type: reflect.TypeOf(refTotal{})},
		Submission: descriptor.Class{Name: reflect.TypeOf(sub).Name(), Type: reflect.TypeOf(sub)},
		Method:     "Sum",
	}
}

func TestRunVariadicOperation(t *testing.T) {
	ep := totalEntry(refTotal{})
	var checked atomic.Int32
	ep.Precondition = func(_ refTotal, xs ...int) bool {
		checked.Add(1)
		return len(xs) < 1000
	}
	res := mustRun(t, ep, testConfig(4))
	if !res.Passed() || res.Counts[verifier.Match] != res.Total {
		t.Fatalf("expected pass, got %s", res.CountsString())
	}
	if checked.Load() == 0 || res.Discarded != 0 {
		t.Fatalf("precondition not applied: calls=%d discarded=%d", checked.Load(), res.Discarded)
	}
	for _, tr := range res.Trials {
		if !tr.Reference.OK() {
			t.Fatalf("variadic reference call faulted: %s", tr.Reference)
		}
	}

	res = mustRun(t, totalEntry(constTotal{}), testConfig(4))
	if res.Passed() || res.Counts[verifier.Mismatch] != res.Total {
		t.Fatalf("expected every trial to mismatch, got %s", res.CountsString())
	}
}

func TestRunUnconstructibleFails(t *testing.T) {
	broken := descriptor.Construction{
		Kind:          descriptor.DesignatedConstruction,
		DefaultUnsafe: true,
		Designated: func(int, *rand.Rand) (any, error) {
			return nil, errors.New("no pair")
		},
	}
	ep := descriptor.EntryPoint{
		Name:       "unconstructible",
		Reference:  descriptor.Class{Name: "RefPair", Type: reflect.TypeOf(&catalog.RefPair{}), Construction: broken},
		Submission: descriptor.Class{Name: "SubPair", Type: reflect.TypeOf(&catalog.SubPair{}), Construction: broken},
		Method:     "Values",
	}
	res := mustRun(t, ep, testConfig(2))
	if res.Passed() {
		t.Fatalf("a run where nothing can be constructed must not pass: %s", res.CountsString())
	}
	if res.Counts[verifier.BothFaulted] != res.Total || res.Reasons["both:construction"] != int64(res.Total) {
		t.Fatalf("expected construction faults on both sides, got %s %v", res.CountsString(), res.Reasons)
	}
}

var wrongAdds atomic.Int32

type countingAdder struct{}

func (countingAdder) Add(a, b int) int {
	wrongAdds.Add(1)
	return a + b + 1
}

func TestRunFailFastStopsSerialInvocations(t *testing.T) {
	wrongAdds.Store(0)
	ep := problem(t, "adder")
	ep.Submission = descriptor.Class{Name: "countingAdder", Type: reflect.TypeOf(countingAdder{})}
	ep.Serial = true
	cfg := testConfig(8)
	cfg.Run.FailFastThreshold = 1
	res := mustRun(t, ep, cfg)
	if res.Total != 1 || !res.StoppedEarly {
		t.Fatalf("expected one recorded trial, got total=%d %s", res.Total, res.CountsString())
	}
	if n := wrongAdds.Load(); n != 1 {
		t.Fatalf("submission invoked %d times after fail-fast, want 1", n)
	}
}

func TestTruncateAtFailure(t *testing.T) {
	mk := func(vs ...verifier.Verdict) []Trial {
		out := make([]Trial, len(vs))
		for i, v := range vs {
			out[i] = Trial{Inputs: TrialInputs{Index: i}, Verdict: v}
		}
		return out
	}
	m, x := verifier.Match, verifier.Mismatch
	cases := []struct {
		trials    []Trial
		threshold int
		want      int
	}{
		{mk(m, x, m, x, x), 2, 4},
		{mk(m, x, m, x, x), 1, 2},
		{mk(m, m, m), 1, 3},
		{mk(x, x), 0, 2},
	}
	for i, tc := range cases {
		if got := len(truncateAtFailure(tc.trials, tc.threshold)); got != tc.want {
			t.Fatalf("case %d: expected %d trials, got %d", i, tc.want, got)
		}
	}
}
