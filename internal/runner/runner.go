// Package runner drives a check of one entry point: rounds of increasing
// complexity, each a batch of independent trials run on a bounded worker
// pool, with every verdict aggregated into a RunResult.
package runner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"parity/internal/builder"
	"parity/internal/config"
	"parity/internal/descriptor"
	"parity/internal/design"
	"parity/internal/generator"
	"parity/internal/harness"
	"parity/internal/util"
	"parity/internal/verifier"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Runner orchestrates trials for one entry point. A Runner is single-use:
// Run may be called once.
type Runner struct {
	cfg      config.Config
	run      config.RunConfig
	ep       descriptor.EntryPoint
	seed     int64
	workers  int
	limit    time.Duration
	sig      descriptor.Signature
	gens     *generator.Registry
	builder  *builder.Builder
	harness  *harness.Harness
	verifier *verifier.Verifier
	edgePlan [][]int
	ready    bool

	statsMu  sync.Mutex
	trials   []Trial
	failIdx  []int
	discards int
	reasons  map[string]int64

	completed atomic.Int64
	failFast  atomic.Bool
	gaveUp    atomic.Bool
	// cutoff is the index of the threshold-th failure by index once
	// fail-fast has tripped. It only decreases.
	cutoff atomic.Int64
}

// New constructs a Runner for the entry point under the given config.
// A zero seed picks one from the clock; the chosen seed is logged and kept in
// the result.
func New(ep descriptor.EntryPoint, cfg config.Config) *Runner {
	run := ep.RunConfig(cfg.Run)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	workers := cfg.Workers
	if workers <= 0 || ep.Serial {
		workers = 1
	}
	limit := time.Duration(run.TimeoutMs) * time.Millisecond
	return &Runner{
		cfg:     cfg,
		run:     run,
		ep:      ep,
		seed:    seed,
		workers: workers,
		limit:   limit,
		builder: builder.New(),
		harness: harness.New(limit),
		reasons: make(map[string]int64),
	}
}

// Seed returns the run seed.
func (r *Runner) Seed() int64 {
	return r.seed
}

// RunConfig returns the effective run configuration.
func (r *Runner) RunConfig() config.RunConfig {
	return r.run
}

// Run executes every round and returns the aggregated result.
//
// A configuration error is returned before any trial runs, with a nil
// result. Behavioral divergences never produce an error. If ctx is canceled
// the partial result is returned with Canceled set and a nil error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if err := r.setup(); err != nil {
		util.Errorf("runner setup entry=%s: %v", r.ep.Label(), err)
		runsTotal.WithLabelValues(r.ep.Label(), "config_error").Inc()
		return nil, err
	}
	res := newRunResult(r.ep.Label(), r.seed, r.run)
	stop := r.startStatsLogger()
	defer stop()

	util.Infof("runner start entry=%s seed=%d rounds=%d trials_per_round=%d edge_trials=%d workers=%d timeout=%s",
		r.ep.Label(), r.seed, r.run.MaxComplexity+1, r.run.TrialsPerRound, len(r.edgePlan), r.workers, r.limit)

	var runErr error
	index := 0
	for round := 0; round <= r.run.MaxComplexity; round++ {
		if r.halted(ctx) {
			break
		}
		plans := r.planRound(round, &index)
		util.Detailf("round %d complexity=%d trials=%d", round, round, len(plans))
		if err := r.runRound(ctx, plans); err != nil {
			runErr = err
			break
		}
	}

	r.finalize(ctx, res)
	switch {
	case res.Canceled:
		util.Warnf("runner canceled entry=%s after %d trials", res.EntryPoint, res.Total)
	case res.StoppedEarly:
		util.Highlightf("runner fail-fast entry=%s threshold=%d reached after %d trials", res.EntryPoint, r.run.FailFastThreshold, res.Total)
	case res.GaveUp:
		util.Warnf("runner gave up entry=%s discards=%d", res.EntryPoint, res.Discarded)
	}
	util.Infof("runner finish entry=%s passed=%t total=%d %s", res.EntryPoint, res.Passed(), res.Total, res.CountsString())
	runsTotal.WithLabelValues(r.ep.Label(), runLabel(res, runErr)).Inc()
	return res, runErr
}

func (r *Runner) setup() error {
	if r.ready {
		return nil
	}
	sig, err := r.ep.Validate()
	if err != nil {
		return err
	}
	if r.run.CheckDesign && r.ep.Reference.Type != nil && r.ep.Submission.Type != nil {
		rep := design.Compare(r.ep.Reference.Type, r.ep.Submission.Type)
		if !rep.Matched() {
			return descriptor.NewConfigError(r.ep.Label(), "design",
				errors.Errorf("submission does not implement the reference API:\n%s", rep))
		}
	}
	gens, err := r.ep.Registry(sig, r.run.MaxDepth)
	if err != nil {
		return err
	}
	counts := make([]int, len(sig.Params))
	for i, p := range sig.Params {
		if !p.Peer {
			counts[i] = gens.EdgeCount(p.Type)
		}
	}
	r.sig = sig
	r.gens = gens
	r.edgePlan = generator.PlanEdges(counts, r.run.EdgeCaseLimit)
	var routine verifier.Routine
	if r.ep.Verify != nil {
		routine = r.ep.Verify.Routine
	}
	r.verifier = verifier.New(routine)
	r.ready = true
	return nil
}

// trialPlan fixes everything a trial's inputs are derived from.
type trialPlan struct {
	index      int
	round      int
	complexity int
	edge       []int
}

// planRound lays out the round's trials. Round 0 starts with the edge-case
// phase; edge trials are extra and never replace random ones.
func (r *Runner) planRound(round int, index *int) []trialPlan {
	plans := make([]trialPlan, 0, r.run.TrialsPerRound+len(r.edgePlan))
	if round == 0 {
		for _, row := range r.edgePlan {
			plans = append(plans, trialPlan{index: *index, round: round, complexity: round, edge: row})
			*index++
		}
	}
	for i := 0; i < r.run.TrialsPerRound; i++ {
		plans = append(plans, trialPlan{index: *index, round: round, complexity: round})
		*index++
	}
	return plans
}

// runRound dispatches trials in index order. Halting is checked before each
// dispatch, so every trial with a lower index than a dispatched one has
// itself been dispatched.
func (r *Runner) runRound(ctx context.Context, plans []trialPlan) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, plan := range plans {
		if r.halted(gctx) {
			break
		}
		g.Go(func() error {
			return r.runTrial(gctx, plan)
		})
	}
	return g.Wait()
}

func (r *Runner) halted(ctx context.Context) bool {
	return ctx.Err() != nil || r.failFast.Load() || r.gaveUp.Load()
}

// skip reports whether the trial at index should not start. Under fail-fast
// only trials past the cutoff are skipped: every lower index may still belong
// in the truncated log.
func (r *Runner) skip(ctx context.Context, index int) bool {
	if ctx.Err() != nil || r.gaveUp.Load() {
		return true
	}
	return r.failFast.Load() && int64(index) > r.cutoff.Load()
}

// discard records a rejected input and reports whether the trial may retry.
func (r *Runner) discard() bool {
	discardsTotal.WithLabelValues(r.ep.Label()).Inc()
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.discards++
	if r.discards >= r.run.MaxDiscards {
		r.gaveUp.Store(true)
		return false
	}
	return true
}

func (r *Runner) record(t Trial) {
	trialsTotal.WithLabelValues(r.ep.Label(), t.Verdict.String()).Inc()
	r.statsMu.Lock()
	r.trials = append(r.trials, t)
	if t.Verdict.Failed() {
		r.failIdx = append(r.failIdx, t.Inputs.Index)
		if reason := classifyTrial(t); reason != "" {
			r.reasons[reason]++
		}
		if k := r.run.FailFastThreshold; k > 0 && len(r.failIdx) >= k {
			sort.Ints(r.failIdx)
			r.cutoff.Store(int64(r.failIdx[k-1]))
			r.failFast.Store(true)
		}
	}
	r.statsMu.Unlock()
	r.completed.Add(1)
	if t.Verdict.Failed() {
		util.Detailf("trial %d round=%d verdict=%s reason=%s", t.Inputs.Index, t.Inputs.Round, t.Verdict, t.Reason)
	}
}

func runLabel(res *RunResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Canceled:
		return "canceled"
	case res.Passed():
		return "passed"
	default:
		return "failed"
	}
}
