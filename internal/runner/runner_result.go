package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"parity/internal/config"
	"parity/internal/harness"
	"parity/internal/verifier"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrialInputs is everything needed to reproduce a trial.
type TrialInputs struct {
	Index      int   `json:"index"`
	Round      int   `json:"round"`
	Complexity int   `json:"complexity"`
	Seed       int64 `json:"seed"`
	// Attempt counts precondition rejections before these inputs.
	Attempt      int   `json:"attempt,omitempty"`
	ReceiverSeed int64 `json:"receiver_seed"`
	// EdgeRow holds per-argument edge value indexes for edge trials.
	EdgeRow   []int   `json:"edge_row,omitempty"`
	Args      []any   `json:"args"`
	Magnitude float64 `json:"magnitude"`
}

// Edge reports whether the trial came from the edge-case phase.
func (in TrialInputs) Edge() bool {
	return in.EdgeRow != nil
}

// Trial is one recorded comparison.
type Trial struct {
	Inputs     TrialInputs      `json:"inputs"`
	Reference  harness.Outcome  `json:"reference"`
	Submission harness.Outcome  `json:"submission"`
	Verdict    verifier.Verdict `json:"verdict"`
	Reason     string           `json:"reason,omitempty"`
}

// RoundStats summarizes one complexity round.
type RoundStats struct {
	Round         int     `json:"round"`
	Trials        int     `json:"trials"`
	Failures      int     `json:"failures"`
	MeanMagnitude float64 `json:"mean_magnitude"`
	P90Magnitude  float64 `json:"p90_magnitude"`
	MaxMagnitude  float64 `json:"max_magnitude"`
	MeanDuration  float64 `json:"mean_duration_ms"`
}

// RunResult aggregates a run. It is created empty, appended to per trial,
// and finalized once; it is never shared across runs.
type RunResult struct {
	ID         string                   `json:"id"`
	EntryPoint string                   `json:"entry_point"`
	Seed       int64                    `json:"seed"`
	Config     config.RunConfig         `json:"config"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Total      int                      `json:"total"`
	Counts     map[verifier.Verdict]int `json:"counts"`
	// FirstByVerdict holds the earliest trial of each failing verdict.
	FirstByVerdict map[verifier.Verdict]Trial `json:"first_by_verdict,omitempty"`
	// Counterexamples lists the earliest failing trials, up to the limit.
	Counterexamples []Trial          `json:"counterexamples,omitempty"`
	Reasons         map[string]int64 `json:"reasons,omitempty"`
	Trials          []Trial          `json:"trials,omitempty"`
	Rounds          []RoundStats     `json:"rounds"`
	Discarded       int              `json:"discarded"`
	GaveUp          bool             `json:"gave_up,omitempty"`
	StoppedEarly    bool             `json:"stopped_early,omitempty"`
	Canceled        bool             `json:"canceled,omitempty"`
}

func newRunResult(entryPoint string, seed int64, run config.RunConfig) *RunResult {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &RunResult{
		ID:             id.String(),
		EntryPoint:     entryPoint,
		Seed:           seed,
		Config:         run,
		StartedAt:      time.Now(),
		Counts:         make(map[verifier.Verdict]int),
		FirstByVerdict: make(map[verifier.Verdict]Trial),
	}
}

// Failures returns the number of failing trials.
func (res *RunResult) Failures() int {
	n := 0
	for v, c := range res.Counts {
		if v.Failed() {
			n += c
		}
	}
	return n
}

// Passed reports whether every recorded trial matched and the run neither
// gave up nor was canceled.
func (res *RunResult) Passed() bool {
	return res.Failures() == 0 && !res.GaveUp && !res.Canceled
}

// Verdicts returns the verdict sequence in trial order.
func (res *RunResult) Verdicts() []verifier.Verdict {
	out := make([]verifier.Verdict, len(res.Trials))
	for i, t := range res.Trials {
		out[i] = t.Verdict
	}
	return out
}

// CountsString renders non-zero counts in verdict order.
func (res *RunResult) CountsString() string {
	parts := make([]string, 0, len(verifier.AllVerdicts))
	for _, v := range verifier.AllVerdicts {
		if c := res.Counts[v]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", v, c))
		}
	}
	if len(parts) == 0 {
		return "no trials"
	}
	return strings.Join(parts, " ")
}

// finalize orders the trial log, applies fail-fast truncation and computes
// the aggregates.
func (r *Runner) finalize(ctx context.Context, res *RunResult) {
	r.statsMu.Lock()
	trials := append([]Trial(nil), r.trials...)
	res.Discarded = r.discards
	res.Reasons = make(map[string]int64, len(r.reasons))
	for k, v := range r.reasons {
		res.Reasons[k] = v
	}
	r.statsMu.Unlock()

	sort.Slice(trials, func(i, j int) bool { return trials[i].Inputs.Index < trials[j].Inputs.Index })
	if r.failFast.Load() {
		// Trials past the threshold-th failure by index ran only because of
		// scheduling; cutting them keeps the result independent of workers.
		trials = truncateAtFailure(trials, r.run.FailFastThreshold)
		res.StoppedEarly = true
	}
	res.GaveUp = r.gaveUp.Load()
	res.Canceled = ctx.Err() != nil
	res.Total = len(trials)

	for _, t := range trials {
		res.Counts[t.Verdict]++
		if !t.Verdict.Failed() {
			continue
		}
		if _, ok := res.FirstByVerdict[t.Verdict]; !ok {
			res.FirstByVerdict[t.Verdict] = t
		}
		if len(res.Counterexamples) < r.run.CounterexampleLimit {
			res.Counterexamples = append(res.Counterexamples, t)
		}
	}
	res.Rounds = roundStats(trials)
	if r.run.TrialLogLimit > 0 && len(trials) > r.run.TrialLogLimit {
		trials = trials[:r.run.TrialLogLimit]
	}
	res.Trials = trials
	res.FinishedAt = time.Now()
}

func truncateAtFailure(trials []Trial, threshold int) []Trial {
	if threshold <= 0 {
		return trials
	}
	seen := 0
	for i, t := range trials {
		if t.Verdict.Failed() {
			seen++
			if seen == threshold {
				return trials[:i+1]
			}
		}
	}
	return trials
}

func roundStats(trials []Trial) []RoundStats {
	byRound := make(map[int][]Trial)
	rounds := make([]int, 0)
	for _, t := range trials {
		if _, ok := byRound[t.Inputs.Round]; !ok {
			rounds = append(rounds, t.Inputs.Round)
		}
		byRound[t.Inputs.Round] = append(byRound[t.Inputs.Round], t)
	}
	sort.Ints(rounds)
	out := make([]RoundStats, 0, len(rounds))
	for _, round := range rounds {
		ts := byRound[round]
		mags := make([]float64, len(ts))
		durations := make([]float64, len(ts))
		rs := RoundStats{Round: round, Trials: len(ts)}
		for i, t := range ts {
			mags[i] = t.Inputs.Magnitude
			durations[i] = float64(t.Reference.Duration+t.Submission.Duration) / float64(time.Millisecond)
			if t.Verdict.Failed() {
				rs.Failures++
			}
		}
		sort.Float64s(mags)
		rs.MeanMagnitude = stat.Mean(mags, nil)
		rs.P90Magnitude = stat.Quantile(0.9, stat.Empirical, mags, nil)
		rs.MaxMagnitude = floats.Max(mags)
		rs.MeanDuration = stat.Mean(durations, nil)
		out = append(out, rs)
	}
	return out
}
