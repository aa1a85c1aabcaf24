package runner

import (
	"context"
	"math/rand"
	"reflect"

	"parity/internal/descriptor"
	"parity/internal/generator"
	"parity/internal/harness"
	"parity/internal/util"
	"parity/internal/verifier"

	"github.com/pkg/errors"
)

// Sub-stream indexes under a trial seed.
const (
	streamReceiver = 1
	streamArgs     = 2
	streamPeer     = 3
)

// side is one half of a materialized trial.
type side struct {
	class    descriptor.Class
	recv     reflect.Value
	buildErr error
	args     []reflect.Value
}

// materialized holds both sides' inputs for one attempt.
type materialized struct {
	ref    side
	sub    side
	inputs TrialInputs
}

// runTrial executes one planned trial, retrying with derived seeds while the
// precondition rejects the inputs.
func (r *Runner) runTrial(ctx context.Context, plan trialPlan) error {
	base := util.DeriveSeed(r.seed, plan.index)
	for attempt := 0; ; attempt++ {
		// Another trial may have tripped fail-fast or give-up while this one
		// waited for a worker or retried.
		if r.skip(ctx, plan.index) {
			return nil
		}
		seed := base
		if attempt > 0 {
			seed = util.DeriveSeed(base, attempt)
		}
		m, err := r.materialize(plan, seed, attempt)
		if err != nil {
			return err
		}
		if r.admit(m) {
			t, ok := r.execute(ctx, m)
			if ok {
				r.record(t)
			}
			return nil
		}
		if !r.discard() {
			return nil
		}
		// Edge values are fixed, so a rejected edge trial is dropped.
		if plan.edge != nil {
			util.Detailf("edge trial %d rejected by precondition, dropped (row %v)", plan.index, plan.edge)
			return nil
		}
	}
}

// materialize derives the trial's receivers and arguments from seed alone.
// Both receivers are built from identically seeded sources; arguments are
// generated once and deep-copied to each side and to the record.
func (r *Runner) materialize(plan trialPlan, seed int64, attempt int) (*materialized, error) {
	recvSeed := util.DeriveSeed(seed, streamReceiver)
	m := &materialized{
		ref: side{class: r.ep.Reference},
		sub: side{class: r.ep.Submission},
		inputs: TrialInputs{
			Index:        plan.index,
			Round:        plan.round,
			Complexity:   plan.complexity,
			Seed:         seed,
			Attempt:      attempt,
			ReceiverSeed: recvSeed,
			EdgeRow:      plan.edge,
		},
	}
	if r.needsReceivers() {
		m.ref.recv, m.ref.buildErr = r.builder.Build(r.ep.Reference, plan.complexity, rand.New(rand.NewSource(recvSeed)))
		m.sub.recv, m.sub.buildErr = r.builder.Build(r.ep.Submission, plan.complexity, rand.New(rand.NewSource(recvSeed)))
	}

	argRand := rand.New(rand.NewSource(util.DeriveSeed(seed, streamArgs)))
	n := len(r.sig.Params)
	if plan.edge != nil && len(plan.edge) != n {
		return nil, errors.Errorf("edge row %v does not fit %d arguments", plan.edge, n)
	}
	m.ref.args = make([]reflect.Value, n)
	m.sub.args = make([]reflect.Value, n)
	m.inputs.Args = make([]any, n)
	for i, p := range r.sig.Params {
		if p.Peer {
			peerSeed := util.DeriveSeed(seed, streamPeer+i)
			var err error
			m.ref.args[i], err = r.builder.Build(r.ep.Reference, plan.complexity, rand.New(rand.NewSource(peerSeed)))
			m.ref.buildErr = firstErr(m.ref.buildErr, err)
			m.sub.args[i], err = r.builder.Build(r.ep.Submission, plan.complexity, rand.New(rand.NewSource(peerSeed)))
			m.sub.buildErr = firstErr(m.sub.buildErr, err)
			if m.ref.args[i].IsValid() {
				m.inputs.Args[i] = generator.Clone(m.ref.args[i]).Interface()
			}
			continue
		}
		var v reflect.Value
		if plan.edge != nil && plan.edge[i] != generator.NoEdge {
			var err error
			v, err = r.gens.EdgeCase(p.Type, plan.edge[i])
			if err != nil {
				return nil, errors.Wrapf(err, "argument %d", i)
			}
		} else {
			var err error
			v, err = r.gens.Generate(p.Type, plan.complexity, argRand)
			if err != nil {
				return nil, descriptor.NewConfigError(r.ep.Label(), "generator", errors.Wrapf(err, "argument %d", i))
			}
		}
		m.ref.args[i] = v
		m.sub.args[i] = generator.Clone(v)
		m.inputs.Args[i] = generator.Clone(v).Interface()
	}
	m.inputs.Magnitude = magnitudeOf(m.ref.args)
	return m, nil
}

func (r *Runner) needsReceivers() bool {
	return !r.ep.Static || !r.ep.HasSolution()
}

// admit evaluates the precondition on reference-side values. A panicking
// precondition rejects the inputs. Inputs whose reference receiver could not
// be built are admitted so the construction fault is recorded.
func (r *Runner) admit(m *materialized) (ok bool) {
	if r.ep.Precondition == nil || m.ref.buildErr != nil {
		return true
	}
	defer func() {
		if p := recover(); p != nil {
			util.Detailf("precondition panicked trial=%d: %v", m.inputs.Index, p)
			ok = false
		}
	}()
	in := make([]reflect.Value, 0, len(m.ref.args)+1)
	if !r.ep.Static {
		in = append(in, m.ref.recv)
	}
	// The precondition sees copies so it cannot disturb the call.
	in = append(in, generator.CloneAll(m.ref.args)...)
	out := harness.Call(reflect.ValueOf(r.ep.Precondition), in)
	return out[0].Bool()
}

// execute runs reference then submission and verifies. It reports false when
// the run was canceled mid-trial; such trials are not recorded.
func (r *Runner) execute(ctx context.Context, m *materialized) (Trial, bool) {
	refOut := r.invoke(ctx, "reference", m.ref)
	if ctx.Err() != nil {
		return Trial{}, false
	}
	subOut := r.invoke(ctx, "submission", m.sub)
	if ctx.Err() != nil {
		return Trial{}, false
	}
	d := r.verifier.Verify(output(refOut, m.ref), output(subOut, m.sub))
	return Trial{
		Inputs:     m.inputs,
		Reference:  refOut,
		Submission: subOut,
		Verdict:    d.Verdict,
		Reason:     d.Reason,
	}, true
}

func (r *Runner) invoke(ctx context.Context, label string, s side) harness.Outcome {
	if s.buildErr != nil {
		return harness.NewFaulted(harness.FaultConstruction, s.buildErr.Error())
	}
	if !r.ep.HasSolution() {
		return harness.Empty()
	}
	fn, err := s.class.Operation(r.ep.Method, r.ep.Static, s.recv)
	if err != nil {
		return harness.NewFaulted(harness.FaultOperation, err.Error())
	}
	out := r.harness.Invoke(ctx, fn, s.args, r.limit)
	invocationSeconds.WithLabelValues(label, out.Kind.String()).Observe(out.Duration.Seconds())
	return out
}

func output(out harness.Outcome, s side) verifier.Output {
	o := verifier.Output{Outcome: out, Args: make([]any, len(s.args))}
	if s.recv.IsValid() {
		o.Receiver = s.recv.Interface()
	}
	for i, a := range s.args {
		if a.IsValid() {
			o.Args[i] = a.Interface()
		}
	}
	return o
}

func magnitudeOf(args []reflect.Value) float64 {
	sum := 0.0
	for _, a := range args {
		sum += generator.Magnitude(a)
	}
	return sum
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// Replay re-executes the trial described by in and returns its fresh
// outcome. Inputs are re-derived from the recorded seed, so Replay against a
// run with the same seed reproduces the recorded arguments exactly; state the
// classes keep between calls is not rewound.
func (r *Runner) Replay(ctx context.Context, in TrialInputs) (Trial, error) {
	if err := r.setup(); err != nil {
		return Trial{}, err
	}
	plan := trialPlan{index: in.Index, round: in.Round, complexity: in.Complexity, edge: in.EdgeRow}
	m, err := r.materialize(plan, in.Seed, in.Attempt)
	if err != nil {
		return Trial{}, err
	}
	t, ok := r.execute(ctx, m)
	if !ok {
		return Trial{}, ctx.Err()
	}
	return t, nil
}
