package driver

import (
	"context"
	"time"

	"github.com/yuemei-liu/lotplan/internal/builder"
	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

// RFOptions are the rolling-window hyperparameters of spec.md §4.2.
type RFOptions struct {
	Window        int           // W, default 6
	FixStep       int           // S, default 1
	MaxRetries    int           // R, default 3
	TotalBudget   time.Duration // 0 = unbounded; spec.md §4.2 "caller-supplied total time budget"
}

func (o RFOptions) withDefaults() RFOptions {
	if o.Window <= 0 {
		o.Window = 6
	}
	if o.FixStep <= 0 {
		o.FixStep = 1
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return o
}

// rollbackEntry records one committed [start,end) range of periods, so
// the most recent commitment can be undone first (spec.md §4.2's LIFO
// rollback stack).
type rollbackEntry struct {
	start, end int
}

// rfState is the mutable state of one RF run: the fixed setup structure
// and the rollback stack. spec.md §4.2: "initially all zero, nothing
// fixed; a rollback stack of previously fixed ranges."
type rfState struct {
	yFixed, lambdaFixed [][]float64
	stack               []rollbackEntry
}

func newRFState(g, t int) *rfState {
	return &rfState{yFixed: zeroMatrix(g, t), lambdaFixed: zeroMatrix(g, t)}
}

func (s *rfState) push(start, end int) {
	s.stack = append(s.stack, rollbackEntry{start, end})
}

func (s *rfState) pop() (rollbackEntry, bool) {
	if len(s.stack) == 0 {
		return rollbackEntry{}, false
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top, true
}

func (s *rfState) clearRange(r rollbackEntry) {
	for g := range s.yFixed {
		for t := r.start; t < r.end; t++ {
			s.yFixed[g][t] = 0
			s.lambdaFixed[g][t] = 0
		}
	}
}

// RF runs the rolling-window Relax-and-Fix driver of spec.md §4.2.
func RF(ctx context.Context, inst *instance.Instance, opts Options, rfOpts RFOptions) (*Result, error) {
	rfOpts = rfOpts.withDefaults()
	g, t := inst.G(), inst.T()
	state := newRFState(g, t)

	var deadline time.Time
	if rfOpts.TotalBudget > 0 {
		deadline = time.Now().Add(rfOpts.TotalBudget)
	}

	opts.logf("[RF] starting: W0=%d S=%d R=%d", rfOpts.Window, rfOpts.FixStep, rfOpts.MaxRetries)
	opts.stageStart(1)

	k := 0
	window := rfOpts.Window
	retries := 0
	start := time.Now()

	for k < t {
		if ctxDone(ctx) || deadlineExceeded(deadline) {
			opts.logf("[RF] total time budget exceeded at k=%d, committing fallback and running final pass", k)
			break
		}

		outcome, h, err := solveRFSubproblem(ctx, inst, opts, state, k, window, false)
		if err != nil {
			return nil, err
		}

		if outcome.Status == milp.StatusNoIncumbent {
			window++
			retries++
			opts.logf("[RF] SP(k=%d,W=%d) infeasible, expanding window (retry %d/%d)", k, window-1, retries, rfOpts.MaxRetries)

			if retries >= rfOpts.MaxRetries {
				entry, ok := state.pop()
				if !ok {
					return terminalInfeasible("RF", 1, time.Since(start)), nil
				}
				opts.logf("[RF] rolling back commitment [%d,%d)", entry.start, entry.end)
				state.clearRange(entry)
				k = entry.start
				window = rfOpts.Window + 2
				retries = 0
			}
			continue
		}

		retries = 0
		commitEnd := min(k+rfOpts.FixStep, t)
		for gg := 0; gg < g; gg++ {
			for tt := k; tt < commitEnd; tt++ {
				state.yFixed[gg][tt] = binary(outcome.Value(h.Y[gg][tt]))
				state.lambdaFixed[gg][tt] = binary(outcome.Value(h.Lambda[gg][tt]))
			}
		}
		state.push(k, commitEnd)
		k = commitEnd
		window = rfOpts.Window
	}

	// Final pass: all y, λ FIXED, u INTEGER (spec.md §4.2 step 3).
	profile := builder.AllFixed(state.yFixed, state.lambdaFixed)
	model, h, err := builder.Build(inst, profile, builder.Augmentation{})
	if err != nil {
		return nil, err
	}
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	elapsed := time.Since(start)

	if outcome.Status == milp.StatusNoIncumbent {
		return terminalInfeasible("RF", 1, elapsed), nil
	}
	opts.stageDone(1, outcome.Objective, elapsed, outcome.Gap)

	res := &Result{
		Algorithm: "RF",
		Feasible:  true,
		Objective: outcome.Objective,
		Gap:       outcome.Gap,
		Elapsed:   elapsed,
		Stages:    []StageRecord{{Stage: 1, Objective: outcome.Objective, Elapsed: elapsed, Gap: outcome.Gap, Feasible: true}},
		Values:    extractValues(inst, h, outcome.Result),
	}
	return res, nil
}

// solveRFSubproblem builds and solves SP(k,W) of spec.md §4.2: periods
// [0,k) FIXED to state's committed values, [k,min(k+W,T)) INTEGER,
// [k+W,T) CONTINUOUS-relaxed. u is relaxed unless isFinal.
func solveRFSubproblem(ctx context.Context, inst *instance.Instance, opts Options, state *rfState, k, window int, isFinal bool) (milp.OracleOutcome, *builder.Handle, error) {
	g, t := inst.G(), inst.T()
	winEnd := min(k+window, t)

	profile := builder.NewProfile(g, t)
	profile.UIntegral = isFinal
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			switch {
			case tt < k:
				profile.YClass[gg][tt] = builder.ClassFixed
				profile.LambdaClass[gg][tt] = builder.ClassFixed
				profile.YFixed[gg][tt] = state.yFixed[gg][tt]
				profile.LambdaFixed[gg][tt] = state.lambdaFixed[gg][tt]
			case tt < winEnd:
				profile.YClass[gg][tt] = builder.ClassInteger
				profile.LambdaClass[gg][tt] = builder.ClassInteger
			default:
				profile.YClass[gg][tt] = builder.ClassRelaxed
				profile.LambdaClass[gg][tt] = builder.ClassRelaxed
			}
		}
	}

	model, h, err := builder.Build(inst, profile, builder.Augmentation{})
	if err != nil {
		return milp.OracleOutcome{}, nil, err
	}
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	return outcome, h, nil
}

