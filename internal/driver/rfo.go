package driver

import (
	"context"
	"time"

	"github.com/yuemei-liu/lotplan/internal/builder"
	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

// RFOOptions are the Fix-and-Optimize hyperparameters of spec.md §4.3,
// plus the RF hyperparameters its phase 1 runs with.
type RFOOptions struct {
	RF RFOptions

	Window   int // W_o, default 8
	Stride   int // S_o, default 3
	MaxRounds int // H, default 2
	Buffer   int // Delta, default 1
}

func (o RFOOptions) withDefaults() RFOOptions {
	o.RF = o.RF.withDefaults()
	if o.Window <= 0 {
		o.Window = 8
	}
	if o.Stride <= 0 {
		o.Stride = 3
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 2
	}
	if o.Buffer <= 0 {
		o.Buffer = 1
	}
	return o
}

// RFO runs RF to warm-start a Fix-and-Optimize neighborhood search
// (spec.md §4.3).
func RFO(ctx context.Context, inst *instance.Instance, opts Options, rfoOpts RFOOptions) (*Result, error) {
	rfoOpts = rfoOpts.withDefaults()
	start := time.Now()

	rfResult, err := RF(ctx, inst, opts, rfoOpts.RF)
	if err != nil {
		return nil, err
	}
	if !rfResult.Feasible {
		// spec.md §7: RF's own terminal infeasibility propagates as RFO's,
		// the Fix-and-Optimize phase never runs against an empty incumbent.
		rfResult.Algorithm = "RFO"
		return rfResult, nil
	}

	incumbentY := cloneMatrix(rfResult.Values.Y)
	incumbentLambda := cloneMatrix(rfResult.Values.Lambda)
	incumbentObj := rfResult.Objective

	t := inst.T()
	opts.logf("[RFO] phase 1 done, J0=%.6f; starting Fix-and-Optimize", incumbentObj)
	opts.stageStart(2)

	for round := 1; round <= rfoOpts.MaxRounds; round++ {
		improved := false

		for a := 0; a < t; a += rfoOpts.Stride {
			if ctxDone(ctx) {
				break
			}

			outcome, h, err := solveNSP(ctx, inst, opts, incumbentY, incumbentLambda, a, rfoOpts.Window, rfoOpts.Buffer)
			if err != nil {
				return nil, err
			}
			if outcome.Status == milp.StatusNoIncumbent {
				opts.logf("[RFO] NSP(a=%d) infeasible, skipping without changing incumbent", a)
				continue
			}

			if outcome.Objective < incumbentObj-epsilon {
				opts.logf("[RFO] NSP(a=%d) improved incumbent %.6f -> %.6f", a, incumbentObj, outcome.Objective)
				incumbentObj = outcome.Objective
				incumbentY, incumbentLambda = readSetupStructure(inst, h, outcome.Result)
				improved = true
			}
		}

		if !improved {
			opts.logf("[RFO] round %d found no improving window, terminating early", round)
			break
		}
	}

	// Final pass: y, λ FIXED to final incumbent, u INTEGER.
	profile := builder.AllFixed(incumbentY, incumbentLambda)
	model, h, err := builder.Build(inst, profile, builder.Augmentation{})
	if err != nil {
		return nil, err
	}
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	elapsed := time.Since(start)
	if outcome.Status == milp.StatusNoIncumbent {
		stages := append(append([]StageRecord{}, rfResult.Stages...),
			StageRecord{Stage: 2, Objective: -1, Elapsed: elapsed, Feasible: false})
		return &Result{Algorithm: "RFO", Feasible: false, Objective: -1, Elapsed: elapsed, Stages: stages}, nil
	}
	opts.stageDone(2, outcome.Objective, elapsed, outcome.Gap)
	res := &Result{
		Algorithm: "RFO",
		Feasible:  true,
		Objective: outcome.Objective,
		Gap:       outcome.Gap,
		Elapsed:   elapsed,
		Stages: append(append([]StageRecord{}, rfResult.Stages...),
			StageRecord{Stage: 2, Objective: outcome.Objective, Elapsed: elapsed, Gap: outcome.Gap, Feasible: true}),
		Values: extractValues(inst, h, outcome.Result),
	}
	return res, nil
}

// solveNSP builds and solves the neighborhood subproblem NSP(a) of
// spec.md §4.3: y, λ INTEGER inside [max(0,a-Delta), min(T,a+W_o+Delta)),
// FIXED to the current incumbent outside it; u INTEGER.
func solveNSP(ctx context.Context, inst *instance.Instance, opts Options, incumbentY, incumbentLambda [][]float64, anchor, window, buffer int) (milp.OracleOutcome, *builder.Handle, error) {
	g, t := inst.G(), inst.T()
	wndStart := max(0, anchor-buffer)
	wndEnd := min(t, anchor+window+buffer)

	profile := builder.NewProfile(g, t)
	profile.UIntegral = true
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			if tt >= wndStart && tt < wndEnd {
				profile.YClass[gg][tt] = builder.ClassInteger
				profile.LambdaClass[gg][tt] = builder.ClassInteger
			} else {
				profile.YClass[gg][tt] = builder.ClassFixed
				profile.LambdaClass[gg][tt] = builder.ClassFixed
				profile.YFixed[gg][tt] = incumbentY[gg][tt]
				profile.LambdaFixed[gg][tt] = incumbentLambda[gg][tt]
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

func readSetupStructure(inst *instance.Instance, h *builder.Handle, res *milp.SolveResult) (y, lambda [][]float64) {
	g, t := inst.G(), inst.T()
	y = zeroMatrix(g, t)
	lambda = zeroMatrix(g, t)
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			y[gg][tt] = binary(res.Value(h.Y[gg][tt]))
			lambda[gg][tt] = binary(res.Value(h.Lambda[gg][tt]))
		}
	}
	return y, lambda
}
