package driver

import (
	"context"
	"time"

	"github.com/yuemei-liu/lotplan/internal/builder"
	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

// RROptions are the three-stage Relax-and-Recover hyperparameters of
// spec.md §4.4.
type RROptions struct {
	Kappa      float64 // capacity inflation factor, default 10
	BonusAlpha float64 // consecutive-setup bonus coefficient
}

// DefaultBonusAlpha is the consecutive-setup bonus coefficient used when
// RROptions.BonusAlpha is left at zero. spec.md §4.4 calls for "a
// moderate" value without pinning one; this repo decides a fixed
// constant rather than deriving one from instance data,
// since the bonus only breaks ties among equally-feasible setup
// placements in stage 1 and is never read back after stage 3 fixes y.
const DefaultBonusAlpha = 50.0

func (o RROptions) withDefaults() RROptions {
	if o.Kappa <= 0 {
		o.Kappa = 10
	}
	if o.BonusAlpha <= 0 {
		o.BonusAlpha = DefaultBonusAlpha
	}
	return o
}

// RR runs the three-stage Relax-and-Recover driver of spec.md §4.4.
func RR(ctx context.Context, inst *instance.Instance, opts Options, rrOpts RROptions) (*Result, error) {
	rrOpts = rrOpts.withDefaults()
	start := time.Now()
	var stages []StageRecord

	opts.stageStart(1)
	yStar, stage1, err := rrStage1(ctx, inst, opts, rrOpts)
	stages = append(stages, stage1)
	if err != nil {
		return nil, err
	}
	opts.stageDone(1, stage1.Objective, stage1.Elapsed, stage1.Gap)

	if !stage1.Feasible {
		// spec.md §4.4 failure semantics: stage 1 no incumbent -> report
		// unmet, stages 2 and 3 skipped.
		return &Result{
			Algorithm: "RR",
			Feasible:  false,
			Objective: -1,
			Elapsed:   time.Since(start),
			Stages:    stages,
		}, nil
	}

	opts.stageStart(2)
	lambdaStar, stage2, err := rrStage2(ctx, inst, opts, yStar)
	stages = append(stages, stage2)
	if err != nil {
		return nil, err
	}
	opts.stageDone(2, stage2.Objective, stage2.Elapsed, stage2.Gap)

	opts.stageStart(3)
	yFinal := applyCarryoverReplacement(yStar, lambdaStar)
	outcome, h, stage3, err := rrStage3(ctx, inst, opts, yFinal, lambdaStar)
	stages = append(stages, stage3)
	if err != nil {
		return nil, err
	}
	opts.stageDone(3, stage3.Objective, stage3.Elapsed, stage3.Gap)

	if !stage3.Feasible {
		// spec.md §4.4: report stage 2's (y*, λ*) with stage 3's best
		// recorded incumbent (none here, the oracle returned no
		// incumbent at all) or unmet.
		t := inst.T()
		n, f := inst.N(), inst.F()
		vals := Values{
			Y:      yStar,
			Lambda: lambdaStar,
			X:      zeroMatrix(n, t),
			B:      zeroMatrix(n, t),
			I:      zeroMatrix(f, t),
			P:      zeroMatrix(f, t),
			U:      onesVector(n),
		}
		return &Result{
			Algorithm: "RR",
			Feasible:  false,
			Objective: -1,
			Elapsed:   time.Since(start),
			Stages:    stages,
			Values:    vals,
		}, nil
	}

	return &Result{
		Algorithm: "RR",
		Feasible:  true,
		Objective: outcome.Objective,
		Gap:       outcome.Gap,
		Elapsed:   time.Since(start),
		Stages:    stages,
		Values:    extractValues(inst, h, outcome.Result),
	}, nil
}

// rrStage1 builds the setup-structure model: λ removed, capacity
// inflated by κ, objective augmented with the consecutive-setup bonus.
func rrStage1(ctx context.Context, inst *instance.Instance, opts Options, rrOpts RROptions) ([][]float64, StageRecord, error) {
	g, t := inst.G(), inst.T()
	profile := builder.NewProfile(g, t)
	profile.UIntegral = true

	aug := builder.Augmentation{
		NoLambda:              true,
		CapacityMultiplier:    rrOpts.Kappa,
		ConsecutiveBonusAlpha: rrOpts.BonusAlpha,
	}

	start := time.Now()
	model, h, err := builder.Build(inst, profile, aug)
	if err != nil {
		return nil, StageRecord{}, err
	}
	// Solve with time limit τ_rr (spec.md §4.4): the same per-oracle-call
	// limit the CLI's -t/--time flag sets for every driver, RR included.
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	elapsed := time.Since(start)

	if outcome.Status == milp.StatusNoIncumbent {
		return nil, StageRecord{Stage: 1, Objective: -1, Elapsed: elapsed, Feasible: false}, nil
	}

	yStar := zeroMatrix(g, t)
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			yStar[gg][tt] = binary(outcome.Value(h.Y[gg][tt]))
		}
	}
	return yStar, StageRecord{Stage: 1, Objective: outcome.Objective, Elapsed: elapsed, Gap: outcome.Gap, Feasible: true}, nil
}

// rrStage2 maximizes carryover count subject to the carryover invariants
// only, with y fixed to yStar.
func rrStage2(ctx context.Context, inst *instance.Instance, opts Options, yStar [][]float64) ([][]float64, StageRecord, error) {
	g, t := inst.G(), inst.T()
	start := time.Now()
	model, h, err := builder.BuildCarryover(yStar)
	if err != nil {
		return nil, StageRecord{}, err
	}
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	elapsed := time.Since(start)

	lambdaStar := zeroMatrix(g, t)
	if outcome.Status == milp.StatusNoIncumbent {
		// No carryover assignment at all is itself feasible (Σλ=0
		// trivially satisfies every invariant); a genuine no-incumbent
		// here would indicate an AggregatorGuard-class shape mismatch
		// upstream, not a meaningful carryover failure, so stage 2 is
		// reported feasible with zero carryovers.
		return lambdaStar, StageRecord{Stage: 2, Objective: 0, Elapsed: elapsed, Feasible: true}, nil
	}
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			lambdaStar[gg][tt] = binary(outcome.Value(h.Lambda[gg][tt]))
		}
	}
	return lambdaStar, StageRecord{Stage: 2, Objective: outcome.Objective, Elapsed: elapsed, Gap: outcome.Gap, Feasible: true}, nil
}

// rrStage3 recovers under real capacity: λ fixed to λ*, y fixed to y*
// with the carryover-replaces-a-setup rule of spec.md §4.4.
func rrStage3(ctx context.Context, inst *instance.Instance, opts Options, yFinal, lambdaStar [][]float64) (milp.OracleOutcome, *builder.Handle, StageRecord, error) {
	profile := builder.AllFixed(yFinal, lambdaStar)
	start := time.Now()
	model, h, err := builder.Build(inst, profile, builder.Augmentation{})
	if err != nil {
		return milp.OracleOutcome{}, nil, StageRecord{}, err
	}
	outcome := opts.Oracle.Solve(ctx, model, opts.solveOptions())
	elapsed := time.Since(start)

	if outcome.Status == milp.StatusNoIncumbent {
		return outcome, h, StageRecord{Stage: 3, Objective: -1, Elapsed: elapsed, Feasible: false}, nil
	}
	return outcome, h, StageRecord{Stage: 3, Objective: outcome.Objective, Elapsed: elapsed, Gap: outcome.Gap, Feasible: true}, nil
}

// applyCarryoverReplacement implements spec.md §4.4 stage 3's y
// adjustment: where λ*_{g,t}=1, the carryover replaces an explicit
// setup, so y_{g,t} is forced to 0; elsewhere y_{g,t}=y*_{g,t}.
func applyCarryoverReplacement(yStar, lambdaStar [][]float64) [][]float64 {
	out := cloneMatrix(yStar)
	for g := range out {
		for t := range out[g] {
			if lambdaStar[g][t] == 1 {
				out[g][t] = 0
			}
		}
	}
	return out
}

func onesVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
