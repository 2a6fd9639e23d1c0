// Package driver implements the three decomposition drivers of spec.md
// §4.2-§4.4: Relax-and-Fix (RF), Relax-and-Fix + Fix-and-Optimize (RFO),
// and Relax-and-Recover (RR). Every driver is written only against
// internal/builder.Build and the internal/milp.Oracle interface (spec.md
// §9's "drivers are written against this, not against *milp"); none of
// them assembles a constraint directly.
package driver

import (
	"context"
	"time"

	"github.com/yuemei-liu/lotplan/internal/builder"
	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/logx"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

// epsilon is the objective-comparison tolerance of spec.md §9.
const epsilon = 1e-6

// Options carries the knobs every driver shares: the oracle to issue
// sub-problem solves against, the per-call time limit, and the logger
// status events are routed through (spec.md §6 "status events").
type Options struct {
	Oracle       milp.Oracle
	SubTimeLimit time.Duration
	GapTolerance float64
	Threads      int
	ScratchDir   string
	WorkMemMB    int
	Logger       *logx.Logger
}

func (o Options) solveOptions() milp.SolveOptions {
	return milp.SolveOptions{
		TimeLimit:    o.SubTimeLimit,
		GapTolerance: o.GapTolerance,
		Threads:      o.Threads,
		ScratchDir:   o.ScratchDir,
		WorkMemMB:    o.WorkMemMB,
	}
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

func (o Options) stageStart(stage int) {
	if o.Logger != nil {
		o.Logger.StageStart(stage)
	}
}

func (o Options) stageDone(stage int, objective float64, elapsed time.Duration, gap float64) {
	if o.Logger != nil {
		o.Logger.StageDone(stage, objective, elapsed, gap)
	}
}

// StageRecord is one entry of the per-stage objective/timing list spec.md
// §6's JSON output carries for RR's three stages (and for RF's single
// stage and RFO's two).
type StageRecord struct {
	Stage     int
	Objective float64
	Elapsed   time.Duration
	Gap       float64
	Feasible  bool
}

// Values is the decision-variable tableau a driver hands to the result
// aggregator: plain float64 grids, decoupled from the lp_solve model
// handles that produced them (those go out of scope once a driver
// returns).
type Values struct {
	X      [][]float64 // N x T
	Y      [][]float64 // G x T
	Lambda [][]float64 // G x T
	I      [][]float64 // F x T
	P      [][]float64 // F x T
	B      [][]float64 // N x T
	U      []float64   // N
}

// Result is a driver's final answer: the reported objective/gap, the
// per-stage history, and the decision tableau. Feasible is false only
// when every recovery avenue the driver has failed (spec.md §7's
// terminal infeasibility), in which case the caller should report
// objective -1. Values is then the zero value, except after an RR stage-3
// failure, where it carries stage 2's y*/λ* with every order unmet and
// zero production.
type Result struct {
	Algorithm string
	Feasible  bool
	Objective float64
	Gap       float64
	Elapsed   time.Duration
	Stages    []StageRecord
	Values    Values
}

// terminalInfeasible builds the Result-shaped summary spec.md §9 requires
// on terminal infeasibility: "the driver writes a summary with objective
// -1 ... only if the CLI was told to require success" does the exit code
// change, so a driver never returns a bare error here, only this Result
// with Feasible false and a zero-value Values.
func terminalInfeasible(algorithm string, stage int, elapsed time.Duration) *Result {
	return &Result{
		Algorithm: algorithm,
		Feasible:  false,
		Objective: -1,
		Elapsed:   elapsed,
		Stages:    []StageRecord{{Stage: stage, Objective: -1, Elapsed: elapsed, Feasible: false}},
	}
}

// extractValues reads back every variable in h through res into a Values
// tableau, rounding binaries through the 0.5 threshold. Continuous
// quantities are left unrounded; neither the aggregator nor the JSON
// output rounds them afterward.
func extractValues(inst *instance.Instance, h *builder.Handle, res *milp.SolveResult) Values {
	n, t, g, f := inst.N(), inst.T(), inst.G(), inst.F()
	v := Values{
		X:      make([][]float64, n),
		B:      make([][]float64, n),
		I:      make([][]float64, f),
		P:      make([][]float64, f),
		Y:      make([][]float64, g),
		Lambda: make([][]float64, g),
		U:      make([]float64, n),
	}
	for i := 0; i < n; i++ {
		v.X[i] = make([]float64, t)
		v.B[i] = make([]float64, t)
		for tt := 0; tt < t; tt++ {
			v.X[i][tt] = res.Value(h.X[i][tt])
			v.B[i][tt] = res.Value(h.B[i][tt])
		}
		v.U[i] = binary(res.Value(h.U[i]))
	}
	for ff := 0; ff < f; ff++ {
		v.I[ff] = make([]float64, t)
		v.P[ff] = make([]float64, t)
		for tt := 0; tt < t; tt++ {
			v.I[ff][tt] = res.Value(h.I[ff][tt])
			v.P[ff][tt] = res.Value(h.P[ff][tt])
		}
	}
	for gg := 0; gg < g; gg++ {
		v.Y[gg] = make([]float64, t)
		v.Lambda[gg] = make([]float64, t)
		for tt := 0; tt < t; tt++ {
			v.Y[gg][tt] = binary(res.Value(h.Y[gg][tt]))
			if h.Lambda != nil {
				v.Lambda[gg][tt] = binary(res.Value(h.Lambda[gg][tt]))
			}
		}
	}
	return v
}

// binary applies spec.md §9's 0.5 read-back threshold for binary
// variables.
func binary(v float64) float64 {
	if v > 0.5 {
		return 1
	}
	return 0
}

func zeroMatrix(g, t int) [][]float64 {
	m := make([][]float64, g)
	for i := range m {
		m[i] = make([]float64, t)
	}
	return m
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func ctxDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// deadlineExceeded reports whether the absolute deadline has passed.
// A zero deadline means "no budget", i.e. never exceeded.
func deadlineExceeded(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
