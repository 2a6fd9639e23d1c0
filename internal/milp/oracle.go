package milp

import (
	"context"
	"time"
)

// OracleStatus classifies what an Oracle call returned, independent of
// the underlying solver's own status codes.
type OracleStatus int

const (
	// StatusOptimal: proven-optimal incumbent.
	StatusOptimal OracleStatus = iota
	// StatusFeasible: a feasible incumbent exists but optimality was
	// not proven (deadline hit, spec §7 DeadlineExceeded).
	StatusFeasible
	// StatusNoIncumbent: the oracle has nothing to offer (spec §7
	// InfeasibleSubproblem / OracleError).
	StatusNoIncumbent
)

// OracleOutcome is the decoupled result shape from spec §9: "solve
// (model_handle, time_limit, threads) -> {status, objective, gap,
// value_lookup}". Drivers are written against this, not against *milp.
type OracleOutcome struct {
	Status    OracleStatus
	Objective float64
	Gap       float64
	Result    *SolveResult // nil when Status == StatusNoIncumbent
	Err       error        // underlying solve error; LPSolveOracle sets it only with StatusNoIncumbent
}

// Value reads back a variable's primal value, or 0 if no incumbent
// was found. Convenience so callers don't have to nil-check Result.
func (o OracleOutcome) Value(v *Variable) float64 {
	if o.Result == nil {
		return 0
	}
	return o.Result.Value(v)
}

// SolveOptions bundles the tuning knobs spec §2/§6 hands to the
// oracle: a wall-clock deadline, a relative MIP gap tolerance, a thread
// count, and working-memory hints. lp_solve has no native
// multi-threaded branch-and-bound, so Threads/ScratchDir/WorkMemMB are
// accepted and surfaced to the logger for parity with the CLI surface
// (--cplex-threads etc.) but do not change solver behavior; see
// DESIGN.md. GapTolerance, by contrast, is a real lp_solve knob:
// Model.SolveWithOptions applies it before every branch-and-bound call.
type SolveOptions struct {
	TimeLimit    time.Duration
	GapTolerance float64
	Threads      int
	ScratchDir   string
	WorkMemMB    int
}

// Logger receives lp_solve's internal log lines plus the oracle's own
// hint-ignored notices. Model.finishInitialization wires it in as a
// cgo callback; WithLogger lets a caller route it anywhere, defaulting
// to noopLogger when none is given.
type Logger interface {
	Print(v ...interface{})
}

type noopLogger struct{}

func (noopLogger) Print(v ...interface{}) {}

// Oracle is the narrow interface every driver is written against
// (spec §9): "Rather than speaking directly to the MILP library
// everywhere, define a narrow oracle interface." A driver never
// imports lp_solve types beyond *Model/*Variable; swapping solver
// brands means swapping the Oracle implementation.
type Oracle interface {
	Solve(ctx context.Context, model *Model, opts SolveOptions) OracleOutcome
}

// LPSolveOracle is the production Oracle backed by this package's
// cgo lp_solve Model.
type LPSolveOracle struct {
	logger Logger
}

// NewLPSolveOracle builds an Oracle around lp_solve, logging thread
// and scratch hints it cannot honor natively.
func NewLPSolveOracle(logger Logger) *LPSolveOracle {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LPSolveOracle{logger: logger}
}

func (o *LPSolveOracle) Solve(ctx context.Context, model *Model, opts SolveOptions) OracleOutcome {
	if opts.Threads > 1 || opts.ScratchDir != "" || opts.WorkMemMB > 0 {
		o.logger.Print("[oracle] lp_solve ignores threads/scratch/workmem hints: ",
			opts.Threads, " ", opts.ScratchDir, " ", opts.WorkMemMB)
	}

	res, err := model.SolveWithOptions(ctx, opts)
	if err != nil {
		return OracleOutcome{Status: StatusNoIncumbent, Err: err}
	}

	outcome := OracleOutcome{Result: res, Objective: res.ObjectiveValue(), Gap: res.Gap()}
	if res.Status() == SolutionOptimal {
		outcome.Status = StatusOptimal
	} else {
		outcome.Status = StatusFeasible
	}
	return outcome
}
