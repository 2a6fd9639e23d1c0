/*
Copyright © 2015-2022 Leo Antunes <leo@costela.net>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package milp

// #cgo linux LDFLAGS: -llpsolve55
// #cgo darwin LDFLAGS: -L/usr/local/lib -llpsolve55
// #cgo darwin CFLAGS: -I/usr/local/include
// #include <lp_lib.h>
// #include <stdlib.h>
import "C"

/* Types */

type SolveResult struct {
	model  *Model
	status SolveStatus
}

type SolveStatus C.int

const (
	SolutionOptimal    = SolveStatus(C.OPTIMAL)
	SolutionSuboptimal = SolveStatus(C.SUBOPTIMAL)
)

type SolveError C.int

const (
	ErrBranchCutBreak   = SolveError(C.PROCBREAK)
	ErrBranchCutFail    = SolveError(C.PROCFAIL)
	ErrFeasibleFound    = SolveError(C.FEASFOUND)
	ErrModelDegenerate  = SolveError(C.DEGENERATE)
	ErrModelInfeasible  = SolveError(C.INFEASIBLE)
	ErrModelUnbounded   = SolveError(C.UNBOUNDED)
	ErrNoFeasibleFound  = SolveError(C.NOFEASFOUND)
	ErrNoMemory         = SolveError(C.NOMEMORY)
	ErrNumericalFailure = SolveError(C.NUMFAILURE)
	ErrTimeout          = SolveError(C.TIMEOUT)
	ErrUserAbort        = SolveError(C.USERABORT)
)

// Error returns a string representation of the given error value.
func (e SolveError) Error() string {
	switch e {
	case ErrBranchCutBreak:
		return "branch-and-cut stopped at breakpoint"
	case ErrBranchCutFail:
		return "branch-and-cut failure"
	case ErrFeasibleFound:
		return "feasible but non-integer solution found"
	case ErrModelDegenerate:
		return "model is degenerate"
	case ErrModelInfeasible:
		return "model is infeasible"
	case ErrModelUnbounded:
		return "model is unbounded"
	case ErrNoFeasibleFound:
		return "no feasible solution found"
	case ErrNoMemory:
		return "ran out of memory while solving"
	case ErrNumericalFailure:
		return "numerical failure while solving"
	case ErrTimeout:
		return "timeout occurred before any integer solution could be found"
	case ErrUserAbort:
		return "aborted by user abort function"
	default:
		return "unrecognized solve error"
	}
}

// IsNoIncumbent reports whether err represents the oracle's "no
// solution" signal (spec §4.1/§7 InfeasibleSubproblem) as opposed to a
// feasible-but-unproven incumbent, which Solve never turns into an
// error in the first place.
func IsNoIncumbent(err error) bool {
	var serr SolveError
	if !asSolveError(err, &serr) {
		return false
	}
	switch serr {
	case ErrModelInfeasible, ErrNoFeasibleFound, ErrTimeout, ErrModelUnbounded:
		return true
	default:
		return false
	}
}

func asSolveError(err error, out *SolveError) bool {
	if se, ok := err.(SolveError); ok {
		*out = se
		return true
	}
	return false
}

// Status reports if the solution is optimal or merely the best found
// before a deadline (SolutionSuboptimal).
func (res SolveResult) Status() SolveStatus {
	return res.status
}

// Value returns the computed value of v, an alias for PrimalValue.
func (res SolveResult) Value(v *Variable) float64 {
	return res.PrimalValue(v)
}

// PrimalValue returns the computed value of v for this result.
func (res SolveResult) PrimalValue(v *Variable) float64 {
	res.model.mu.RLock()
	defer res.model.mu.RUnlock()

	// get_var_*result uses funny indexing: 0=objective, 1..Nrows=constraint, Nrows+1..=variable
	return float64(C.get_var_primalresult(res.model.prob, C.int(v.index+v.model.ConstraintCount()+1)))
}

// ObjectiveValue returns the objective function's value. Only
// guaranteed optimal when Status() == SolutionOptimal.
func (res SolveResult) ObjectiveValue() float64 {
	res.model.mu.RLock()
	defer res.model.mu.RUnlock()

	return float64(C.get_objective(res.model.prob))
}

// Gap reports the relative optimality gap lp_solve was configured to
// accept. lp_solve does not expose the gap actually achieved at a
// suboptimal/timed-out incumbent, only the tolerance it was told to
// stop at, so a SolutionSuboptimal result surfaces that configured
// bound rather than a measured one; an optimal result has gap 0.
func (res SolveResult) Gap() float64 {
	if res.status == SolutionOptimal {
		return 0
	}
	res.model.mu.RLock()
	defer res.model.mu.RUnlock()

	return float64(C.get_mip_gap(res.model.prob, C.FALSE))
}
