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

/*
Package milp models and solves mixed-integer linear programs.

It is a thin, goroutine-safe wrapper around lp_solve, shaped so that a
driver never talks to the solver library directly: a Model is built up
from Variables and Constraints, handed to Solve (or SolveWithContext for
deadline-bound calls), and read back through the returned SolveResult.

	model, _ := milp.NewModel("lot", milp.Minimize)
	x, _ := model.AddDefinedVariable("x", milp.ContinuousVariable, 1, 0, 40)
	model.AddConstraint(0, 10, []*milp.Variable{x}, []float64{1})
	res, _ := model.Solve()
	fmt.Println(res.Value(x))
*/
package milp

// #cgo linux LDFLAGS: -llpsolve55
// #cgo darwin LDFLAGS: -L/usr/local/lib -llpsolve55
// #cgo darwin CFLAGS: -I/usr/local/include
// #include <lp_lib.h>
// #include <stdlib.h>
/*
// https://golang.org/issue/19837
extern int abortCallback(lprec *lp, void *userhandle);
extern void logCallback(lprec *lp, void *userhandle, char *buf);
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"
	"unsafe"
)

/* Types */

// Model is a mutable handle to a single MILP/LP instance. It is the
// "model handle" the oracle interface in this package operates on:
// drivers build one per sub-problem, hand it to an Oracle, and read
// values back from the SolveResult it returns.
type Model struct {
	mu     sync.RWMutex
	prob   *C.lprec
	vars   []*Variable
	logger Logger
}

type Direction C.uchar

const (
	Minimize = Direction(C.FALSE)
	Maximize = Direction(C.TRUE)
)

/* Model related functions */

// NewModel instantiates a new linear programming model, providing a
// name (purely informational) and an optimization direction.
func NewModel(name string, dir Direction, opts ...Option) (*Model, error) {
	prob := C.make_lp(0, 0)

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	C.set_lp_name(prob, cName)
	C.set_sense(prob, C.uchar(dir))

	model := &Model{
		prob:   prob,
		logger: noopLogger{},
	}

	for _, opt := range opts {
		if err := opt(model); err != nil {
			return nil, fmt.Errorf("applying model option: %w", err)
		}
	}

	model.finishInitialization()

	return model, nil
}

// finishInitialization performs steps common to NewModel and Clone.
func (model *Model) finishInitialization() {
	C.put_logfunc(model.prob, (*C.lphandlestr_func)(C.logCallback), saveRef(model))
	C.set_outputfile(model.prob, C.CString(""))

	runtime.SetFinalizer(model, finalizeModel)
}

//export logCallback
func logCallback(prob *C.lprec, modelPtr unsafe.Pointer, msg *C.char) {
	model, ok := loadRef(modelPtr).(*Model)
	if !ok {
		return
	}

	model.logger.Print(C.GoString(msg))
}

func finalizeModel(model *Model) {
	C.delete_lp(model.prob)
}

// Clone returns a deep copy of the model, including its variables, so
// the copy can be mutated without disturbing the original.
func (model *Model) Clone() *Model {
	model.mu.RLock()
	defer model.mu.RUnlock()

	newProb := C.copy_lp(model.prob)
	newVars := make([]*Variable, len(model.vars))
	newModel := &Model{
		prob:   newProb,
		logger: model.logger,
	}

	for i, v := range model.vars {
		newVars[i] = &Variable{
			model: newModel,
			index: v.index,
		}
	}

	newModel.vars = newVars
	newModel.finishInitialization()

	return newModel
}

// Name returns the name provided upon instantiation of a model.
func (model *Model) Name() string {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return C.GoString(C.get_lp_name(model.prob))
}

// SetDirection changes the direction of the model's optimization.
func (model *Model) SetDirection(dir Direction) {
	model.mu.Lock()
	defer model.mu.Unlock()

	C.set_sense(model.prob, C.uchar(dir))
}

// Direction returns the model's current optimization direction.
func (model *Model) Direction() Direction {
	model.mu.RLock()
	defer model.mu.RUnlock()

	if C.is_maxim(model.prob) == C.TRUE {
		return Maximize
	}
	return Minimize
}

/* Column-related functions */

// VariableCount returns the number of columns currently in the model.
func (model *Model) VariableCount() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return int(C.get_Ncolumns(model.prob))
}

// Variables returns a copy of the model's variable slice.
func (model *Model) Variables() []*Variable {
	model.mu.RLock()
	defer model.mu.RUnlock()

	out := make([]*Variable, len(model.vars))
	copy(out, model.vars)
	return out
}

// AddVariable adds a continuous, unbounded variable with objective
// coefficient 1.
func (model *Model) AddVariable(name string) (v *Variable, err error) {
	return model.AddDefinedVariable(name, ContinuousVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddBinaryVariable adds a {0,1} variable with objective coefficient 1.
func (model *Model) AddBinaryVariable(name string) (v *Variable, err error) {
	return model.AddDefinedVariable(name, BinaryVariable, 1, 0, 1)
}

// AddIntegerVariable adds an unbounded integer variable with
// objective coefficient 1.
func (model *Model) AddIntegerVariable(name string) (v *Variable, err error) {
	return model.AddDefinedVariable(name, IntegerVariable, 1, math.Inf(-1), math.Inf(1))
}

// AddDefinedVariable adds a variable with all attributes given up
// front. If varType is BinaryVariable, bounds are ignored (lp_solve
// always uses [0,1] for binaries).
func (model *Model) AddDefinedVariable(name string, varType VariableType, coefficient, lowerBound, upperBound float64) (v *Variable, err error) {
	size := model.VariableCount()

	func() {
		model.mu.Lock()
		defer model.mu.Unlock()

		v = new(Variable)
		v.index = size
		v.model = model
		model.vars = append(model.vars, v)

		// adding a column after constraints exist assumes it is unused
		// in every existing row, which is what we want here.
		C.add_columnex(model.prob, 0, nil, nil)

		if name == "" {
			name = fmt.Sprintf("V%d", size)
		}

		cName := C.CString(name)
		defer C.free(unsafe.Pointer(cName))

		C.set_col_name(model.prob, C.int(v.index+1), cName)
	}()

	v.SetType(varType)
	v.SetObjectiveCoefficient(coefficient)
	if varType != BinaryVariable {
		v.SetBounds(lowerBound, upperBound)
	}

	return
}

// SetObjectiveFunction sets the objective function coefficients for a
// set of variables in one call.
func (model *Model) SetObjectiveFunction(coefs []float64, vars []*Variable) error {
	if len(coefs) != len(vars) {
		return fmt.Errorf("inconsistent number of variables and coefficients: %d != %d", len(vars), len(coefs))
	}
	for i, v := range vars {
		v.SetObjectiveCoefficient(coefs[i])
	}
	return nil
}

/* Constraint-related functions */

// ConstraintCount returns the number of rows currently in the model.
func (model *Model) ConstraintCount() int {
	model.mu.RLock()
	defer model.mu.RUnlock()

	return int(C.get_Nrows(model.prob))
}

// AddConstraint adds lower <= sum(coefs[i]*vars[i]) <= upper. Passing
// math.Inf(-1) for lower or math.Inf(1) for upper drops that side; an
// equal lower and upper produces an equality row.
func (model *Model) AddConstraint(lower, upper float64, vars []*Variable, coefs []float64) error {
	if len(vars) != len(coefs) {
		return fmt.Errorf("inconsistent number of variables and coefficients: %d != %d", len(vars), len(coefs))
	}
	if len(vars) == 0 {
		return nil
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	row := make([]C.REAL, len(vars))
	colno := make([]C.int, len(vars))
	for i, v := range vars {
		colno[i] = C.int(v.index + 1)
		row[i] = C.REAL(coefs[i])
	}

	switch {
	case math.IsInf(lower, 0) && math.IsInf(upper, 0):
		// no-op constraint
	case math.IsInf(lower, 0):
		C.add_constraintex(model.prob, C.int(len(vars)), &row[0], &colno[0], C.LE, C.double(upper))
	case math.IsInf(upper, 0):
		C.add_constraintex(model.prob, C.int(len(vars)), &row[0], &colno[0], C.GE, C.double(lower))
	case upper == lower:
		C.add_constraintex(model.prob, C.int(len(vars)), &row[0], &colno[0], C.EQ, C.double(upper))
	default:
		C.add_constraintex(model.prob, C.int(len(vars)), &row[0], &colno[0], C.LE, C.double(upper))
		C.add_constraintex(model.prob, C.int(len(vars)), &row[0], &colno[0], C.GE, C.double(lower))
	}

	return nil
}

// SetMIPGapTolerance configures the relative gap lp_solve stops
// branching at. Drivers use this to bound sub-problem solve effort
// instead of chasing proven optimality on every call.
func (model *Model) SetMIPGapTolerance(relativeGap float64) {
	model.mu.Lock()
	defer model.mu.Unlock()

	C.set_mip_gap(model.prob, C.FALSE, C.double(relativeGap))
}

// Solve attempts to find an optimal (or, on timeout, best-known)
// solution. A (res, nil) return with res.Status() == SolutionSuboptimal
// means a feasible incumbent exists but optimality was not proven; a
// (nil, err) return where err is a SolveError means no incumbent was
// found at all (spec: "no solution" signal).
func (model *Model) Solve() (res *SolveResult, err error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	res = new(SolveResult)
	res.model = model

	ret := C.solve(model.prob)

	switch ret {
	case C.OPTIMAL, C.SUBOPTIMAL:
		res.status = SolveStatus(ret)
		return res, nil
	case C.INFEASIBLE, C.UNBOUNDED, C.DEGENERATE, C.NUMFAILURE,
		C.USERABORT, C.TIMEOUT, C.PROCFAIL, C.PROCBREAK, C.FEASFOUND,
		C.NOFEASFOUND, C.NOMEMORY:
		return nil, SolveError(ret)
	default:
		panic("unrecognized result")
	}
}

//export abortCallback
func abortCallback(prob *C.lprec, ctxPtr unsafe.Pointer) C.int {
	ctx, ok := loadRef(ctxPtr).(context.Context)
	if ok && ctx.Err() != nil {
		return C.TRUE
	}

	return C.FALSE
}

// SolveWithContext wraps Solve with a deadline: if ctx is cancelled or
// times out mid-search, lp_solve aborts and returns whatever incumbent
// it has found so far (status SolutionSuboptimal) rather than erroring,
// unless no incumbent was ever found.
func (model *Model) SolveWithContext(ctx context.Context) (res *SolveResult, err error) {
	C.put_abortfunc(model.prob, (*C.lphandle_intfunc)(C.abortCallback), saveRef(ctx))
	defer C.put_abortfunc(model.prob, nil, nil)

	ret, err := model.Solve()

	if errors.Is(err, ErrUserAbort) {
		return ret, ctx.Err()
	}

	return ret, err
}

// SolveWithOptions is the entry point every Oracle implementation in
// this package solves through: it applies opts' gap tolerance before
// branching starts, derives a deadline from opts.TimeLimit (an hour
// when the caller left it unset, matching the unbounded default spec §9
// assumes an oracle otherwise has), and delegates to SolveWithContext.
// Threads/ScratchDir/WorkMemMB are opts fields lp_solve has no native
// use for; callers that want them surfaced anywhere log them themselves.
func (model *Model) SolveWithOptions(ctx context.Context, opts SolveOptions) (res *SolveResult, err error) {
	if opts.GapTolerance > 0 {
		model.SetMIPGapTolerance(opts.GapTolerance)
	}

	deadline := opts.TimeLimit
	if deadline <= 0 {
		deadline = time.Hour
	}
	solveCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	return model.SolveWithContext(solveCtx)
}
