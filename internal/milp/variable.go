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

import (
	"fmt"
	"math"
)

// Variable is a single column of a Model. It is only meaningful
// together with the Model it was created from.
type Variable struct {
	model *Model
	index int
}

type VariableType int

const (
	ContinuousVariable VariableType = iota
	IntegerVariable
	BinaryVariable
)

// Name returns the variable's column name.
func (v *Variable) Name() string {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return C.GoString(C.get_col_name(v.model.prob, C.int(v.index+1)))
}

// SetType changes the variable's domain. Relaxing a binary to
// ContinuousVariable does not reset its [0,1] bounds; callers that
// relax y/lambda per the variable-class profile (spec §4.1) rely on
// this to keep the bound box intact across the transition.
func (v *Variable) SetType(vartype VariableType) {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	switch vartype {
	case BinaryVariable:
		C.set_binary(v.model.prob, C.int(v.index+1), C.TRUE)
	case IntegerVariable:
		C.set_int(v.model.prob, C.int(v.index+1), C.TRUE)
	case ContinuousVariable:
		C.set_int(v.model.prob, C.int(v.index+1), C.FALSE)
	}
}

// Type reports whether the variable is currently integer-constrained.
func (v *Variable) Type() VariableType {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	if C.is_int(v.model.prob, C.int(v.index+1)) == C.TRUE {
		lo, hi := v.bounds()
		if lo == 0 && hi == 1 {
			return BinaryVariable
		}
		return IntegerVariable
	}
	return ContinuousVariable
}

// SetBounds sets the variable's lower and upper bounds. Passing
// math.Inf(-1)/math.Inf(1) drops the respective side; an equal lower
// and upper fixes the variable (used by the builder to implement the
// FIXED variable class).
func (v *Variable) SetBounds(lower, upper float64) {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	switch {
	case math.IsInf(lower, 0) && math.IsInf(upper, 0):
		C.set_unbounded(v.model.prob, C.int(v.index+1))
	default:
		if math.IsInf(lower, -1) {
			lower = -1e30
		}
		if math.IsInf(upper, 1) {
			upper = 1e30
		}
		C.set_bounds(v.model.prob, C.int(v.index+1), C.REAL(lower), C.REAL(upper))
	}
}

// Fix pins the variable to a single value, implementing the FIXED
// variable class from the MILP builder's profile.
func (v *Variable) Fix(value float64) {
	v.SetBounds(value, value)
}

func (v *Variable) bounds() (lower, upper float64) {
	return float64(C.get_lowbo(v.model.prob, C.int(v.index+1))), float64(C.get_upbo(v.model.prob, C.int(v.index+1)))
}

// Bounds returns the variable's current lower and upper bounds.
func (v *Variable) Bounds() (lower, upper float64) {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return v.bounds()
}

// SetObjectiveCoefficient sets the variable's coefficient in the
// objective row.
func (v *Variable) SetObjectiveCoefficient(coef float64) {
	v.model.mu.Lock()
	defer v.model.mu.Unlock()

	C.set_obj(v.model.prob, C.int(v.index+1), C.REAL(coef))
}

// ObjectiveCoefficient returns the variable's current objective
// coefficient.
func (v *Variable) ObjectiveCoefficient() float64 {
	v.model.mu.RLock()
	defer v.model.mu.RUnlock()

	return float64(C.get_mat(v.model.prob, 0, C.int(v.index+1)))
}

func (v *Variable) String() string {
	return fmt.Sprintf("Variable(%s)", v.Name())
}
