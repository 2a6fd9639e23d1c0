package milp

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantiation(t *testing.T) {
	name := "test model 1"
	model, err := NewModel(name, Maximize)
	require.NoError(t, err)

	assert.Equal(t, name, model.Name())
	assert.Equal(t, Maximize, model.Direction())
}

func TestClone(t *testing.T) {
	model, err := NewModel("test model 1", Maximize)
	require.NoError(t, err)

	v, err := model.AddDefinedVariable("x", ContinuousVariable, 1, 2, 3)
	require.NoError(t, err)

	require.NoError(t, model.AddConstraint(0, 1, []*Variable{v}, []float64{1}))

	clone := model.Clone()

	assert.Equal(t, model.Name(), clone.Name())
	assert.Equal(t, model.Direction(), clone.Direction())
	assert.Equal(t, model.VariableCount(), clone.VariableCount())
	assert.Equal(t, model.ConstraintCount(), clone.ConstraintCount())
}

func TestAddVariableWithDetails(t *testing.T) {
	model, err := NewModel("test", Maximize)
	require.NoError(t, err)

	v1, err := model.AddDefinedVariable("x", BinaryVariable, 3.1416, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, BinaryVariable, v1.Type())

	v2, err := model.AddDefinedVariable("y", IntegerVariable, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, IntegerVariable, v2.Type())
}

func TestFixRoundTrip(t *testing.T) {
	model, err := NewModel("test", Minimize)
	require.NoError(t, err)

	v, err := model.AddDefinedVariable("y", BinaryVariable, 1, 0, 1)
	require.NoError(t, err)

	v.SetType(ContinuousVariable)
	v.Fix(1)

	lo, hi := v.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestSimpleSolve(t *testing.T) {
	model, err := NewModel("simple", Maximize)
	require.NoError(t, err)

	x1, err := model.AddDefinedVariable("x1", ContinuousVariable, 1, 0, 40)
	require.NoError(t, err)
	x2, err := model.AddVariable("x2")
	require.NoError(t, err)
	x2.SetObjectiveCoefficient(2)
	x3, err := model.AddDefinedVariable("x3", ContinuousVariable, -3, 5, 11)
	require.NoError(t, err)

	require.NoError(t, model.AddConstraint(0, 10, []*Variable{x1, x2, x3}, []float64{-1, 1, 5.3}))
	require.NoError(t, model.AddConstraint(math.Inf(-1), 20, []*Variable{x1, x2, x3}, []float64{2, -5, 3}))
	require.NoError(t, model.AddConstraint(0, 0, []*Variable{x1, x3}, []float64{1, -8}))

	res, err := model.Solve()
	require.NoError(t, err)
	assert.Equal(t, SolutionOptimal, res.Status())
}

func TestSolveWithContextTimeout(t *testing.T) {
	model, err := NewModel("ctx", Minimize)
	require.NoError(t, err)

	v, err := model.AddDefinedVariable("x", ContinuousVariable, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, model.AddConstraint(0, 1, []*Variable{v}, []float64{1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = model.SolveWithContext(ctx)
	if err != nil {
		assert.Error(t, err)
	}
}

// SolveWithOptions applies SolveOptions.GapTolerance before solving, so
// an oracle that sets it never reaches a panic or an unconfigured
// branch-and-bound run; the option merely needs to flow through without
// disturbing an otherwise-trivial solve.
func TestSolveWithOptionsAppliesGapTolerance(t *testing.T) {
	model, err := NewModel("gap", Minimize)
	require.NoError(t, err)

	v, err := model.AddDefinedVariable("x", IntegerVariable, 1, 0, 10)
	require.NoError(t, err)
	require.NoError(t, model.AddConstraint(3, math.Inf(1), []*Variable{v}, []float64{1}))

	res, err := model.SolveWithOptions(context.Background(), SolveOptions{GapTolerance: 0.05})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Value(v))
}

func TestOracleNoIncumbentOnInfeasible(t *testing.T) {
	model, err := NewModel("infeasible", Minimize)
	require.NoError(t, err)

	v, err := model.AddDefinedVariable("x", ContinuousVariable, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, model.AddConstraint(2, 2, []*Variable{v}, []float64{1}))

	oracle := NewLPSolveOracle(nil)
	outcome := oracle.Solve(context.Background(), model, SolveOptions{TimeLimit: time.Second})
	assert.Equal(t, StatusNoIncumbent, outcome.Status)
}
