package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

func trivialInstance() *instance.Instance {
	return &instance.Instance{
		CaseID:   "trivial",
		Periods:  3,
		Capacity: 1000,
		Orders: []instance.Order{
			{ID: "order_1", Group: 0, Flow: 0, Demand: 500, Early: 0, Due: 2, UnitUsage: 1, UnitCost: 1, BackorderPt: 100, UnmetPt: 10000},
		},
		Families: []instance.Family{{SetupUsage: 0, SetupCost: 0}},
		Flows:    []instance.Flow{{InventoryCost: 1, Downstream: []float64{1000, 1000, 1000}}},
	}
}

func TestBuildProducesExpectedDimensions(t *testing.T) {
	inst := trivialInstance()
	profile := NewProfile(inst.G(), inst.T())
	model, h, err := Build(inst, profile, Augmentation{})
	require.NoError(t, err)
	require.NotNil(t, model)

	assert.Len(t, h.X, 1)
	assert.Len(t, h.X[0], 3)
	assert.Len(t, h.Y, 1)
	assert.Len(t, h.Lambda, 1)
	assert.Len(t, h.I, 1)
	assert.Len(t, h.U, 1)
	assert.Nil(t, h.Z)
}

func TestBuildEarlyReleaseFixesProductionToZero(t *testing.T) {
	inst := trivialInstance()
	inst.Orders[0].Early = 1
	profile := NewProfile(inst.G(), inst.T())
	_, h, err := Build(inst, profile, Augmentation{})
	require.NoError(t, err)

	lo, hi := h.X[0][0].Bounds()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}

func TestBuildNoLambdaOmitsCarryoverVariable(t *testing.T) {
	inst := trivialInstance()
	profile := NewProfile(inst.G(), inst.T())
	_, h, err := Build(inst, profile, Augmentation{NoLambda: true, CapacityMultiplier: 10})
	require.NoError(t, err)
	assert.Nil(t, h.Lambda)
}

func TestBuildConsecutiveBonusAddsZVariables(t *testing.T) {
	inst := trivialInstance()
	profile := NewProfile(inst.G(), inst.T())
	_, h, err := Build(inst, profile, Augmentation{NoLambda: true, ConsecutiveBonusAlpha: 5})
	require.NoError(t, err)
	require.NotNil(t, h.Z)
	assert.Len(t, h.Z[0], inst.T())
}

// addCarryoverConstraints' non-conflict row must sum -1 over every
// other family at once, not charge each pair independently: with G=3,
// family 0 carrying a setup over from t-1 (lambda_{0,1}=lambda_{0,2}=1,
// y_{0,2}=1) while only family 1 also sets up at t=2 (y_{1,2}=1) and
// family 2 stays idle (y_{2,2}=0), spec.md §3's aggregate formula
// permits it (1+1+1-(1+0)=2<=2); a per-pair decomposition would reject
// it against family 2's idle pair (1+1+1-0=3>2) even though nothing
// about family 2 conflicts with the carryover.
func TestCarryoverNonConflictSumsAllOtherFamiliesAtOnce(t *testing.T) {
	g, t := 3, 3
	model, err := milp.NewModel("carryover-g3", milp.Minimize)
	require.NoError(t, err)

	h := &Handle{Y: make([][]*milp.Variable, g), Lambda: make([][]*milp.Variable, g)}
	for gg := 0; gg < g; gg++ {
		h.Y[gg] = make([]*milp.Variable, t)
		h.Lambda[gg] = make([]*milp.Variable, t)
		for tt := 0; tt < t; tt++ {
			yv, err := model.AddDefinedVariable("", milp.BinaryVariable, 0, 0, 1)
			require.NoError(t, err)
			h.Y[gg][tt] = yv
			lv, err := model.AddDefinedVariable("", milp.BinaryVariable, 0, 0, 1)
			require.NoError(t, err)
			h.Lambda[gg][tt] = lv
		}
	}

	require.NoError(t, addCarryoverConstraints(model, g, t, h))

	fix := func(v *milp.Variable, val float64) {
		require.NoError(t, model.AddConstraint(val, val, []*milp.Variable{v}, []float64{1}))
	}
	fix(h.Lambda[0][1], 1)
	fix(h.Lambda[0][2], 1)
	fix(h.Y[0][2], 1)
	fix(h.Y[1][2], 1)
	fix(h.Y[2][2], 0)

	_, err = model.Solve()
	assert.NoError(t, err, "aggregate non-conflict form must admit this schedule")
}

func TestTrivialSingleOrderSolvesToSpecObjective(t *testing.T) {
	inst := trivialInstance()
	profile := NewProfile(inst.G(), inst.T())
	for g := range profile.YClass {
		for tt := range profile.YClass[g] {
			profile.YClass[g][tt] = ClassFixed
			profile.LambdaClass[g][tt] = ClassFixed
			profile.YFixed[g][tt] = 1
		}
	}
	profile.UIntegral = true

	model, h, err := Build(inst, profile, Augmentation{})
	require.NoError(t, err)

	res, err := model.Solve()
	require.NoError(t, err)

	total := 0.0
	for tt := 0; tt < inst.T(); tt++ {
		total += res.Value(h.X[0][tt])
	}
	assert.InDelta(t, 500, total, 1e-6)
	assert.InDelta(t, 0, res.Value(h.U[0]), 1e-6)
	assert.InDelta(t, 500, res.ObjectiveValue(), 1e-6)
}
