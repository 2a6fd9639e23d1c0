package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
)

func twoOrderInstance() *instance.Instance {
	return &instance.Instance{
		CaseID:   "aggregate-fixture",
		Periods:  2,
		Capacity: 100,
		Orders: []instance.Order{
			{ID: "a", Group: 0, Flow: 0, Demand: 50, Early: 0, Due: 0, UnitUsage: 1, UnitCost: 2, BackorderPt: 5, UnmetPt: 1000},
			{ID: "b", Group: 0, Flow: 0, Demand: 30, Early: 0, Due: 1, UnitUsage: 1, UnitCost: 2, BackorderPt: 5, UnmetPt: 1000},
		},
		Families: []instance.Family{{SetupUsage: 10, SetupCost: 100}},
		Flows:    []instance.Flow{{InventoryCost: 1, Downstream: []float64{100, 100}}},
	}
}

func TestComputeBreakdownMatchesHandComputedCosts(t *testing.T) {
	inst := twoOrderInstance()
	values := driver.Values{
		X:      [][]float64{{50, 0}, {0, 30}},
		B:      [][]float64{{0, 0}, {0, 0}},
		I:      [][]float64{{0, 0}},
		P:      [][]float64{{0, 0}},
		Y:      [][]float64{{1, 1}},
		Lambda: [][]float64{{0, 0}},
		U:      []float64{0, 0},
	}

	got := Compute(inst, values)

	want := Breakdown{
		Production: 2*50 + 2*30, // 160
		Setup:      100 + 100,   // 200
		Inventory:  0,
		Backorder:  0,
		Unmet:      0,
	}
	if diff := cmp.Diff(want, got.Breakdown); diff != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, got.SetupCount)
	assert.Equal(t, 0, got.CarryoverCount)
	assert.Equal(t, 0.0, got.SavedSetupCost)
	assert.Equal(t, 1.0, got.OnTimeRate)
	assert.Equal(t, 0.0, got.UnmetRate)
}

func TestComputeCarryoverSavesSetupCost(t *testing.T) {
	inst := twoOrderInstance()
	values := driver.Values{
		X:      [][]float64{{50, 0}, {0, 30}},
		B:      [][]float64{{0, 0}, {0, 0}},
		I:      [][]float64{{0, 0}},
		P:      [][]float64{{0, 0}},
		Y:      [][]float64{{1, 0}},
		Lambda: [][]float64{{0, 1}},
		U:      []float64{0, 0},
	}

	got := Compute(inst, values)
	assert.Equal(t, 1, got.SetupCount)
	assert.Equal(t, 1, got.CarryoverCount)
	assert.InDelta(t, 100, got.SavedSetupCost, 1e-9)
}

func TestComputeUnmetOrderCountsAgainstRateNotOnTime(t *testing.T) {
	inst := twoOrderInstance()
	values := driver.Values{
		X:      [][]float64{{0, 0}, {0, 30}},
		B:      [][]float64{{50, 50}, {0, 0}},
		I:      [][]float64{{0, 0}},
		P:      [][]float64{{0, 0}},
		Y:      [][]float64{{0, 1}},
		Lambda: [][]float64{{0, 0}},
		U:      []float64{1, 0},
	}

	got := Compute(inst, values)
	assert.InDelta(t, 0.5, got.OnTimeRate, 1e-9)
	assert.InDelta(t, 0.5, got.UnmetRate, 1e-9)
}

func TestComputeUtilizationReflectsCapacityUsage(t *testing.T) {
	inst := twoOrderInstance() // capacity 100, setup usage 10
	values := driver.Values{
		X:      [][]float64{{50, 0}, {0, 30}},
		B:      [][]float64{{0, 0}, {0, 0}},
		I:      [][]float64{{0, 0}},
		P:      [][]float64{{0, 0}},
		Y:      [][]float64{{1, 1}},
		Lambda: [][]float64{{0, 0}},
		U:      []float64{0, 0},
	}

	got := Compute(inst, values)
	require.Len(t, got.Utilization, 2)
	assert.InDelta(t, 0.60, got.Utilization[0], 1e-9) // (50+10)/100
	assert.InDelta(t, 0.40, got.Utilization[1], 1e-9) // (30+10)/100
	assert.InDelta(t, 0.60, got.UtilizationMax, 1e-9)
	assert.InDelta(t, 0.50, got.UtilizationAvg, 1e-9)
}
