package result

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuemei-liu/lotplan/internal/aggregate"
	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
)

func fixtureInstance() *instance.Instance {
	return &instance.Instance{
		CaseID:   "result-fixture",
		Periods:  2,
		Capacity: 100,
		Orders: []instance.Order{
			{ID: "a", Group: 0, Flow: 0, Demand: 50, Early: 0, Due: 1, UnitUsage: 1, UnitCost: 1, BackorderPt: 1, UnmetPt: 100},
		},
		Families: []instance.Family{{SetupUsage: 0, SetupCost: 10}},
		Flows:    []instance.Flow{{InventoryCost: 0, Downstream: []float64{100, 100}}},
	}
}

func fixtureResult() *driver.Result {
	values := driver.Values{
		X:      [][]float64{{50, 0}},
		B:      [][]float64{{0, 0}},
		I:      [][]float64{{0, 0}},
		P:      [][]float64{{0, 0}},
		Y:      [][]float64{{1, 0}},
		Lambda: [][]float64{{0, 0}},
		U:      []float64{0},
	}
	return &driver.Result{
		Algorithm: "RF",
		Feasible:  true,
		Objective: 60,
		Gap:       0,
		Elapsed:   2500 * time.Millisecond,
		Stages:    []driver.StageRecord{{Stage: 1, Objective: 60, Elapsed: 2500 * time.Millisecond, Gap: 0, Feasible: true}},
		Values:    values,
	}
}

func TestBuildReportsOptimalWhenGapIsZero(t *testing.T) {
	inst := fixtureInstance()
	res := fixtureResult()
	metrics := aggregate.Compute(inst, res.Values)

	doc := Build("RF", "case.csv", inst, res, metrics)
	assert.Equal(t, "Optimal", doc.Summary.Status)
	assert.Equal(t, 0, doc.Summary.UnmetCount)
	assert.Equal(t, 1, len(doc.Summary.Steps))
	assert.Equal(t, []int{1, 2}, doc.Variables.X.Dimensions)
}

func TestBuildReportsFeasibleOnPositiveGap(t *testing.T) {
	inst := fixtureInstance()
	res := fixtureResult()
	res.Gap = 0.05
	metrics := aggregate.Compute(inst, res.Values)

	doc := Build("RFO", "case.csv", inst, res, metrics)
	assert.Equal(t, "Feasible", doc.Summary.Status)
}

func TestWriteProducesValidJSONWithExpectedShape(t *testing.T) {
	inst := fixtureInstance()
	res := fixtureResult()
	metrics := aggregate.Compute(inst, res.Values)
	doc := Build("RF", "case.csv", inst, res, metrics)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "problem")
	assert.Contains(t, decoded, "metrics")
	assert.Contains(t, decoded, "variables")

	variables := decoded["variables"].(map[string]interface{})
	x := variables["X"].(map[string]interface{})
	assert.Equal(t, "Production quantity", x["description"])
}
