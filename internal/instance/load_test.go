package instance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `CASE001
T,3
F,1
G,1
1000
5
40
N,2
100,200,300
order_1,1,1,120,0,2,1,10
order_2,1,1,80,1,2,1,12
`

func TestLoadFromParsesDimensionsAndOrders(t *testing.T) {
	inst, err := loadFrom(strings.NewReader(sampleCSV), LoadOptions{UnmetPenalty: 10000, BackorderPenalty: 100})
	require.NoError(t, err)

	assert.Equal(t, "CASE001", inst.CaseID)
	assert.Equal(t, 3, inst.T())
	assert.Equal(t, 1, inst.F())
	assert.Equal(t, 1, inst.G())
	require.Len(t, inst.Orders, 2)

	o0 := inst.Orders[0]
	assert.Equal(t, "order_1", o0.ID)
	assert.Equal(t, 0, o0.Group)
	assert.Equal(t, 0, o0.Flow)
	assert.Equal(t, 120.0, o0.Demand)
	assert.Equal(t, 0, o0.Early)
	assert.Equal(t, 2, o0.Due)
	assert.Equal(t, 10000.0, o0.UnmetPt)
	assert.Equal(t, 100.0, o0.BackorderPt)

	assert.Equal(t, []float64{100, 200, 300}, inst.Flows[0].Downstream)
	assert.Equal(t, 1000.0, inst.Families[0].SetupCost)
	assert.Equal(t, 40.0, inst.Families[0].SetupUsage)
}

func TestLoadFromDropsZeroDemandOrders(t *testing.T) {
	csv := strings.Replace(sampleCSV, "order_2,1,1,80,1,2,1,12", "order_2,1,1,0,1,2,1,12", 1)
	inst, err := loadFrom(strings.NewReader(csv), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, inst.Orders, 1)
}

func TestLoadFromRejectsContradictoryWindow(t *testing.T) {
	csv := strings.Replace(sampleCSV, "order_1,1,1,120,0,2,1,10", "order_1,1,1,120,2,0,1,10", 1)
	_, err := loadFrom(strings.NewReader(csv), LoadOptions{})
	require.Error(t, err)
	var ingestErr *IngestError
	assert.ErrorAs(t, err, &ingestErr)
}

func TestLoadFromRejectsOutOfRangeGroup(t *testing.T) {
	csv := strings.Replace(sampleCSV, "order_1,1,1,120,0,2,1,10", "order_1,5,1,120,0,2,1,10", 1)
	_, err := loadFrom(strings.NewReader(csv), LoadOptions{})
	require.Error(t, err)
}

func TestLoadFromAcceptsShortOrderCount(t *testing.T) {
	csv := strings.TrimSuffix(sampleCSV, "order_2,1,1,80,1,2,1,12\n")
	inst, err := loadFrom(strings.NewReader(csv), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, inst.Orders, 1)
}
