// Package aggregate computes the derived metrics spec.md §4.5 defines
// over a driver's final decision tableau: cost breakdown, setup and
// carryover counts, on-time/unmet rates, and capacity utilization. It is
// a pure function of the Instance and a driver.Values tableau — no I/O,
// no solver dependency.
package aggregate

import (
	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
)

// Breakdown is the per-category cost split of the objective.
type Breakdown struct {
	Production float64
	Setup      float64
	Inventory  float64
	Backorder  float64
	Unmet      float64
}

// Total sums every category.
func (b Breakdown) Total() float64 {
	return b.Production + b.Setup + b.Inventory + b.Backorder + b.Unmet
}

// Metrics is the full spec.md §4.5 result: cost breakdown plus the
// setup/carryover/on-time/unmet/utilization figures.
type Metrics struct {
	Breakdown Breakdown

	SetupCount     int
	CarryoverCount int
	SavedSetupCost float64

	OnTimeRate float64
	UnmetRate  float64

	Utilization    []float64 // per period, in [0,1]
	UtilizationMax float64
	UtilizationAvg float64
}

// Compute derives Metrics from inst and a driver's final tableau. It
// assumes values is dimensioned to match inst (N, T, G, F); checking
// that is the caller's responsibility.
func Compute(inst *instance.Instance, values driver.Values) Metrics {
	var m Metrics
	m.Breakdown = computeBreakdown(inst, values)
	m.SetupCount, m.CarryoverCount, m.SavedSetupCost = computeSetupCounts(inst, values)
	m.OnTimeRate, m.UnmetRate = computeRates(inst, values)
	m.Utilization, m.UtilizationMax, m.UtilizationAvg = computeUtilization(inst, values)
	return m
}

func computeBreakdown(inst *instance.Instance, values driver.Values) Breakdown {
	var b Breakdown
	t := inst.T()

	for i, o := range inst.Orders {
		for tt := 0; tt < t; tt++ {
			b.Production += o.UnitCost * values.X[i][tt]
			if tt >= o.Due {
				b.Backorder += o.BackorderPt * values.B[i][tt]
			}
		}
		b.Unmet += o.UnmetPt * values.U[i]
	}

	for gg, fam := range inst.Families {
		for tt := 0; tt < t; tt++ {
			b.Setup += fam.SetupCost * values.Y[gg][tt]
		}
	}

	for ff, flow := range inst.Flows {
		for tt := 0; tt < t; tt++ {
			b.Inventory += flow.InventoryCost * values.I[ff][tt]
		}
	}

	return b
}

func computeSetupCounts(inst *instance.Instance, values driver.Values) (setups, carryovers int, saved float64) {
	t := inst.T()
	for gg, fam := range inst.Families {
		for tt := 0; tt < t; tt++ {
			if values.Y[gg][tt] == 1 {
				setups++
			}
			if len(values.Lambda) > gg && values.Lambda[gg][tt] == 1 {
				carryovers++
				saved += fam.SetupCost
			}
		}
	}
	return setups, carryovers, saved
}

func computeRates(inst *instance.Instance, values driver.Values) (onTime, unmet float64) {
	n := inst.N()
	if n == 0 {
		return 0, 0
	}

	var onTimeCount, unmetCount int
	for i, o := range inst.Orders {
		if values.U[i] == 1 {
			unmetCount++
			continue
		}
		if values.B[i][o.Due] < 0.5 {
			onTimeCount++
		}
	}
	return float64(onTimeCount) / float64(n), float64(unmetCount) / float64(n)
}

func computeUtilization(inst *instance.Instance, values driver.Values) (util []float64, max, avg float64) {
	t := inst.T()
	util = make([]float64, t)
	if inst.Capacity <= 0 {
		return util, 0, 0
	}

	var sum float64
	for tt := 0; tt < t; tt++ {
		var used float64
		for i, o := range inst.Orders {
			used += o.UnitUsage * values.X[i][tt]
		}
		for gg, fam := range inst.Families {
			used += fam.SetupUsage * values.Y[gg][tt]
		}
		u := used / inst.Capacity
		util[tt] = u
		sum += u
		if u > max {
			max = u
		}
	}
	if t > 0 {
		avg = sum / float64(t)
	}
	return util, max, avg
}
