package builder

import (
	"fmt"
	"math"

	"github.com/yuemei-liu/lotplan/internal/milp"
)

// CarryoverHandle exposes the y (fixed) and λ variables of the small
// stage-2 model spec.md §4.4 describes: "only binary y, λ variables, no
// production, no inventory."
type CarryoverHandle struct {
	Y      [][]*milp.Variable // G x T, all fixed to yStar
	Lambda [][]*milp.Variable // G x T
}

// BuildCarryover assembles RR stage 2: y fixed to yStar, λ free binary,
// objective maximize Σ λ_{g,t}, subject to the carryover invariants plus
// the structural "carryover requires setup on both sides of the
// boundary" constraint 2λ_{g,t} <= y_{g,t-1}+y_{g,t} spec.md §4.4 adds
// for this stage only.
func BuildCarryover(yStar [][]float64) (*milp.Model, *CarryoverHandle, error) {
	g := len(yStar)
	t := 0
	if g > 0 {
		t = len(yStar[0])
	}

	model, err := milp.NewModel("lotplan/rr-stage2-carryover", milp.Maximize)
	if err != nil {
		return nil, nil, fmt.Errorf("building carryover model: %w", err)
	}

	h := &CarryoverHandle{
		Y:      make([][]*milp.Variable, g),
		Lambda: make([][]*milp.Variable, g),
	}

	for gg := 0; gg < g; gg++ {
		h.Y[gg] = make([]*milp.Variable, t)
		h.Lambda[gg] = make([]*milp.Variable, t)
		for tt := 0; tt < t; tt++ {
			yv, err := model.AddDefinedVariable(fmt.Sprintf("y_%d_%d", gg, tt), milp.ContinuousVariable, 0, yStar[gg][tt], yStar[gg][tt])
			if err != nil {
				return nil, nil, err
			}
			h.Y[gg][tt] = yv

			lv, err := model.AddDefinedVariable(fmt.Sprintf("lambda_%d_%d", gg, tt), milp.BinaryVariable, 1, 0, 1)
			if err != nil {
				return nil, nil, err
			}
			h.Lambda[gg][tt] = lv
		}
	}

	if err := addCarryoverConstraints(model, g, t, &Handle{Y: h.Y, Lambda: h.Lambda}); err != nil {
		return nil, nil, err
	}

	// 2*lambda_gt <= y_{g,t-1} + y_gt (carryover requires setup on both
	// sides of the boundary, spec.md §4.4 stage 2).
	for gg := 0; gg < g; gg++ {
		for tt := 1; tt < t; tt++ {
			if err := model.AddConstraint(math.Inf(-1), 0,
				[]*milp.Variable{h.Lambda[gg][tt], h.Y[gg][tt-1], h.Y[gg][tt]},
				[]float64{2, -1, -1}); err != nil {
				return nil, nil, err
			}
		}
	}

	return model, h, nil
}
