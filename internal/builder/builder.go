package builder

import (
	"fmt"
	"math"

	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/milp"
)

// Handle exposes every decision variable of a built model back to the
// caller, keyed exactly as spec.md §3's variable table: x, y, λ, I, P, b,
// u, plus the auxiliary z (only non-nil when Augmentation.ConsecutiveBonusAlpha != 0).
type Handle struct {
	X      [][]*milp.Variable // N x T
	Y      [][]*milp.Variable // G x T
	Lambda [][]*milp.Variable // G x T; nil when Augmentation.NoLambda
	I      [][]*milp.Variable // F x T
	P      [][]*milp.Variable // F x T
	B      [][]*milp.Variable // N x T
	U      []*milp.Variable   // N
	Z      [][]*milp.Variable // G x T; nil unless a consecutive-setup bonus is active
}

// Build assembles the canonical MILP of spec.md §4.1 for inst under the
// given variable-class Profile and objective Augmentation. Every
// invariant of spec.md §3 is encoded here exactly once; RF, RFO, and RR
// never rebuild constraints themselves, they only vary profile/aug.
func Build(inst *instance.Instance, profile Profile, aug Augmentation) (*milp.Model, *Handle, error) {
	n, t, g, f := inst.N(), inst.T(), inst.G(), inst.F()

	model, err := milp.NewModel(fmt.Sprintf("lotplan/%s", inst.CaseID), milp.Minimize)
	if err != nil {
		return nil, nil, fmt.Errorf("building model: %w", err)
	}

	h := &Handle{
		X: make([][]*milp.Variable, n),
		B: make([][]*milp.Variable, n),
		I: make([][]*milp.Variable, f),
		P: make([][]*milp.Variable, f),
		Y: make([][]*milp.Variable, g),
		U: make([]*milp.Variable, n),
	}
	if !aug.NoLambda {
		h.Lambda = make([][]*milp.Variable, g)
	}
	if aug.ConsecutiveBonusAlpha != 0 {
		h.Z = make([][]*milp.Variable, g)
	}

	// x_{i,t}, b_{i,t}: continuous, x=0 before early release (spec §3
	// "Early release").
	for i, o := range inst.Orders {
		h.X[i] = make([]*milp.Variable, t)
		h.B[i] = make([]*milp.Variable, t)
		for tt := 0; tt < t; tt++ {
			// Only the early-release side is barred (spec §3): production
			// past the due period is allowed and penalized via b instead.
			upper := math.Inf(1)
			if tt < o.Early {
				upper = 0
			}
			v, err := model.AddDefinedVariable(fmt.Sprintf("x_%d_%d", i, tt), milp.ContinuousVariable, 0, 0, upper)
			if err != nil {
				return nil, nil, err
			}
			h.X[i][tt] = v

			bv, err := model.AddDefinedVariable(fmt.Sprintf("b_%d_%d", i, tt), milp.ContinuousVariable, 0, 0, math.Inf(1))
			if err != nil {
				return nil, nil, err
			}
			h.B[i][tt] = bv
		}

		uv, err := addClassVariable(model, fmt.Sprintf("u_%d", i), classForBool(profile.UIntegral), 0)
		if err != nil {
			return nil, nil, err
		}
		h.U[i] = uv
	}

	// I_{f,t}, P_{f,t}: continuous.
	for ff := 0; ff < f; ff++ {
		h.I[ff] = make([]*milp.Variable, t)
		h.P[ff] = make([]*milp.Variable, t)
		for tt := 0; tt < t; tt++ {
			iv, err := model.AddDefinedVariable(fmt.Sprintf("inv_%d_%d", ff, tt), milp.ContinuousVariable, 0, 0, math.Inf(1))
			if err != nil {
				return nil, nil, err
			}
			h.I[ff][tt] = iv

			pv, err := model.AddDefinedVariable(fmt.Sprintf("p_%d_%d", ff, tt), milp.ContinuousVariable, 0, 0, inst.Flows[ff].Downstream[tt])
			if err != nil {
				return nil, nil, err
			}
			h.P[ff][tt] = pv
		}
	}

	// y_{g,t}, λ_{g,t}: per-(g,t) class from the Profile.
	for gg := 0; gg < g; gg++ {
		h.Y[gg] = make([]*milp.Variable, t)
		if h.Lambda != nil {
			h.Lambda[gg] = make([]*milp.Variable, t)
		}
		if h.Z != nil {
			h.Z[gg] = make([]*milp.Variable, t)
		}
		for tt := 0; tt < t; tt++ {
			yv, err := addClassVariable(model, fmt.Sprintf("y_%d_%d", gg, tt), profile.YClass[gg][tt], profile.YFixed[gg][tt])
			if err != nil {
				return nil, nil, err
			}
			h.Y[gg][tt] = yv

			if h.Lambda != nil {
				lv, err := addClassVariable(model, fmt.Sprintf("lambda_%d_%d", gg, tt), profile.LambdaClass[gg][tt], profile.LambdaFixed[gg][tt])
				if err != nil {
					return nil, nil, err
				}
				h.Lambda[gg][tt] = lv
			}

			if h.Z != nil {
				zv, err := model.AddDefinedVariable(fmt.Sprintf("z_%d_%d", gg, tt), milp.ContinuousVariable, 0, 0, 1)
				if err != nil {
					return nil, nil, err
				}
				h.Z[gg][tt] = zv
			}
		}
	}

	if err := addObjective(model, inst, h, aug); err != nil {
		return nil, nil, err
	}
	if err := addConstraints(model, inst, h, aug); err != nil {
		return nil, nil, err
	}

	return model, h, nil
}

func classForBool(integral bool) Class {
	if integral {
		return ClassInteger
	}
	return ClassRelaxed
}

// addClassVariable adds a {0,1}-domain variable in the class the
// Profile assigns: fixed to fixedVal, integer (binary), or relaxed to
// the unit interval.
func addClassVariable(model *milp.Model, name string, class Class, fixedVal float64) (*milp.Variable, error) {
	switch class {
	case ClassFixed:
		v, err := model.AddDefinedVariable(name, milp.ContinuousVariable, 0, fixedVal, fixedVal)
		return v, err
	case ClassInteger:
		return model.AddDefinedVariable(name, milp.BinaryVariable, 0, 0, 1)
	case ClassRelaxed:
		return model.AddDefinedVariable(name, milp.ContinuousVariable, 0, 0, 1)
	default:
		return nil, fmt.Errorf("unknown variable class %d", class)
	}
}

func addObjective(model *milp.Model, inst *instance.Instance, h *Handle, aug Augmentation) error {
	var vars []*milp.Variable
	var coefs []float64

	for i, o := range inst.Orders {
		for tt := 0; tt < inst.T(); tt++ {
			vars = append(vars, h.X[i][tt])
			coefs = append(coefs, o.UnitCost)
			vars = append(vars, h.B[i][tt])
			coefs = append(coefs, o.BackorderPt)
		}
		vars = append(vars, h.U[i])
		coefs = append(coefs, o.UnmetPt)
	}
	for gg, fam := range inst.Families {
		for tt := 0; tt < inst.T(); tt++ {
			vars = append(vars, h.Y[gg][tt])
			coefs = append(coefs, fam.SetupCost)
		}
		if h.Z != nil {
			for tt := 0; tt < inst.T(); tt++ {
				vars = append(vars, h.Z[gg][tt])
				coefs = append(coefs, -aug.ConsecutiveBonusAlpha)
			}
		}
	}
	for ff, flow := range inst.Flows {
		for tt := 0; tt < inst.T(); tt++ {
			vars = append(vars, h.I[ff][tt])
			coefs = append(coefs, flow.InventoryCost)
		}
	}

	return model.SetObjectiveFunction(coefs, vars)
}

func addConstraints(model *milp.Model, inst *instance.Instance, h *Handle, aug Augmentation) error {
	t, g, f := inst.T(), inst.G(), inst.F()
	capacity := inst.Capacity * aug.kappa()
	ordersByGroup := inst.OrdersByGroup()
	ordersByFlow := inst.OrdersByFlow()

	// Demand conservation: sum_t x_it + u_i*d_i >= d_i.
	for i, o := range inst.Orders {
		vars := append(append([]*milp.Variable{}, h.X[i]...), h.U[i])
		coefs := make([]float64, t+1)
		for tt := 0; tt < t; tt++ {
			coefs[tt] = 1
		}
		coefs[t] = o.Demand
		if err := model.AddConstraint(o.Demand, math.Inf(1), vars, coefs); err != nil {
			return err
		}
	}

	// Backorder definition: b_it = d_i - sum_{tau<=t} x_i,tau for t>=l_i; 0 otherwise.
	for i, o := range inst.Orders {
		for tt := 0; tt < t; tt++ {
			if tt < o.Due {
				if err := model.AddConstraint(0, 0, []*milp.Variable{h.B[i][tt]}, []float64{1}); err != nil {
					return err
				}
				continue
			}
			vars := []*milp.Variable{h.B[i][tt]}
			coefs := []float64{1}
			for tau := 0; tau <= tt; tau++ {
				vars = append(vars, h.X[i][tau])
				coefs = append(coefs, 1)
			}
			if err := model.AddConstraint(o.Demand, o.Demand, vars, coefs); err != nil {
				return err
			}
		}
	}

	// Flow balance: I_{f,t-1} + sum_{i:f(i)=f} x_it - P_ft - I_ft = 0.
	for ff := 0; ff < f; ff++ {
		for tt := 0; tt < t; tt++ {
			var vars []*milp.Variable
			var coefs []float64
			for _, i := range ordersByFlow[ff] {
				vars = append(vars, h.X[i][tt])
				coefs = append(coefs, 1)
			}
			if tt > 0 {
				vars = append(vars, h.I[ff][tt-1])
				coefs = append(coefs, 1)
			}
			vars = append(vars, h.P[ff][tt], h.I[ff][tt])
			coefs = append(coefs, -1, -1)
			if err := model.AddConstraint(0, 0, vars, coefs); err != nil {
				return err
			}
		}
	}

	// Machine capacity: sum_i sx_i x_it + sum_g sy_g y_gt <= kappa*C.
	for tt := 0; tt < t; tt++ {
		var vars []*milp.Variable
		var coefs []float64
		for i, o := range inst.Orders {
			vars = append(vars, h.X[i][tt])
			coefs = append(coefs, o.UnitUsage)
		}
		for gg, fam := range inst.Families {
			vars = append(vars, h.Y[gg][tt])
			coefs = append(coefs, fam.SetupUsage)
		}
		if err := model.AddConstraint(math.Inf(-1), capacity, vars, coefs); err != nil {
			return err
		}
	}

	// Family activation (big-M): sum_{i:g(i)=g} sx_i x_it <= kappaC*(y_gt + lambda_gt).
	for gg := 0; gg < g; gg++ {
		for tt := 0; tt < t; tt++ {
			var vars []*milp.Variable
			var coefs []float64
			for _, i := range ordersByGroup[gg] {
				vars = append(vars, h.X[i][tt])
				coefs = append(coefs, inst.Orders[i].UnitUsage)
			}
			vars = append(vars, h.Y[gg][tt])
			coefs = append(coefs, -capacity)
			if h.Lambda != nil {
				vars = append(vars, h.Lambda[gg][tt])
				coefs = append(coefs, -capacity)
			}
			if err := model.AddConstraint(math.Inf(-1), 0, vars, coefs); err != nil {
				return err
			}
		}
	}

	// Terminal unmet link: d_i*u_i >= b_i,T-1.
	for i, o := range inst.Orders {
		if err := model.AddConstraint(0, math.Inf(1), []*milp.Variable{h.U[i], h.B[i][t-1]}, []float64{o.Demand, -1}); err != nil {
			return err
		}
	}

	if h.Lambda != nil {
		if err := addCarryoverConstraints(model, g, t, h); err != nil {
			return err
		}
	}

	if h.Z != nil {
		if err := addConsecutiveBonusConstraints(model, g, t, h); err != nil {
			return err
		}
	}

	return nil
}

// addCarryoverConstraints encodes spec.md §3's carryover invariants:
// exclusivity, feasibility, the non-conflict form
// λ_{g,t}+λ_{g,t-1}+y_{g,t}-Σ_{g'≠g}y_{g',t}<=2, and λ_{g,0}=0.
func addCarryoverConstraints(model *milp.Model, g, t int, h *Handle) error {
	for gg := 0; gg < g; gg++ {
		if err := model.AddConstraint(0, 0, []*milp.Variable{h.Lambda[gg][0]}, []float64{1}); err != nil {
			return err
		}
	}

	for tt := 0; tt < t; tt++ {
		var vars []*milp.Variable
		var coefs []float64
		for gg := 0; gg < g; gg++ {
			vars = append(vars, h.Lambda[gg][tt])
			coefs = append(coefs, 1)
		}
		if err := model.AddConstraint(math.Inf(-1), 1, vars, coefs); err != nil {
			return err
		}
	}

	for gg := 0; gg < g; gg++ {
		for tt := 1; tt < t; tt++ {
			// y_{g,t-1} + lambda_{g,t-1} - lambda_gt >= 0
			if err := model.AddConstraint(0, math.Inf(1),
				[]*milp.Variable{h.Y[gg][tt-1], h.Lambda[gg][tt-1], h.Lambda[gg][tt]},
				[]float64{1, 1, -1}); err != nil {
				return err
			}
		}
	}

	// Non-conflict: one constraint per (g,t) summing -1 over every other
	// family's y in the same period, not one constraint per pair.
	// lambda_gt + lambda_{g,t-1} + y_gt - sum_{g'!=g} y_{g',t} <= 2.
	for tt := 1; tt < t; tt++ {
		for gg := 0; gg < g; gg++ {
			vars := []*milp.Variable{h.Lambda[gg][tt], h.Lambda[gg][tt-1], h.Y[gg][tt]}
			coefs := []float64{1, 1, 1}
			for gp := 0; gp < g; gp++ {
				if gp == gg {
					continue
				}
				vars = append(vars, h.Y[gp][tt])
				coefs = append(coefs, -1)
			}
			if err := model.AddConstraint(math.Inf(-1), 2, vars, coefs); err != nil {
				return err
			}
		}
	}

	return nil
}

// addConsecutiveBonusConstraints links z_{g,t} <= y_{g,t-1}, z_{g,t} <=
// y_{g,t}, z_{g,t} >= y_{g,t-1}+y_{g,t}-1 (spec.md §4.1, RR stage 1's
// bonus term). t=0 has no predecessor period, so z_{g,0} is fixed to 0.
func addConsecutiveBonusConstraints(model *milp.Model, g, t int, h *Handle) error {
	for gg := 0; gg < g; gg++ {
		if err := model.AddConstraint(0, 0, []*milp.Variable{h.Z[gg][0]}, []float64{1}); err != nil {
			return err
		}
		for tt := 1; tt < t; tt++ {
			z, yPrev, yCur := h.Z[gg][tt], h.Y[gg][tt-1], h.Y[gg][tt]
			if err := model.AddConstraint(math.Inf(-1), 0, []*milp.Variable{z, yPrev}, []float64{1, -1}); err != nil {
				return err
			}
			if err := model.AddConstraint(math.Inf(-1), 0, []*milp.Variable{z, yCur}, []float64{1, -1}); err != nil {
				return err
			}
			if err := model.AddConstraint(-1, math.Inf(1), []*milp.Variable{z, yPrev, yCur}, []float64{1, -1, -1}); err != nil {
				return err
			}
		}
	}
	return nil
}
