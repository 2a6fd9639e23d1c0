package driver

import (
	"context"

	"github.com/yuemei-liu/lotplan/internal/milp"
)

// scriptedOracle is the stub oracle spec.md §9 calls for: "this also
// makes property-based testing straightforward with a stub oracle."
// Each call consumes the next scripted outcome regardless of the model
// it was given, letting a test drive a driver's control flow (window
// expansion, rollback, FO acceptance) without needing a real solve.
type scriptedOracle struct {
	outcomes []milp.OracleOutcome
	calls    int
}

func (s *scriptedOracle) Solve(_ context.Context, model *milp.Model, _ milp.SolveOptions) milp.OracleOutcome {
	if s.calls >= len(s.outcomes) {
		// Past the script, solve the given model for real; these calls
		// are not counted in s.calls.
		res, _ := model.Solve()
		if res == nil {
			return milp.OracleOutcome{Status: milp.StatusNoIncumbent}
		}
		return milp.OracleOutcome{Status: milp.StatusOptimal, Objective: res.ObjectiveValue(), Result: res}
	}
	o := s.outcomes[s.calls]
	s.calls++
	return o
}
