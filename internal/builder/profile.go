// Package builder assembles the canonical MILP of spec.md §4.1 against a
// single Instance, parameterized by a variable-class Profile and an
// objective Augmentation. This is the "single builder taking the profile
// as a parameter" design note of spec.md §9: RF, RFO, and RR never
// reimplement constraint assembly, they only supply a different Profile.
package builder

// Class is one of the three variable classes spec.md §4.1 assigns per
// (variable, period): FIXED-to-given-value, INTEGER, or
// CONTINUOUS-relaxed. Only y, λ, and u ever take a non-continuous class;
// x, b, I, P are always continuous.
type Class int

const (
	ClassFixed Class = iota
	ClassInteger
	ClassRelaxed
)

// Profile is the variable-class assignment for one Build call: a class
// per (g,t) for y and λ, the fixed values to use where the class is
// ClassFixed, and whether u is solved as integer or relaxed.
type Profile struct {
	YClass      [][]Class   // G x T
	LambdaClass [][]Class   // G x T; ignored when Augmentation.NoLambda
	YFixed      [][]float64 // G x T; read where YClass[g][t] == ClassFixed
	LambdaFixed [][]float64 // G x T; read where LambdaClass[g][t] == ClassFixed
	UIntegral   bool        // final-pass u is solved integer; mid-loop u is relaxed
}

// NewProfile allocates a Profile with every (g,t) defaulting to
// ClassInteger and zero fixed values, for callers to narrow down.
func NewProfile(g, t int) Profile {
	p := Profile{
		YClass:      make([][]Class, g),
		LambdaClass: make([][]Class, g),
		YFixed:      make([][]float64, g),
		LambdaFixed: make([][]float64, g),
	}
	for i := 0; i < g; i++ {
		p.YClass[i] = make([]Class, t)
		p.LambdaClass[i] = make([]Class, t)
		p.YFixed[i] = make([]float64, t)
		p.LambdaFixed[i] = make([]float64, t)
		for j := 0; j < t; j++ {
			p.YClass[i][j] = ClassInteger
			p.LambdaClass[i][j] = ClassInteger
		}
	}
	return p
}

// AllFixed returns a Profile with every (g,t) fixed to the given y/λ
// value matrices — the shape RF's final pass and RR stage 3 build on.
func AllFixed(y, lambda [][]float64) Profile {
	g := len(y)
	t := 0
	if g > 0 {
		t = len(y[0])
	}
	p := NewProfile(g, t)
	for i := 0; i < g; i++ {
		for j := 0; j < t; j++ {
			p.YClass[i][j] = ClassFixed
			p.LambdaClass[i][j] = ClassFixed
			p.YFixed[i][j] = y[i][j]
			if lambda != nil {
				p.LambdaFixed[i][j] = lambda[i][j]
			}
		}
	}
	p.UIntegral = true
	return p
}

// Augmentation carries the objective/constraint variants spec.md §4.1
// reserves for RR: a consecutive-setup bonus (RR stage 1) and a capacity
// inflation factor (RR stage 1). Zero value means "no augmentation":
// κ=1 is substituted for CapacityMultiplier==0, and the bonus term/Z
// variables are omitted when ConsecutiveBonusAlpha==0.
type Augmentation struct {
	CapacityMultiplier    float64 // κ; 0 means 1 (no inflation)
	ConsecutiveBonusAlpha float64 // α; 0 disables the z_{g,t} bonus term
	NoLambda              bool    // RR stage 1: λ_{g,t} ≡ 0, variable removed
}

func (a Augmentation) kappa() float64 {
	if a.CapacityMultiplier == 0 {
		return 1
	}
	return a.CapacityMultiplier
}
