// Package result defines the JSON output schema of spec.md §6: a
// summary (algorithm, objective, timing, gap, unmet figures, and a
// per-stage list for RR), a problem block echoing the instance
// dimensions, an aggregate.Metrics block, and the six decision-variable
// tableaus (X, Y, L, I, B, U). The shape is grounded field-for-field on
// the original implementation's OutputSolutionJSON.
package result

import (
	"encoding/json"
	"io"
	"os"

	"github.com/yuemei-liu/lotplan/internal/aggregate"
	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
)

// Step is one entry of the summary's per-stage list (populated for RR;
// RF/RFO report one or two trivial steps of their own).
type Step struct {
	Step      int     `json:"step"`
	Objective float64 `json:"objective"`
	Time      float64 `json:"time"`
	Gap       float64 `json:"gap"`
}

// Summary is the top-level run summary.
type Summary struct {
	Algorithm  string  `json:"algorithm"`
	InputFile  string  `json:"input_file"`
	Status     string  `json:"status"` // "Optimal" or "Feasible"
	Objective  float64 `json:"objective"`
	SolveTime  float64 `json:"solve_time"`
	Gap        float64 `json:"gap"`
	UnmetCount int     `json:"unmet_count"`
	UnmetRate  float64 `json:"unmet_rate"`
	Steps      []Step  `json:"steps,omitempty"`
}

// Problem echoes the instance's scalar dimensions.
type Problem struct {
	N        int     `json:"N"`
	T        int     `json:"T"`
	F        int     `json:"F"`
	G        int     `json:"G"`
	Capacity float64 `json:"capacity"`
}

// Variable is one decision-variable tableau: its shape and flattened
// data, matching the original's per-variable {description, dimensions,
// data} object.
type Variable struct {
	Description string      `json:"description"`
	Dimensions  []int       `json:"dimensions"`
	Data        interface{} `json:"data"`
}

// Variables bundles the six tableaus the output format names.
type Variables struct {
	X Variable `json:"X"`
	Y Variable `json:"Y"`
	L Variable `json:"L"`
	I Variable `json:"I"`
	B Variable `json:"B"`
	U Variable `json:"U"`
}

// Document is the complete output object.
type Document struct {
	Summary   Summary           `json:"summary"`
	Problem   Problem           `json:"problem"`
	Metrics   aggregate.Metrics `json:"metrics"`
	Variables Variables         `json:"variables"`
}

// Build assembles a Document from a driver run and its derived metrics.
func Build(algorithm, inputFile string, inst *instance.Instance, res *driver.Result, metrics aggregate.Metrics) Document {
	n, t, f, g := inst.N(), inst.T(), inst.F(), inst.G()

	status := "Feasible"
	if res.Gap <= 0 {
		status = "Optimal"
	}

	unmetCount := 0
	for _, u := range res.Values.U {
		if u == 1 {
			unmetCount++
		}
	}
	unmetRate := 0.0
	if n > 0 {
		unmetRate = float64(unmetCount) / float64(n)
	}

	steps := make([]Step, len(res.Stages))
	for i, s := range res.Stages {
		steps[i] = Step{Step: i + 1, Objective: s.Objective, Time: s.Elapsed.Seconds(), Gap: s.Gap}
	}

	return Document{
		Summary: Summary{
			Algorithm:  algorithm,
			InputFile:  inputFile,
			Status:     status,
			Objective:  res.Objective,
			SolveTime:  res.Elapsed.Seconds(),
			Gap:        res.Gap,
			UnmetCount: unmetCount,
			UnmetRate:  unmetRate,
			Steps:      steps,
		},
		Problem: Problem{N: n, T: t, F: f, G: g, Capacity: inst.Capacity},
		Metrics: metrics,
		Variables: Variables{
			X: Variable{Description: "Production quantity", Dimensions: []int{n, t}, Data: res.Values.X},
			Y: Variable{Description: "Setup decision", Dimensions: []int{g, t}, Data: res.Values.Y},
			L: Variable{Description: "Setup carryover", Dimensions: []int{g, t}, Data: res.Values.Lambda},
			I: Variable{Description: "Inventory level", Dimensions: []int{f, t}, Data: res.Values.I},
			B: Variable{Description: "Backorder quantity", Dimensions: []int{n, t}, Data: res.Values.B},
			U: Variable{Description: "Unmet demand indicator", Dimensions: []int{n}, Data: res.Values.U},
		},
	}
}

// Write marshals doc as indented JSON to w.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteFile writes doc to path, creating or truncating it.
func WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, doc)
}
