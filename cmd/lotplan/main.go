// Command lotplan runs one of the three decomposition drivers (RF, RFO,
// RR) against a CSV production-planning instance and emits a JSON
// result, matching the CLI surface of spec.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yuemei-liu/lotplan/internal/aggregate"
	"github.com/yuemei-liu/lotplan/internal/bigorder"
	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
	"github.com/yuemei-liu/lotplan/internal/logx"
	"github.com/yuemei-liu/lotplan/internal/milp"
	"github.com/yuemei-liu/lotplan/internal/result"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("lotplan", flag.ContinueOnError)

	var (
		file           string
		algo           string
		outputDir      string
		logPath        string
		timeLimit      float64
		gapTolerance   float64
		uPenalty       float64
		bPenalty       float64
		threshold      float64
		noMerge        bool
		workdir        string
		workmemMB      int
		threads        int
		requireSuccess bool
	)

	fs.StringVar(&file, "f", "", "input data file (CSV)")
	fs.StringVar(&file, "file", "", "input data file (CSV)")
	fs.StringVar(&algo, "algo", "RF", "driver to run: RF, RFO, or RR")
	fs.StringVar(&outputDir, "o", ".", "result directory")
	fs.StringVar(&outputDir, "output", ".", "result directory")
	fs.StringVar(&logPath, "l", "", "log path prefix (stderr if empty)")
	fs.StringVar(&logPath, "log", "", "log path prefix (stderr if empty)")
	fs.Float64Var(&timeLimit, "t", 30, "per-oracle-call time limit, seconds")
	fs.Float64Var(&timeLimit, "time", 30, "per-oracle-call time limit, seconds")
	fs.Float64Var(&gapTolerance, "gap", 0, "relative MIP gap tolerance per oracle call (0 = lp_solve's own default)")
	fs.Float64Var(&uPenalty, "u-penalty", 10000, "default unmet-demand penalty")
	fs.Float64Var(&bPenalty, "b-penalty", 100, "default backorder penalty")
	fs.Float64Var(&threshold, "threshold", 0, "big-order bucketing threshold (accepted for CLI parity; see DESIGN.md)")
	fs.BoolVar(&noMerge, "no-merge", false, "disable the big-order pre-pass")
	fs.StringVar(&workdir, "cplex-workdir", "", "oracle scratch directory hint")
	fs.IntVar(&workmemMB, "cplex-workmem", 0, "oracle working-memory hint, MB")
	fs.IntVar(&threads, "cplex-threads", 0, "oracle thread-count hint")
	fs.BoolVar(&requireSuccess, "require-success", false, "exit non-zero on terminal infeasibility instead of writing a -1-objective summary")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lotplan -f PATH [--algo RF|RFO|RR] [options]")
		return 1
	}

	sink, err := logx.NewFileSink(logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening log:", err)
		return 1
	}
	logger := logx.New(sink)
	defer logger.Flush()

	inst, err := instance.Load(file, instance.LoadOptions{UnmetPenalty: uPenalty, BackorderPenalty: bPenalty})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ingest error:", err)
		return 1
	}
	logger.LoadOK(inst.N(), inst.T(), inst.F(), inst.G())

	solveInst := inst
	var mapping *bigorder.Mapping
	if noMerge {
		logger.Merge(false, inst.N(), inst.N())
	} else {
		merged, m := bigorder.Merge(inst)
		logger.Merge(true, inst.N(), merged.N())
		solveInst, mapping = merged, m
	}

	opts := driver.Options{
		Oracle:       milp.NewLPSolveOracle(logger),
		SubTimeLimit: time.Duration(timeLimit * float64(time.Second)),
		GapTolerance: gapTolerance,
		Threads:      threads,
		ScratchDir:   workdir,
		WorkMemMB:    workmemMB,
		Logger:       logger,
	}

	res, err := runAlgo(algo, solveInst, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "solve error:", err)
		return 1
	}

	// spec.md §9: terminal infeasibility is a Result (objective -1), not
	// an error; the CLI still writes a summary and exits 0 by default,
	// exiting non-zero only when -require-success was given.
	if !res.Feasible {
		res.Values = zeroValues(inst)
	} else if mapping != nil {
		res.Values = mapping.Split(inst, res.Values)
	}

	metrics := aggregate.Compute(inst, res.Values)
	doc := result.Build(algo, file, inst, res, metrics)

	outPath := filepath.Join(outputDir, algo+"_result.json")
	if err := result.WriteFile(outPath, doc); err != nil {
		fmt.Fprintln(os.Stderr, "writing output:", err)
		return 1
	}

	logger.Done()
	if !res.Feasible && requireSuccess {
		return 1
	}
	return 0
}

// zeroValues builds the zero-shaped decision tableau spec.md §9 implies
// for a terminal-infeasibility Result: every quantity zero, sized to the
// original (unmerged) instance so the aggregator and JSON writer never
// index past a driver's reported zero value.
func zeroValues(inst *instance.Instance) driver.Values {
	n, t, f, g := inst.N(), inst.T(), inst.F(), inst.G()
	v := driver.Values{
		X:      make([][]float64, n),
		B:      make([][]float64, n),
		I:      make([][]float64, f),
		P:      make([][]float64, f),
		Y:      make([][]float64, g),
		Lambda: make([][]float64, g),
		U:      make([]float64, n),
	}
	for i := range v.X {
		v.X[i] = make([]float64, t)
		v.B[i] = make([]float64, t)
	}
	for i := range v.I {
		v.I[i] = make([]float64, t)
		v.P[i] = make([]float64, t)
	}
	for i := range v.Y {
		v.Y[i] = make([]float64, t)
		v.Lambda[i] = make([]float64, t)
	}
	return v
}

func runAlgo(algo string, inst *instance.Instance, opts driver.Options) (*driver.Result, error) {
	ctx := context.Background()
	switch algo {
	case "RF":
		return driver.RF(ctx, inst, opts, driver.RFOptions{})
	case "RFO":
		return driver.RFO(ctx, inst, opts, driver.RFOOptions{})
	case "RR":
		return driver.RR(ctx, inst, opts, driver.RROptions{})
	default:
		return nil, fmt.Errorf("unknown algorithm %q, expected RF, RFO, or RR", algo)
	}
}
