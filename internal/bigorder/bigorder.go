// Package bigorder implements the optional big-order pre-pass of
// spec.md §6: orders sharing (flow, family) are merged into a single
// composite order before the core solves, and the resulting production
// plan is split back across the originals afterward. It is an external
// collaborator, not part of the core MILP machinery — the core never
// sees an unmerged Instance once this pre-pass runs.
//
// Merging within a (flow, group) bucket is unconditional, matching
// original_source/src/big_order.cpp's UpdateBigOrderFG (the function the
// original's merge path actually calls, with no threshold check at all).
// big_order_threshold in the original gates a different, unimplemented
// operation (SplitBigOrder/VerifyBigOrder: splitting an already-merged
// order's demand back across periods once it exceeds the threshold), not
// the merge step itself; see DESIGN.md.
package bigorder

import (
	"sort"

	"github.com/yuemei-liu/lotplan/internal/driver"
	"github.com/yuemei-liu/lotplan/internal/instance"
)

// Merge groups orders by (Flow, Group) into one composite order per
// group, unconditionally: demand summed, window the union of member
// windows, unit cost the demand-weighted average, and resource usage
// the max across members. Orders in groups of size 1 pass through
// unchanged. Merge returns the derived Instance plus a Mapping the
// caller must retain to split results back afterward.
func Merge(inst *instance.Instance) (*instance.Instance, *Mapping) {
	buckets := make(map[[2]int][]int)
	for i, o := range inst.Orders {
		key := [2]int{o.Flow, o.Group}
		buckets[key] = append(buckets[key], i)
	}

	var keys [][2]int
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})

	out := &instance.Instance{
		CaseID:   inst.CaseID,
		Periods:  inst.Periods,
		Capacity: inst.Capacity,
		Families: inst.Families,
		Flows:    inst.Flows,
	}
	m := &Mapping{Groups: nil}

	for _, key := range keys {
		members := buckets[key]
		if len(members) == 1 {
			idx := members[0]
			out.Orders = append(out.Orders, inst.Orders[idx])
			m.Groups = append(m.Groups, group{originals: []int{idx}, mergedIdx: len(out.Orders) - 1, primary: idx})
			continue
		}

		merged, primary := mergeOrders(inst, members)
		out.Orders = append(out.Orders, merged)
		m.Groups = append(m.Groups, group{originals: members, mergedIdx: len(out.Orders) - 1, primary: primary})
	}

	return out, m
}

// mergeOrders builds one composite order from members: summed demand,
// union window, demand-weighted-average unit cost, and max resource
// usage. It also returns the primary sub-order (max demand, ties broken
// by lowest index), which receives the merged order's u when Split runs.
func mergeOrders(inst *instance.Instance, members []int) (instance.Order, int) {
	first := inst.Orders[members[0]]
	merged := instance.Order{
		ID:    "merged_" + first.ID,
		Group: first.Group,
		Flow:  first.Flow,
		Early: first.Early,
		Due:   first.Due,
	}

	var costWeighted, usageMax, backWeighted, unmetWeighted float64
	primary, primaryDemand := members[0], -1.0
	for _, idx := range members {
		o := inst.Orders[idx]
		merged.Demand += o.Demand
		if o.Early < merged.Early {
			merged.Early = o.Early
		}
		if o.Due > merged.Due {
			merged.Due = o.Due
		}
		costWeighted += o.UnitCost * o.Demand
		backWeighted += o.BackorderPt * o.Demand
		unmetWeighted += o.UnmetPt * o.Demand
		if o.UnitUsage > usageMax {
			usageMax = o.UnitUsage
		}
		if o.Demand > primaryDemand {
			primaryDemand = o.Demand
			primary = idx
		}
	}

	merged.UnitUsage = usageMax
	if merged.Demand > 0 {
		merged.UnitCost = costWeighted / merged.Demand
		merged.BackorderPt = backWeighted / merged.Demand
		merged.UnmetPt = unmetWeighted / merged.Demand
	}
	return merged, primary
}

// group records one merged bucket: the original indices it came from,
// where it landed in the merged Instance, and which original is
// primary for setup/carryover attribution.
type group struct {
	originals []int
	mergedIdx int
	primary   int
}

// Mapping is the projection Merge returns; Split consumes it to
// distribute a merged-instance solution back across the originals.
type Mapping struct {
	Groups []group
}

// Split distributes a merged-instance solution back onto m's original
// orders: production and backorder split proportionally by each
// original's share of the merged demand, and u copied from the merged
// order to its primary sub-order. Y, Lambda, I, and P are indexed by
// family or flow, not by order, so they are passed through unchanged;
// no per-sub-order setup indicator is produced.
func (m *Mapping) Split(original *instance.Instance, merged driver.Values) driver.Values {
	n, t := original.N(), original.T()
	out := driver.Values{
		X:      make([][]float64, n),
		B:      make([][]float64, n),
		U:      make([]float64, n),
		Y:      merged.Y,
		I:      merged.I,
		P:      merged.P,
		Lambda: merged.Lambda,
	}
	for i := 0; i < n; i++ {
		out.X[i] = make([]float64, t)
		out.B[i] = make([]float64, t)
	}

	for _, g := range m.Groups {
		mergedDemand := 0.0
		for _, idx := range g.originals {
			mergedDemand += original.Orders[idx].Demand
		}
		for _, idx := range g.originals {
			share := original.Orders[idx].Demand / mergedDemand
			for tt := 0; tt < t; tt++ {
				out.X[idx][tt] = merged.X[g.mergedIdx][tt] * share
				out.B[idx][tt] = merged.B[g.mergedIdx][tt] * share
			}
			if idx == g.primary {
				out.U[idx] = merged.U[g.mergedIdx]
			} else if merged.U[g.mergedIdx] == 1 {
				// Every sub-order of an unmet merged order is reported
				// unmet too; spec.md §6 only names y/λ attribution to the
				// primary, leaving split u's handling to this repo's
				// judgment (see DESIGN.md).
				out.U[idx] = 1
			}
		}
	}

	return out
}
