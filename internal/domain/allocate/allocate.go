// Package allocate splits a target runtime budget across source videos.
package allocate

import (
	"sort"

	"github.com/almikh/pmvgen/internal/types"
)

// Equalish grants each source an equal-ish share of target seconds, capped
// per source by perFileMax and by the source's own duration, then
// redistributes any leftover one second at a time, longest source first.
// The loop stops at a fixed point: when every source sits at its limit, the
// remaining leftover is intentionally left unplaced rather than inflating
// any source past its limit.
//
// A zero target or empty source list yields a zero-filled plan, not an error.
func Equalish(target int, sources []*types.SourceMedia, perFileMax int) types.AllocationPlan {
	plan := make(types.AllocationPlan, len(sources))
	for i, src := range sources {
		plan[i] = types.Allocation{Source: src}
	}
	if target <= 0 || len(sources) == 0 || perFileMax <= 0 {
		return plan
	}

	ideal := target / len(sources)
	if ideal < 1 {
		ideal = 1
	}
	if ideal > perFileMax {
		ideal = perFileMax
	}

	var totalDur float64
	for _, src := range sources {
		totalDur += src.Duration
	}
	budget := target
	if float64(budget) > totalDur {
		budget = int(totalDur)
	}

	// Initial equal-ish pass, never exceeding the remaining budget so the
	// conservation invariant holds even for tiny targets over many sources.
	remaining := budget
	for i, src := range sources {
		a := ideal
		if float64(a) > src.Duration {
			a = int(src.Duration)
		}
		if a > remaining {
			a = remaining
		}
		if a < 0 {
			a = 0
		}
		plan[i].Seconds = a
		remaining -= a
	}

	if remaining <= 0 {
		return plan
	}

	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sources[order[a]].Duration > sources[order[b]].Duration
	})

	for remaining > 0 {
		placed := false
		for _, i := range order {
			if remaining == 0 {
				break
			}
			limit := perFileMax
			if float64(limit) > sources[i].Duration {
				limit = int(sources[i].Duration)
			}
			if plan[i].Seconds >= limit {
				continue
			}
			plan[i].Seconds++
			remaining--
			placed = true
		}
		if !placed {
			break
		}
	}
	return plan
}
