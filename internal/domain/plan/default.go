package plan

import (
	"math/rand"
	"sort"

	"github.com/almikh/pmvgen/internal/domain/partition"
	"github.com/almikh/pmvgen/internal/types"
)

// Default spreads allocated seconds across the source as evenly-spaced
// randomized clips: the usable duration is split into big windows, each
// window receives a share of the budget, and the share is cut into jittered
// small clips separated by gaps.
func Default(rng *rand.Rand, src *types.SourceMedia, allocated int, p Params) []types.ClipDescriptor {
	p = p.withDefaults()
	dur := int(src.Duration)
	if dur <= 0 || allocated <= 0 {
		return nil
	}

	guard := partition.Guard(dur, p.HeadGuard, p.TailGuard)
	usable := guard.Len()
	if usable <= 0 {
		return nil
	}

	winLens := partition.SplitEven(usable, p.BigParts)

	// Budget share per window, remainder to the first windows. Shares a
	// window cannot hold spill forward into later windows.
	shares := partition.SplitEven(allocated, len(winLens))
	carry := 0
	for i, winLen := range winLens {
		want := shares[i] + carry
		if want > winLen {
			carry = want - winLen
			shares[i] = winLen
		} else {
			carry = 0
			shares[i] = want
		}
	}

	var clips []types.ClipDescriptor
	winStart := guard.Start
	for i, winLen := range winLens {
		share := shares[i]
		if share <= 0 || winLen <= 0 {
			winStart += winLen
			continue
		}
		spb := share / p.MinSmallClip
		if spb < 1 {
			spb = 1
		}
		if spb > p.SmallPerBig {
			spb = p.SmallPerBig
		}
		lens := partition.Jittered(rng, share, spb, p.MinSmallClip)

		// Spread the window's slack as gaps before each clip, extra
		// seconds going to the leftmost gaps.
		slack := winLen - share
		gapBase := slack / len(lens)
		gapRem := slack % len(lens)
		cursor := winStart
		for j, clipLen := range lens {
			gap := gapBase
			if j < gapRem {
				gap++
			}
			cursor += gap
			clips = append(clips, types.ClipDescriptor{
				Source:   src,
				Start:    float64(cursor),
				Duration: clipLen,
			})
			cursor += clipLen
		}
		winStart += winLen
	}

	sort.Slice(clips, func(a, b int) bool { return clips[a].Start < clips[b].Start })

	// Rounding may push the total past the budget; trim the tail clip.
	total := 0
	for _, c := range clips {
		total += c.Duration
	}
	if overflow := total - allocated; overflow > 0 && len(clips) > 0 {
		last := &clips[len(clips)-1]
		last.Duration -= overflow
		if last.Duration < 1 {
			last.Duration = 1
		}
	}
	return clips
}
