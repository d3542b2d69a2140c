package plan

import (
	"math/rand"
	"sort"

	"github.com/almikh/pmvgen/internal/domain/partition"
	"github.com/almikh/pmvgen/internal/types"
)

// POI centers clips on the source's loudest moments. It returns nil when the
// energy probe yielded no usable points; callers must then fall back to the
// Default planner.
func POI(rng *rand.Rand, src *types.SourceMedia, allocated int, samples []types.POISample, p Params) []types.ClipDescriptor {
	p = p.withDefaults()
	dur := int(src.Duration)
	if dur <= 0 || allocated <= 0 {
		return nil
	}

	points := selectPoints(rng, samples, p)
	if len(points) == 0 {
		return nil
	}

	// A point per min-length clip is the most the budget can carry; keep
	// the globally loudest when trimming.
	maxPoints := allocated / p.MinSmallClip
	if maxPoints < 1 {
		maxPoints = 1
	}
	if len(points) > maxPoints {
		sort.SliceStable(points, func(a, b int) bool { return points[a].Amplitude > points[b].Amplitude })
		points = points[:maxPoints]
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Timestamp < points[b].Timestamp })

	perClipMin := p.MinSmallClip
	if m := allocated / len(points); m < perClipMin {
		perClipMin = m
	}
	if perClipMin < 1 {
		perClipMin = 1
	}
	lens := partition.Jittered(rng, allocated, len(points), perClipMin)

	guard := partition.Guard(dur, p.HeadGuard, p.TailGuard)

	clips := make([]types.ClipDescriptor, 0, len(lens))
	for i, clipLen := range lens {
		if i >= len(points) {
			break
		}
		center := points[i].Timestamp + (rng.Float64()*2-1)*p.POICenterJitter
		start := center - float64(clipLen)/2

		lo, hi := 0.0, float64(dur-clipLen)
		if guard.Active {
			lo = float64(guard.Start)
			hi = float64(guard.End - clipLen)
		}
		if hi < lo {
			hi = lo
		}
		if start < lo {
			start = lo
		}
		if start > hi {
			start = hi
		}
		clips = append(clips, types.ClipDescriptor{Source: src, Start: start, Duration: clipLen})
	}

	sort.Slice(clips, func(a, b int) bool { return clips[a].Start < clips[b].Start })
	return clips
}

// selectPoints buckets samples into one-minute bins and keeps a random small
// number of the loudest samples per bin. With no samples at all it degrades
// to the global loudest, which is empty for an empty curve.
func selectPoints(rng *rand.Rand, samples []types.POISample, p Params) []types.POISample {
	buckets := make(map[int][]types.POISample)
	maxBucket := -1
	for _, s := range samples {
		b := int(s.Timestamp) / 60
		buckets[b] = append(buckets[b], s)
		if b > maxBucket {
			maxBucket = b
		}
	}

	var points []types.POISample
	for b := 0; b <= maxBucket; b++ {
		bin := buckets[b]
		if len(bin) == 0 {
			continue
		}
		k := p.POIMinPerBucket + rng.Intn(p.POIMaxPerBucket-p.POIMinPerBucket+1)
		points = append(points, topByAmplitude(bin, k)...)
	}

	if len(points) == 0 {
		points = topByAmplitude(samples, p.POIMaxGlobal)
	}
	return points
}

// topByAmplitude keeps the k loudest samples without sorting the whole bin.
func topByAmplitude(samples []types.POISample, k int) []types.POISample {
	if k <= 0 {
		return nil
	}
	if len(samples) <= k {
		out := make([]types.POISample, len(samples))
		copy(out, samples)
		return out
	}
	top := make([]types.POISample, 0, k)
	for _, s := range samples {
		if len(top) < k {
			top = append(top, s)
			continue
		}
		// replace the quietest kept sample when beaten
		minIdx := 0
		for i := 1; i < len(top); i++ {
			if top[i].Amplitude < top[minIdx].Amplitude {
				minIdx = i
			}
		}
		if s.Amplitude > top[minIdx].Amplitude {
			top[minIdx] = s
		}
	}
	return top
}
