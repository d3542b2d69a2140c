// Package sequence interleaves per-source clip lists into one cut order.
package sequence

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/almikh/pmvgen/internal/types"
)

// Algorithm is the closed set of interleaving strategies. Every clip of the
// input queue appears exactly once in the output; algorithms only reorder
// across sources, never within one.
type Algorithm int

const (
	Carousel Algorithm = iota
	Waves
	Bursts
	POI
	Strata
)

func Algorithms() []Algorithm {
	return []Algorithm{Carousel, Waves, Bursts, POI, Strata}
}

func (a Algorithm) String() string {
	switch a {
	case Carousel:
		return "carousel"
	case Waves:
		return "waves"
	case Bursts:
		return "bursts"
	case POI:
		return "poi"
	case Strata:
		return "strata"
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

func Parse(s string) (Algorithm, error) {
	for _, a := range Algorithms() {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown sequencing algorithm %q", s)
}

// Run drains the queue with the chosen algorithm. The queue is consumed and
// must not be reused afterwards.
func Run(rng *rand.Rand, a Algorithm, q types.ClipQueue) types.ClipSequence {
	switch a {
	case Carousel:
		return carousel(q)
	case Waves:
		return waves(rng, q)
	case Bursts:
		return bursts(rng, q)
	case POI:
		return chronological(q)
	case Strata:
		return strata(q)
	}
	return carousel(q)
}

// carousel takes the head clip of each source in turn, dropping a source
// once its queue empties.
func carousel(q types.ClipQueue) types.ClipSequence {
	out := make(types.ClipSequence, 0, q.TotalClips())
	for len(q) > 0 {
		next := q[:0]
		for i := range q {
			sc := q[i]
			out = append(out, sc.Clips[0])
			sc.Clips = sc.Clips[1:]
			if len(sc.Clips) > 0 {
				next = append(next, sc)
			}
		}
		q = next
	}
	return out
}

// waves shuffles the sources, groups them into clusters of 2-4, and
// round-robins each cluster to exhaustion before moving on. Sources that do
// not fill a whole cluster are drained carousel-style at the end.
func waves(rng *rand.Rand, q types.ClipQueue) types.ClipSequence {
	out := make(types.ClipSequence, 0, q.TotalClips())
	rng.Shuffle(len(q), func(a, b int) { q[a], q[b] = q[b], q[a] })

	i := 0
	for i < len(q) {
		size := 2 + rng.Intn(3)
		if i+size > len(q) {
			break
		}
		out = append(out, carousel(q[i:i+size:i+size])...)
		i += size
	}
	out = append(out, carousel(q[i:])...)
	return out
}

// bursts repeatedly picks a source weighted by its remaining clip count and
// emits a short run of its next clips.
func bursts(rng *rand.Rand, q types.ClipQueue) types.ClipSequence {
	out := make(types.ClipSequence, 0, q.TotalClips())
	for {
		total := 0
		for i := range q {
			total += len(q[i].Clips)
		}
		if total == 0 {
			return out
		}
		pick := rng.Intn(total)
		idx := 0
		for i := range q {
			if pick < len(q[i].Clips) {
				idx = i
				break
			}
			pick -= len(q[i].Clips)
		}
		run := 1 + rng.Intn(3)
		if run > len(q[idx].Clips) {
			run = len(q[idx].Clips)
		}
		out = append(out, q[idx].Clips[:run]...)
		q[idx].Clips = q[idx].Clips[run:]
	}
}

// chronological keeps each source's clips in start order and the sources in
// their given order; used for audio-point cuts.
func chronological(q types.ClipQueue) types.ClipSequence {
	out := make(types.ClipSequence, 0, q.TotalClips())
	for i := range q {
		clips := q[i].Clips
		sort.Slice(clips, func(a, b int) bool { return clips[a].Start < clips[b].Start })
		out = append(out, clips...)
		q[i].Clips = nil
	}
	return out
}

// strata lays each source's clips out as one contiguous block.
func strata(q types.ClipQueue) types.ClipSequence {
	out := make(types.ClipSequence, 0, q.TotalClips())
	for i := range q {
		out = append(out, q[i].Clips...)
		q[i].Clips = nil
	}
	return out
}
