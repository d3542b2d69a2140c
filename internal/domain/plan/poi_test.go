package plan

import (
	"math/rand"
	"testing"

	"github.com/almikh/pmvgen/internal/types"
)

func samplesEvery(step float64, total float64, amp func(t float64) float64) []types.POISample {
	var out []types.POISample
	for t := 0.0; t < total; t += step {
		out = append(out, types.POISample{Timestamp: t, Amplitude: amp(t)})
	}
	return out
}

func TestPOI_NoSamplesMeansNoPlan(t *testing.T) {
	t.Parallel()

	src := &types.SourceMedia{Path: "silent.mp4", Duration: 300}
	clips := POI(rand.New(rand.NewSource(1)), src, 60, nil, testParams())
	if clips != nil {
		t.Fatalf("empty energy curve must yield nil so the caller falls back, got %v", clips)
	}
}

func TestPOI_ClipsCoverBudgetWithinBounds(t *testing.T) {
	t.Parallel()

	src := &types.SourceMedia{Path: "a.mp4", Duration: 600}
	samples := samplesEvery(1, 600, func(tm float64) float64 { return 0.2 + 0.6*float64(int(tm)%7)/7 })

	for seed := int64(0); seed < 20; seed++ {
		clips := POI(rand.New(rand.NewSource(seed)), src, 60, samples, testParams())
		if len(clips) == 0 {
			t.Fatalf("seed %d: expected clips from a loud source", seed)
		}
		total := 0
		prev := -1.0
		for _, c := range clips {
			if c.Start < 60 || c.End() > 540 {
				t.Fatalf("seed %d: clip escapes guard window: %+v", seed, c)
			}
			if c.Start < prev {
				t.Fatalf("seed %d: clips not sorted by start", seed)
			}
			prev = c.Start
			total += c.Duration
		}
		if total != 60 {
			t.Fatalf("seed %d: planned %ds, want the full 60s budget", seed, total)
		}
	}
}

func TestPOI_PointCountBoundedByBudget(t *testing.T) {
	t.Parallel()

	src := &types.SourceMedia{Path: "a.mp4", Duration: 1200}
	samples := samplesEvery(0.5, 1200, func(tm float64) float64 { return 0.5 })

	clips := POI(rand.New(rand.NewSource(4)), src, 10, samples, testParams())
	// at most allocated / min_small_clip points survive trimming
	if len(clips) > 5 {
		t.Fatalf("got %d clips, want at most 5", len(clips))
	}
}

func TestPOI_ShortUnguardedSource(t *testing.T) {
	t.Parallel()

	src := &types.SourceMedia{Path: "short.mp4", Duration: 90}
	samples := samplesEvery(1, 90, func(tm float64) float64 { return 0.9 })

	clips := POI(rand.New(rand.NewSource(2)), src, 30, samples, testParams())
	if len(clips) == 0 {
		t.Fatal("expected clips")
	}
	for _, c := range clips {
		if c.Start < 0 || c.End() > 90 {
			t.Fatalf("clip escapes source bounds: %+v", c)
		}
	}
}
