package keyframe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/almikh/pmvgen/internal/types"
)

type fakeProbe struct {
	keyframes  []float64
	rangeCalls int
	fullCalls  int
	failRange  bool
	failFull   bool
}

func (f *fakeProbe) Duration(context.Context, string) (float64, error) { return 0, nil }

func (f *fakeProbe) VideoInfo(context.Context, string) (types.VideoInfo, error) {
	return types.VideoInfo{}, nil
}

func (f *fakeProbe) KeyframesInRange(_ context.Context, _ string, start, end float64) ([]float64, error) {
	f.rangeCalls++
	if f.failRange {
		return nil, errors.New("probe broken")
	}
	var out []float64
	for _, t := range f.keyframes {
		if t >= start && t <= end {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeProbe) Keyframes(context.Context, string) ([]float64, error) {
	f.fullCalls++
	if f.failFull {
		return nil, errors.New("probe broken")
	}
	return f.keyframes, nil
}

func testSnapper(p *fakeProbe) *Snapper {
	return NewSnapper(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPrevKeyframe_FindsNearbyKeyframe(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{keyframes: []float64{0, 4.2, 8.5, 12.0, 19.7}}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 100}

	got := s.PrevKeyframe(context.Background(), src, 10)
	if got != 8.5 {
		t.Fatalf("PrevKeyframe(10) = %v, want 8.5", got)
	}
	if probe.rangeCalls != 1 {
		t.Fatalf("expected one window probe, got %d", probe.rangeCalls)
	}
}

func TestPrevKeyframe_CachesAcrossLookups(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{keyframes: []float64{0, 2, 5, 8, 9.5}}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 100}

	s.PrevKeyframe(context.Background(), src, 10)
	callsAfterFirst := probe.rangeCalls

	// the first probe window covered [0, 11]; these hits need no new probes
	for _, tm := range []float64{3, 6, 9, 10} {
		s.PrevKeyframe(context.Background(), src, tm)
	}
	if probe.rangeCalls != callsAfterFirst {
		t.Fatalf("cached lookups re-probed: %d calls, want %d", probe.rangeCalls, callsAfterFirst)
	}
}

func TestPrevKeyframe_ExpandsThenFullScans(t *testing.T) {
	t.Parallel()

	// the only keyframe is far outside any expanding window around t=5000
	probe := &fakeProbe{keyframes: []float64{5}}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 6000}

	got := s.PrevKeyframe(context.Background(), src, 5000)
	if got != 5 {
		t.Fatalf("PrevKeyframe(5000) = %v, want 5 via full scan", got)
	}
	if probe.fullCalls != 1 {
		t.Fatalf("full scans = %d, want 1", probe.fullCalls)
	}
	if probe.rangeCalls < 2 {
		t.Fatalf("expected the window to expand before scanning, got %d range probes", probe.rangeCalls)
	}
}

func TestPrevKeyframe_FullScanRunsOnce(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{keyframes: nil}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 1000}

	if got := s.PrevKeyframe(context.Background(), src, 700); got != 700 {
		t.Fatalf("degraded lookup = %v, want the requested 700", got)
	}
	s.PrevKeyframe(context.Background(), src, 800)
	if probe.fullCalls != 1 {
		t.Fatalf("full scans = %d, want exactly 1 per source", probe.fullCalls)
	}
}

func TestPrevKeyframe_NeverExceedsRequest(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{keyframes: []float64{1, 3, 7, 11, 13}}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 50}

	for tm := 0.0; tm <= 20; tm += 0.5 {
		if got := s.PrevKeyframe(context.Background(), src, tm); got > tm {
			t.Fatalf("PrevKeyframe(%v) = %v, exceeds request", tm, got)
		}
	}
}

func TestPrevKeyframe_ProbeErrorsDegradeGracefully(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{keyframes: []float64{1}, failRange: true, failFull: true}
	s := testSnapper(probe)
	src := &types.SourceMedia{Path: "a.mp4", Duration: 100}

	if got := s.PrevKeyframe(context.Background(), src, 42); got != 42 {
		t.Fatalf("broken probe should return the request unchanged, got %v", got)
	}
}
