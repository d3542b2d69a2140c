// Package keyframe maps desired clip starts onto preceding keyframes so
// extraction can use lossless stream copy.
package keyframe

import (
	"context"
	"log/slog"
	"sort"

	"github.com/almikh/pmvgen/internal/ports"
	"github.com/almikh/pmvgen/internal/types"
)

const (
	defaultInitialWindow = 10.0  // seconds probed behind t on the first attempt
	defaultMaxWindow     = 300.0 // widest probe window before a full scan
	defaultLookahead     = 1.0   // seconds probed past t
)

// Snapper caches keyframe timestamps per source for the lifetime of one
// render job. Lookups expand their probe window geometrically before paying
// for a single full-source scan; if everything fails the requested time is
// returned unchanged and extraction starts unsnapped.
type Snapper struct {
	probe  ports.MediaProbe
	logger *slog.Logger
	caches map[string]*cache

	initialWindow float64
	maxWindow     float64
	lookahead     float64
}

type cache struct {
	times        []float64 // sorted, deduplicated
	fullScanDone bool
}

func NewSnapper(probe ports.MediaProbe, logger *slog.Logger) *Snapper {
	return &Snapper{
		probe:         probe,
		logger:        logger,
		caches:        make(map[string]*cache),
		initialWindow: defaultInitialWindow,
		maxWindow:     defaultMaxWindow,
		lookahead:     defaultLookahead,
	}
}

// PrevKeyframe returns the latest known keyframe at or before t. The result
// never exceeds t.
func (s *Snapper) PrevKeyframe(ctx context.Context, src *types.SourceMedia, t float64) float64 {
	if t <= 0 {
		return 0
	}
	c := s.caches[src.Path]
	if c == nil {
		c = &cache{}
		s.caches[src.Path] = c
	}

	if kf, ok := c.prev(t); ok {
		return kf
	}

	for w := s.initialWindow; w <= s.maxWindow; w *= 2 {
		start := t - w
		if start < 0 {
			start = 0
		}
		ts, err := s.probe.KeyframesInRange(ctx, src.Path, start, t+s.lookahead)
		if err != nil {
			s.logger.Warn("keyframe window probe failed", "source", src.Path, "window", w, "error", err)
		} else {
			c.merge(ts)
		}
		if kf, ok := c.prev(t); ok {
			return kf
		}
		if start == 0 {
			break
		}
	}

	if !c.fullScanDone {
		ts, err := s.probe.Keyframes(ctx, src.Path)
		if err != nil {
			s.logger.Warn("full keyframe scan failed", "source", src.Path, "error", err)
		} else {
			c.merge(ts)
		}
		c.fullScanDone = true
		if kf, ok := c.prev(t); ok {
			return kf
		}
	}

	s.logger.Warn("no keyframe found, extracting unsnapped", "source", src.Path, "t", t)
	return t
}

func (c *cache) prev(t float64) (float64, bool) {
	i := sort.SearchFloat64s(c.times, t)
	if i < len(c.times) && c.times[i] == t {
		return t, true
	}
	if i > 0 {
		return c.times[i-1], true
	}
	return 0, false
}

func (c *cache) merge(ts []float64) {
	if len(ts) == 0 {
		return
	}
	c.times = append(c.times, ts...)
	sort.Float64s(c.times)
	dedup := c.times[:1]
	for _, v := range c.times[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	c.times = dedup
}
