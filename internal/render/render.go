// Package render drives one compilation job end to end: probe, allocate,
// plan, sequence, extract, concat.
package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/almikh/pmvgen/internal/domain/allocate"
	"github.com/almikh/pmvgen/internal/domain/keyframe"
	"github.com/almikh/pmvgen/internal/domain/plan"
	"github.com/almikh/pmvgen/internal/domain/sequence"
	"github.com/almikh/pmvgen/internal/ports"
	"github.com/almikh/pmvgen/internal/types"
)

type Deps struct {
	Probe   ports.MediaProbe
	Extract ports.MediaExtract
	Concat  ports.MediaConcat
	Energy  ports.AudioEnergy
	Temp    ports.TempDirProvider
	Logger  *slog.Logger
}

// Config is the per-job configuration. It is read-only for the duration of
// a job; all randomness derives from Seed so runs are reproducible.
type Config struct {
	Seed       int64
	PerFileMax int // max seconds taken from one source
	Plan       plan.Params

	AssumedBitrateBps int64 // output size estimation
	MaxOutputBytes    int64 // 0 = no cap
	SnapKeyframes     bool
	TempCandidates    []string
}

func (c Config) withDefaults() Config {
	if c.PerFileMax <= 0 {
		c.PerFileMax = 120
	}
	if c.AssumedBitrateBps <= 0 {
		c.AssumedBitrateBps = 8_000_000
	}
	return c
}

type PlannerKind int

const (
	PlannerDefault PlannerKind = iota
	PlannerPOI
)

func ParsePlanner(s string) (PlannerKind, error) {
	switch s {
	case "default", "":
		return PlannerDefault, nil
	case "poi":
		return PlannerPOI, nil
	}
	return 0, fmt.Errorf("unknown planner %q", s)
}

type Request struct {
	Paths         []string
	TargetSeconds int
	Planner       PlannerKind
	Algorithm     sequence.Algorithm
	OutputPath    string
}

type Result struct {
	OutputPath     string
	ClipCount      int
	UsedSources    []string // contributed at least one extracted clip
	DroppedSources []string // failed probing, excluded from the job
	ProblemSources []string // had at least one failed extraction
}

type Orchestrator struct {
	d   Deps
	cfg Config
}

func New(d Deps, cfg Config) *Orchestrator {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{d: d, cfg: cfg.withDefaults()}
}

// Run executes one job. Per-source probe failures and per-clip extraction
// failures are flagged and skipped; everything in the fatal taxonomy aborts
// with a *render.Error. The job's temp directory is removed on every path.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	var res Result
	log := o.d.Logger

	// 1. probe and validate sources
	var sources []*types.SourceMedia
	var totalDur float64
	for _, path := range req.Paths {
		dur, err := o.d.Probe.Duration(ctx, path)
		if err != nil || dur <= 0 {
			log.Warn("dropping source", "path", path, "duration", dur, "error", err)
			res.DroppedSources = append(res.DroppedSources, path)
			continue
		}
		sources = append(sources, &types.SourceMedia{Path: path, Duration: dur})
		totalDur += dur
	}
	if len(sources) == 0 {
		return res, fatalf(FailNoValidSources, "none of %d sources survived probing", len(req.Paths))
	}

	// 2. effective target
	effective := req.TargetSeconds
	if float64(effective) > totalDur {
		effective = int(totalDur)
	}
	if effective <= 0 {
		return res, fatalf(FailZeroTarget, "target %ds, total source material %.1fs", req.TargetSeconds, totalDur)
	}

	// 3. resource estimate and temp space
	estimate := int64(effective) * o.cfg.AssumedBitrateBps / 8
	if o.cfg.MaxOutputBytes > 0 && estimate > o.cfg.MaxOutputBytes {
		return res, fatalf(FailOutputTooLarge, "estimated %d bytes exceeds cap %d", estimate, o.cfg.MaxOutputBytes)
	}
	// clips plus the concatenated output live in the temp dir at once
	baseDir, err := o.d.Temp.PickTempDir(o.cfg.TempCandidates, 2*estimate)
	if err != nil {
		return res, fatal(FailInsufficientDisk, err)
	}
	jobDir, err := os.MkdirTemp(baseDir, "pmvgen-job-")
	if err != nil {
		return res, fatal(FailInsufficientDisk, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(jobDir); rmErr != nil {
			log.Warn("temp cleanup failed", "dir", jobDir, "error", rmErr)
		}
	}()

	// 4. allocate, plan, sequence
	rng := rand.New(rand.NewSource(o.cfg.Seed))
	allocPlan := allocate.Equalish(effective, sources, o.cfg.PerFileMax)
	allocated := 0
	for _, a := range allocPlan {
		allocated += a.Seconds
	}
	if allocated < effective {
		log.Warn("target under-filled, every source is at its cap",
			"target", effective, "allocated", allocated)
	}

	var queue types.ClipQueue
	for _, a := range allocPlan {
		if a.Seconds <= 0 {
			continue
		}
		clips := o.planSource(ctx, rng, a.Source, a.Seconds, req.Planner)
		if len(clips) == 0 {
			continue
		}
		queue = append(queue, types.SourceClips{Source: a.Source, Clips: clips})
	}
	seq := sequence.Run(rng, req.Algorithm, queue)
	if len(seq) == 0 {
		return res, fatalf(FailEmptySequence, "planning produced no clips for target %ds", effective)
	}
	log.Info("sequence planned", "clips", len(seq), "algorithm", req.Algorithm.String())

	// 5. extract, best effort
	snapper := keyframe.NewSnapper(o.d.Probe, log)
	problems := make(map[string]bool)
	used := make(map[string]bool)
	var clipPaths []string
	for i, clip := range seq {
		start := clip.Start
		if o.cfg.SnapKeyframes {
			start = snapper.PrevKeyframe(ctx, clip.Source, clip.Start)
		}
		outPath := filepath.Join(jobDir, fmt.Sprintf("clip_%04d.ts", i))
		if err := o.d.Extract.Extract(ctx, clip.Source.Path, start, clip.Duration, outPath); err != nil {
			log.Warn("clip extraction failed", "source", clip.Source.Path, "start", start, "error", err)
			problems[clip.Source.Path] = true
			continue
		}
		used[clip.Source.Path] = true
		clipPaths = append(clipPaths, outPath)
	}
	for _, src := range sources {
		if used[src.Path] {
			res.UsedSources = append(res.UsedSources, src.Path)
		}
		if problems[src.Path] {
			res.ProblemSources = append(res.ProblemSources, src.Path)
		}
	}
	if len(clipPaths) == 0 {
		return res, fatalf(FailNoClipsExtracted, "all %d extractions failed", len(seq))
	}

	// 6. concat
	if err := o.d.Concat.Concat(ctx, clipPaths, req.OutputPath); err != nil {
		return res, fatal(FailConcat, err)
	}
	res.OutputPath = req.OutputPath
	res.ClipCount = len(clipPaths)
	log.Info("compilation rendered", "output", req.OutputPath, "clips", res.ClipCount)
	return res, nil
}

// planSource runs the requested planner for one source. A POI plan that
// yields nothing falls back to the default planner; that fallback is part of
// the contract, silent audio must not empty a source's contribution.
func (o *Orchestrator) planSource(ctx context.Context, rng *rand.Rand, src *types.SourceMedia, allocated int, kind PlannerKind) []types.ClipDescriptor {
	if kind == PlannerPOI {
		samples, err := o.d.Energy.EnergySamples(ctx, src.Path)
		if err != nil {
			o.d.Logger.Warn("energy probe failed, using default planner", "source", src.Path, "error", err)
			samples = nil
		}
		if clips := plan.POI(rng, src, allocated, samples, o.cfg.Plan); len(clips) > 0 {
			return clips
		}
		o.d.Logger.Info("no points of interest, using default planner", "source", src.Path)
	}
	return plan.Default(rng, src, allocated, o.cfg.Plan)
}
