package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/almikh/pmvgen/internal/catalog"
	"github.com/almikh/pmvgen/internal/domain/plan"
	"github.com/almikh/pmvgen/internal/domain/sequence"
	"github.com/almikh/pmvgen/internal/ports"
	"github.com/almikh/pmvgen/internal/ports/adapters/disk"
	"github.com/almikh/pmvgen/internal/ports/adapters/ffmpeg"
	"github.com/almikh/pmvgen/internal/render"
)

type Config struct {
	Sources       []string // explicit paths; empty = draw from the catalog
	FromCatalog   int      // sources drawn per output when using the catalog; 0 = all
	TargetSeconds int
	Count         int    // outputs in this batch
	OutputPath    string // file for one output, numbered for a batch
	Planner       string // "default" or "poi"
	Algorithm     string // empty = rotate via the picker
	Seed          int64

	Profile Profile

	FFmpegPath  string
	FFprobePath string
	CatalogPath string // empty = run without a catalog

	Logger *slog.Logger
}

func (c Config) Validate() error {
	if c.TargetSeconds <= 0 {
		return errors.New("target seconds must be > 0")
	}
	if c.OutputPath == "" {
		return errors.New("output path is empty")
	}
	if len(c.Sources) == 0 && c.CatalogPath == "" {
		return errors.New("no sources given and no catalog configured")
	}
	if _, err := render.ParsePlanner(c.Planner); err != nil {
		return err
	}
	if c.Algorithm != "" {
		if _, err := sequence.Parse(c.Algorithm); err != nil {
			return err
		}
	}
	return nil
}

// Run renders a batch of Count compilations. A failed output does not
// advance the algorithm rotation and does not stop the batch; Run fails only
// when every output failed.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	media := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	deps := render.Deps{
		Probe:   media,
		Extract: media,
		Concat:  media,
		Energy:  media,
		Temp:    disk.New(),
		Logger:  logger,
	}

	var cat *catalog.DB
	if cfg.CatalogPath != "" {
		var err error
		cat, err = catalog.Open(cfg.CatalogPath, logger)
		if err != nil {
			return err
		}
		defer cat.Close()
	}

	count := cfg.Count
	if count < 1 {
		count = 1
	}
	planner, err := render.ParsePlanner(cfg.Planner)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	picker := sequence.NewPicker(rng, count)

	rendered := 0
	var lastErr error
	for i := 0; i < count; i++ {
		algo := picker.Current()
		if cfg.Algorithm != "" {
			algo, _ = sequence.Parse(cfg.Algorithm)
		}

		paths := cfg.Sources
		if len(paths) == 0 {
			paths, err = pickFromCatalog(ctx, cat, rng, cfg.FromCatalog)
			if err != nil {
				return err
			}
		}

		outPath := numberedOutput(cfg.OutputPath, i, count)
		orch := render.New(deps, render.Config{
			Seed:       cfg.Seed + int64(i),
			PerFileMax: cfg.Profile.PerFileMax,
			Plan: plan.Params{
				BigParts:     cfg.Profile.BigParts,
				SmallPerBig:  cfg.Profile.SmallPerBig,
				MinSmallClip: cfg.Profile.MinSmallClip,
				HeadGuard:    cfg.Profile.HeadGuard,
				TailGuard:    cfg.Profile.TailGuard,
			},
			AssumedBitrateBps: cfg.Profile.AssumedBitrateBps,
			MaxOutputBytes:    cfg.Profile.MaxOutputBytes,
			SnapKeyframes:     cfg.Profile.SnapKeyframesValue(),
			TempCandidates:    cfg.Profile.TempCandidates,
		})

		res, err := orch.Run(ctx, render.Request{
			Paths:         paths,
			TargetSeconds: cfg.TargetSeconds,
			Planner:       planner,
			Algorithm:     algo,
			OutputPath:    outPath,
		})
		if err != nil {
			logger.Error("output failed", "output", outPath, "error", err)
			lastErr = err
			continue
		}
		picker.Commit()
		rendered++
		recordOutcome(ctx, cat, logger, cfg.TargetSeconds, algo, res)
	}

	if rendered == 0 {
		return fmt.Errorf("batch: all %d outputs failed: %w", count, lastErr)
	}
	logger.Info("batch done", "rendered", rendered, "requested", count)
	return nil
}

func pickFromCatalog(ctx context.Context, cat *catalog.DB, rng *rand.Rand, n int) ([]string, error) {
	if cat == nil {
		return nil, errors.New("no catalog configured")
	}
	rows, err := cat.ListSources(ctx, true)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, s := range rows {
		if s.Problem {
			continue
		}
		paths = append(paths, s.Path)
	}
	if n > 0 && n < len(paths) {
		rng.Shuffle(len(paths), func(a, b int) { paths[a], paths[b] = paths[b], paths[a] })
		paths = paths[:n]
	}
	return paths, nil
}

// recordOutcome persists the finished compilation and per-source flags; the
// catalog is bookkeeping only and its failures never fail a finished render.
func recordOutcome(ctx context.Context, cat *catalog.DB, logger *slog.Logger, target int, algo sequence.Algorithm, res render.Result) {
	if cat == nil {
		return
	}
	name := strings.TrimSuffix(filepath.Base(res.OutputPath), filepath.Ext(res.OutputPath))
	if err := cat.RecordCompilation(ctx, &catalog.Compilation{
		OutputPath:    res.OutputPath,
		TargetSeconds: target,
		ClipCount:     res.ClipCount,
		Algorithm:     algo.String(),
	}); err != nil {
		logger.Warn("catalog: record compilation failed", "error", err)
	}
	for _, path := range res.UsedSources {
		if err := cat.AppendPMV(ctx, path, name); err != nil {
			logger.Warn("catalog: pmv list update failed", "path", path, "error", err)
		}
	}
	for _, path := range res.ProblemSources {
		if err := cat.FlagProblem(ctx, path); err != nil {
			logger.Warn("catalog: problem flag failed", "path", path, "error", err)
		}
	}
}

func numberedOutput(base string, i, count int) string {
	if count == 1 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%02d%s", strings.TrimSuffix(base, ext), i+1, ext)
}

// ensure the ffmpeg adapter satisfies every collaborator port
var (
	_ ports.MediaProbe      = (*ffmpeg.Adapter)(nil)
	_ ports.MediaExtract    = (*ffmpeg.Adapter)(nil)
	_ ports.MediaConcat     = (*ffmpeg.Adapter)(nil)
	_ ports.AudioEnergy     = (*ffmpeg.Adapter)(nil)
	_ ports.TempDirProvider = (*disk.Provider)(nil)
)
