package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/almikh/pmvgen/internal/pipeline"
	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [source...]",
		Short: "Render one or more compilations from the given sources or the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args)
		},
	}

	cmd.Flags().Int("target", 300, "Target compilation length in seconds")
	cmd.Flags().String("out", "pmv.mp4", "Output file (numbered when --count > 1)")
	cmd.Flags().Int("count", 1, "Number of compilations to render")
	cmd.Flags().String("algo", "", "Sequencing algorithm (carousel|waves|bursts|poi|strata); empty rotates")
	cmd.Flags().String("planner", "default", "Clip planner (default|poi)")
	cmd.Flags().Int64("seed", 0, "Random seed; 0 derives one from the clock")
	cmd.Flags().String("profile", "", "Path to a yaml render profile")
	cmd.Flags().Int("from-catalog", 0, "Draw this many random catalog sources per output (0 = all)")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetInt("target")
	out, _ := cmd.Flags().GetString("out")
	count, _ := cmd.Flags().GetInt("count")
	algo, _ := cmd.Flags().GetString("algo")
	planner, _ := cmd.Flags().GetString("planner")
	seed, _ := cmd.Flags().GetInt64("seed")
	profilePath, _ := cmd.Flags().GetString("profile")
	fromCatalog, _ := cmd.Flags().GetInt("from-catalog")

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	profile := pipeline.DefaultProfile()
	if profilePath != "" {
		var err error
		if profile, err = pipeline.LoadProfile(profilePath); err != nil {
			return err
		}
	}

	cfg := pipeline.Config{
		Sources:       args,
		FromCatalog:   fromCatalog,
		TargetSeconds: target,
		Count:         count,
		OutputPath:    out,
		Planner:       planner,
		Algorithm:     algo,
		Seed:          seed,
		Profile:       profile,
		FFmpegPath:    getenvDefault("PMVGEN_FFMPEG", "ffmpeg"),
		FFprobePath:   getenvDefault("PMVGEN_FFPROBE", "ffprobe"),
		CatalogPath:   os.Getenv("PMVGEN_DB"),
		Logger:        newLogger(),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// A render blocks for its whole duration; no mid-job cancellation beyond
	// the outer timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Hour)
	defer cancel()
	return pipeline.Run(ctx, cfg)
}

func newLogger() *slog.Logger {
	lvl := slog.LevelInfo
	if os.Getenv("PMVGEN_DEBUG") != "" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
