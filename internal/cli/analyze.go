package cli

import (
	"context"
	"time"

	"github.com/almikh/pmvgen/internal/music"
	"github.com/almikh/pmvgen/internal/ports/adapters/ffmpeg"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <audio>",
		Short: "Create a music project with intensity segments for beat-synced cuts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}
	cmd.Flags().String("name", "", "Project name (defaults to the audio file name)")
	cmd.Flags().Float64("segment", music.DefaultTargetSegment, "Minimum segment seconds; larger = fewer cuts")
	cmd.Flags().String("mode", music.ModeEnergy, "Segmentation mode (energy|uniform)")
	cmd.Flags().String("projects", "music_projects", "Projects root directory")
	return cmd
}

func runAnalyze(cmd *cobra.Command, audioPath string) error {
	name, _ := cmd.Flags().GetString("name")
	segment, _ := cmd.Flags().GetFloat64("segment")
	mode, _ := cmd.Flags().GetString("mode")
	projectsRoot, _ := cmd.Flags().GetString("projects")

	energy := ffmpeg.New(
		getenvDefault("PMVGEN_FFMPEG", "ffmpeg"),
		getenvDefault("PMVGEN_FFPROBE", "ffprobe"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	m, err := music.CreateProject(ctx, energy, audioPath, projectsRoot, music.Options{
		Name:          name,
		Mode:          mode,
		TargetSegment: segment,
	})
	if err != nil {
		return err
	}
	cmd.Printf("project %s created: %d segments (%s mode), %.1fs of audio\n",
		m.Slug, len(m.Analysis.Segments), m.Analysis.Mode, m.Analysis.Duration)
	return nil
}
