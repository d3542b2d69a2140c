package music

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/almikh/pmvgen/internal/ports"
)

const (
	ModeEnergy  = "energy"
	ModeUniform = "uniform"

	DefaultTargetSegment = 1.0 // seconds
)

type Analysis struct {
	Duration float64   `json:"duration"`
	Mode     string    `json:"mode"`
	Segments []Segment `json:"segments"`
}

type Manifest struct {
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	AudioPath  string   `json:"audio_path"`
	SourceFile string   `json:"source_file"`
	CreatedAt  string   `json:"created_at"`
	Analysis   Analysis `json:"analysis"`
}

type Options struct {
	Name          string
	Mode          string  // energy or uniform
	TargetSegment float64 // minimum segment seconds; larger = fewer cuts
}

// Analyze probes the track's energy curve and builds the segment list. A
// track with no measurable audio falls back to uniform segmentation.
func Analyze(ctx context.Context, energy ports.AudioEnergy, audioPath string, opts Options) (Analysis, error) {
	target := opts.TargetSegment
	if target <= 0.2 {
		target = DefaultTargetSegment
	}
	mode := opts.Mode
	if mode != ModeUniform {
		mode = ModeEnergy
	}

	samples, err := energy.EnergySamples(ctx, audioPath)
	if err != nil {
		return Analysis{}, fmt.Errorf("energy probe: %w", err)
	}
	duration := 0.0
	if n := len(samples); n > 0 {
		duration = samples[n-1].Timestamp + 1
	}

	var segments []Segment
	if mode == ModeEnergy {
		segments = BuildFromEnergy(samples, target)
	}
	if len(segments) == 0 {
		segments = BuildUniform(duration, target)
		mode = ModeUniform
	}
	return Analysis{Duration: round3(duration), Mode: mode, Segments: segments}, nil
}

// CreateProject analyzes the track and persists a project directory under
// projectsRoot: a local copy of the audio, manifest.json and timecodes.txt.
func CreateProject(ctx context.Context, energy ports.AudioEnergy, audioPath, projectsRoot string, opts Options) (Manifest, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return Manifest{}, err
	}
	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}
	slug := Slugify(name)
	projectDir := filepath.Join(projectsRoot, slug)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return Manifest{}, err
	}

	analysis, err := Analyze(ctx, energy, abs, opts)
	if err != nil {
		return Manifest{}, err
	}

	localAudio := filepath.Join(projectDir, "audio"+filepath.Ext(abs))
	if err := copyFile(abs, localAudio); err != nil {
		return Manifest{}, fmt.Errorf("copy audio: %w", err)
	}

	m := Manifest{
		Name:       name,
		Slug:       slug,
		AudioPath:  localAudio,
		SourceFile: abs,
		CreatedAt:  time.Now().Format("2006-01-02 15:04:05"),
		Analysis:   analysis,
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "manifest.json"), b, 0o644); err != nil {
		return Manifest{}, err
	}
	if err := WriteTimecodes(analysis.Segments, filepath.Join(projectDir, "timecodes.txt")); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// WriteTimecodes stores segments as one start,end,intensity line each, a
// format the external beat-sync tooling consumes.
func WriteTimecodes(segments []Segment, path string) error {
	var sb strings.Builder
	sb.WriteString("# start_seconds,end_seconds,intensity\n")
	for _, seg := range segments {
		fmt.Fprintf(&sb, "%.3f,%.3f,%.3f\n", seg.Start, seg.End, seg.Intensity)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// Slugify reduces a project name to a filesystem-safe slug.
func Slugify(text string) string {
	const allowed = "abcdefghijklmnopqrstuvwxyz0123456789-_"
	var b strings.Builder
	for _, ch := range strings.ToLower(text) {
		if strings.ContainsRune(allowed, ch) {
			b.WriteRune(ch)
		} else {
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = fmt.Sprintf("project-%d", time.Now().Unix())
	}
	return slug
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
