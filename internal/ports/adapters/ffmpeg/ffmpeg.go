package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/almikh/pmvgen/internal/types"
)

// Adapter shells out to ffmpeg/ffprobe. One adapter instance serves a whole
// job; it keeps no per-file state.
type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func (a *Adapter) VideoInfo(ctx context.Context, path string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,r_frame_rate,pix_fmt",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("ffprobe video info: %w\n%s", err, string(b))
	}

	var info types.VideoInfo
	for _, line := range strings.Split(string(b), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch k {
		case "codec_name":
			info.Codec = v
		case "width":
			info.Width, _ = strconv.Atoi(v)
		case "height":
			info.Height, _ = strconv.Atoi(v)
		case "pix_fmt":
			info.PixelFormat = v
		case "r_frame_rate":
			info.FPS = parseRate(v)
		}
	}
	return info, nil
}

func (a *Adapter) KeyframesInRange(ctx context.Context, path string, start, end float64) ([]float64, error) {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return a.keyframes(ctx, path, []string{
		"-read_intervals", fmtSeconds(start) + "%" + fmtSeconds(end),
	})
}

func (a *Adapter) Keyframes(ctx context.Context, path string) ([]float64, error) {
	return a.keyframes(ctx, path, nil)
}

func (a *Adapter) keyframes(ctx context.Context, path string, extra []string) ([]float64, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-skip_frame", "nokey",
		"-show_entries", "frame=pts_time",
		"-of", "csv=p=0",
	}
	args = append(args, extra...)
	args = append(args, path)
	cmd := exec.CommandContext(ctx, a.ffprobe, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe keyframes: %w\n%s", err, string(b))
	}

	var out []float64
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}
		t, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Extract copies duration seconds starting at start into an MPEG-TS file
// without re-encoding. TS keeps the bitstream concat-compatible across clips
// from different containers.
func (a *Adapter) Extract(ctx context.Context, path string, start float64, duration int, outPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-i", path,
		"-t", strconv.Itoa(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-f", "mpegts",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Concat(ctx context.Context, clipPaths []string, outPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("concat: no clips")
	}
	listPath := filepath.Join(filepath.Dir(clipPaths[0]), "concat.txt")
	var sb strings.Builder
	for _, p := range clipPaths {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		sb.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

// EnergySamples measures per-second RMS levels of the audio track. Output
// amplitudes are linear (0..1-ish), converted from dBFS.
func (a *Adapter) EnergySamples(ctx context.Context, path string) ([]types.POISample, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-i", path,
		"-vn",
		"-af", "aresample=8000,asetnsamples=n=8000,astats=metadata=1:reset=1,"+
			"ametadata=print:key=lavfi.astats.Overall.RMS_level:file=-",
		"-f", "null", "-",
	)
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg energy probe: %w", err)
	}
	return parseEnergyOutput(string(b)), nil
}

// parseEnergyOutput reads ametadata print blocks:
//
//	frame:12   pts:96000   pts_time:12
//	lavfi.astats.Overall.RMS_level=-31.76
func parseEnergyOutput(out string) []types.POISample {
	var samples []types.POISample
	ts := -1.0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "frame:") {
			if i := strings.Index(line, "pts_time:"); i >= 0 {
				v := strings.Fields(line[i+len("pts_time:"):])
				if len(v) > 0 {
					if t, err := strconv.ParseFloat(v[0], 64); err == nil {
						ts = t
					}
				}
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "lavfi.astats.Overall.RMS_level="); ok && ts >= 0 {
			db, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsInf(db, -1) {
				ts = -1
				continue
			}
			samples = append(samples, types.POISample{
				Timestamp: ts,
				Amplitude: math.Pow(10, db/20),
			})
			ts = -1
		}
	}
	return samples
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
