package ports

import (
	"context"

	"github.com/almikh/pmvgen/internal/types"
)

// MediaProbe answers metadata questions about a source file.
type MediaProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
	VideoInfo(ctx context.Context, path string) (types.VideoInfo, error)
	// KeyframesInRange returns sorted keyframe timestamps within [start, end].
	KeyframesInRange(ctx context.Context, path string, start, end float64) ([]float64, error)
	// Keyframes scans the whole file. Expensive; callers cache the result.
	Keyframes(ctx context.Context, path string) ([]float64, error)
}

// MediaExtract cuts one clip out of a source into outPath. Implementations
// must tolerate float starts and use lossless stream copy into a container
// that supports bitstream concatenation.
type MediaExtract interface {
	Extract(ctx context.Context, path string, start float64, duration int, outPath string) error
}

// MediaConcat joins extracted clips, in order, into outPath.
type MediaConcat interface {
	Concat(ctx context.Context, clipPaths []string, outPath string) error
}

// AudioEnergy samples a file's audio energy over time.
type AudioEnergy interface {
	EnergySamples(ctx context.Context, path string) ([]types.POISample, error)
}

// TempDirProvider picks a work directory with at least minFreeBytes available.
type TempDirProvider interface {
	PickTempDir(candidates []string, minFreeBytes int64) (string, error)
}
