package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almikh/pmvgen/internal/types"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertSource_KeepsIDOnUpdate(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	ctx := context.Background()

	s := &Source{Path: "/videos/a.mp4", SizeBytes: 100, Duration: 42, Codec: "h264", Present: true}
	require.NoError(t, db.UpsertSource(ctx, s))
	require.NotEmpty(t, s.ID)

	again := &Source{Path: "/videos/a.mp4", SizeBytes: 200, Duration: 43, Present: true}
	require.NoError(t, db.UpsertSource(ctx, again))

	got, err := db.GetSourceByPath(ctx, "/videos/a.mp4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, int64(200), got.SizeBytes)
	assert.InDelta(t, 43.0, got.Duration, 0.001)

	rows, err := db.ListSources(ctx, true)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFlagProblemAndPMVList(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSource(ctx, &Source{Path: "/v/a.mp4", Present: true}))
	require.NoError(t, db.FlagProblem(ctx, "/v/a.mp4"))
	require.NoError(t, db.AppendPMV(ctx, "/v/a.mp4", "mix-01"))
	require.NoError(t, db.AppendPMV(ctx, "/v/a.mp4", "mix-02"))
	require.NoError(t, db.AppendPMV(ctx, "/v/a.mp4", "mix-01")) // dedup

	got, err := db.GetSourceByPath(ctx, "/v/a.mp4")
	require.NoError(t, err)
	assert.True(t, got.Problem)
	assert.Equal(t, "mix-01, mix-02", got.PMVList)
}

func TestRecordCompilation(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	require.NoError(t, db.RecordCompilation(context.Background(), &Compilation{
		OutputPath:    "/out/pmv.mp4",
		TargetSeconds: 300,
		ClipCount:     42,
		Algorithm:     "waves",
	}))
}

func TestBackup(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	dir := t.TempDir()
	path, err := db.Backup(dir)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

type fixedProbe struct{}

func (fixedProbe) Duration(context.Context, string) (float64, error) { return 33.5, nil }
func (fixedProbe) VideoInfo(context.Context, string) (types.VideoInfo, error) {
	return types.VideoInfo{Codec: "h264", Width: 1920, Height: 1080}, nil
}
func (fixedProbe) KeyframesInRange(context.Context, string, float64, float64) ([]float64, error) {
	return nil, nil
}
func (fixedProbe) Keyframes(context.Context, string) ([]float64, error) { return nil, nil }

func TestScanner_AddsAndMerges(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	ctx := context.Background()
	folder := t.TempDir()
	scanner := NewScanner(db, fixedProbe{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	oldPath := filepath.Join(folder, "clip.mp4")
	require.NoError(t, os.WriteFile(oldPath, []byte("0123456789"), 0o644))

	stats, err := scanner.Run(ctx, []string{folder})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)

	require.NoError(t, db.AppendPMV(ctx, oldPath, "mix-07"))

	// renaming the file keeps its byte size; the stale row must be folded
	// into the new one so usage history survives
	newPath := filepath.Join(folder, "renamed.mp4")
	require.NoError(t, os.Rename(oldPath, newPath))

	stats, err = scanner.Run(ctx, []string{folder})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 1, stats.Merged)

	rows, err := db.ListSources(ctx, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, newPath, rows[0].Path)
	assert.Equal(t, "mix-07", rows[0].PMVList)
	assert.InDelta(t, 33.5, rows[0].Duration, 0.001)
}

func TestScanner_SkipsNonVideoFiles(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "v.MKV"), []byte("x"), 0o644))

	stats, err := NewScanner(db, fixedProbe{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Run(context.Background(), []string{folder})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Seen)
	assert.Equal(t, 1, stats.Added)
}

func TestMergeHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a; b", CombineComments("a", "b"))
	assert.Equal(t, "a", CombineComments("a", ""))
	assert.Equal(t, "b", CombineComments("", "b"))
	assert.Equal(t, "a", CombineComments("a", "a"))

	assert.Equal(t, "x, y, z", MergePMVLists("x, y", "y,z"))
	assert.Equal(t, "x", MergePMVLists("x", ""))
	assert.Equal(t, "", MergePMVLists("", ""))
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "1.5 MB", FormatSize(3*1024*1024/2))
	assert.Equal(t, "2.0 GB", FormatSize(2<<30))
}
