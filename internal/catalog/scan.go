package catalog

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/almikh/pmvgen/internal/ports"
)

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".m4v": true, ".webm": true,
}

type ScanStats struct {
	Seen    int
	Added   int
	Updated int
	Missing int
	Merged  int
	Failed  int
}

type Scanner struct {
	db     *DB
	probe  ports.MediaProbe
	logger *slog.Logger
}

func NewScanner(db *DB, probe ports.MediaProbe, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scanner{db: db, probe: probe, logger: logger}
}

// Run walks the given folders for video files, probes them, and syncs the
// catalog: new files are inserted, known ones refreshed, vanished ones
// marked missing, and vanished duplicates merged into surviving rows that
// share their file size.
func (s *Scanner) Run(ctx context.Context, folders []string) (ScanStats, error) {
	var stats ScanStats
	seen := make(map[string]bool)

	for _, folder := range folders {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("scan: skipping entry", "path", path, "error", err)
				return nil
			}
			if d.IsDir() || !videoExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			stats.Seen++
			seen[path] = true

			info, err := d.Info()
			if err != nil {
				stats.Failed++
				return nil
			}
			existing, err := s.db.GetSourceByPath(ctx, path)
			if err != nil {
				return err
			}
			row := &Source{Path: path, SizeBytes: info.Size(), Present: true}
			if existing != nil {
				row.ID = existing.ID
				// unchanged files keep their probed metadata
				if existing.SizeBytes == info.Size() && existing.Duration > 0 {
					row.Duration = existing.Duration
					row.Codec = existing.Codec
					row.Width = existing.Width
					row.Height = existing.Height
					stats.Updated++
					return s.db.UpsertSource(ctx, row)
				}
			}

			dur, err := s.probe.Duration(ctx, path)
			if err != nil {
				s.logger.Warn("scan: probe failed", "path", path, "error", err)
				stats.Failed++
				return nil
			}
			row.Duration = dur
			if vi, err := s.probe.VideoInfo(ctx, path); err == nil {
				row.Codec = vi.Codec
				row.Width = vi.Width
				row.Height = vi.Height
			}
			if existing != nil {
				stats.Updated++
			} else {
				stats.Added++
			}
			return s.db.UpsertSource(ctx, row)
		})
		if err != nil {
			return stats, err
		}
	}

	missing, err := s.db.MarkMissing(ctx, seen)
	if err != nil {
		return stats, err
	}
	stats.Missing = missing

	merged, err := s.mergeVanishedDuplicates(ctx)
	if err != nil {
		return stats, err
	}
	stats.Merged = merged
	return stats, nil
}

// mergeVanishedDuplicates folds rows whose file disappeared into a present
// row of the same byte size (moved or renamed files keep their notes and
// usage history that way), then deletes the stale row.
func (s *Scanner) mergeVanishedDuplicates(ctx context.Context) (int, error) {
	all, err := s.db.ListSources(ctx, false)
	if err != nil {
		return 0, err
	}
	bySize := make(map[int64][]*Source)
	for _, src := range all {
		bySize[src.SizeBytes] = append(bySize[src.SizeBytes], src)
	}

	merged := 0
	for _, bucket := range bySize {
		var survivor *Source
		for _, src := range bucket {
			if src.Present {
				survivor = src
				break
			}
		}
		if survivor == nil {
			continue
		}
		for _, donor := range bucket {
			if donor.ID == survivor.ID || donor.Present {
				continue
			}
			survivor.Comments = CombineComments(survivor.Comments, donor.Comments)
			survivor.PMVList = MergePMVLists(survivor.PMVList, donor.PMVList)
			if _, err := s.db.conn.ExecContext(ctx,
				`UPDATE sources SET comments = ?, pmv_list = ? WHERE id = ?`,
				survivor.Comments, survivor.PMVList, survivor.ID); err != nil {
				return merged, err
			}
			if _, err := s.db.conn.ExecContext(ctx,
				`DELETE FROM sources WHERE id = ?`, donor.ID); err != nil {
				return merged, err
			}
			merged++
		}
	}
	return merged, nil
}

// CombineComments joins two comment fields, dropping empties and exact
// duplicates.
func CombineComments(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	case strings.Contains(a, b):
		return a
	}
	return a + "; " + b
}

// MergePMVLists unions two comma-separated compilation lists, preserving
// first-seen order.
func MergePMVLists(a, b string) string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(a+","+b, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return strings.Join(out, ", ")
}
