// Package catalog keeps the source/compilation bookkeeping in sqlite. The
// engine itself never requires a catalog; the CLI uses it to pick sources
// and to persist scan results and finished jobs.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id               TEXT PRIMARY KEY,
	path             TEXT NOT NULL UNIQUE,
	size_bytes       INTEGER NOT NULL DEFAULT 0,
	duration_seconds REAL NOT NULL DEFAULT 0,
	codec            TEXT NOT NULL DEFAULT '',
	width            INTEGER NOT NULL DEFAULT 0,
	height           INTEGER NOT NULL DEFAULT 0,
	comments         TEXT NOT NULL DEFAULT '',
	pmv_list         TEXT NOT NULL DEFAULT '',
	problem          INTEGER NOT NULL DEFAULT 0,
	present          INTEGER NOT NULL DEFAULT 1,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS compilations (
	id             TEXT PRIMARY KEY,
	output_path    TEXT NOT NULL,
	target_seconds INTEGER NOT NULL,
	clip_count     INTEGER NOT NULL,
	algorithm      TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
`

type Source struct {
	ID        string
	Path      string
	SizeBytes int64
	Duration  float64
	Codec     string
	Width     int
	Height    int
	Comments  string
	PMVList   string
	Problem   bool
	Present   bool
}

type Compilation struct {
	ID            string
	OutputPath    string
	TargetSeconds int
	ClipCount     int
	Algorithm     string
}

type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("catalog %s: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return &DB{conn: conn, path: dbPath, logger: logger}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// Backup copies the database file into dir with a timestamped name before
// destructive operations like a scan.
func (d *DB) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("read catalog for backup: %w", err)
	}
	dst := filepath.Join(dir, fmt.Sprintf("catalog_backup_%s.db", time.Now().Format("060102_1504")))
	if err := os.WriteFile(dst, src, 0o644); err != nil {
		return "", fmt.Errorf("write catalog backup: %w", err)
	}
	return dst, nil
}

// UpsertSource inserts a new row or refreshes the mutable fields of an
// existing one, keyed by path. The row ID survives updates.
func (d *DB) UpsertSource(ctx context.Context, s *Source) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO sources (id, path, size_bytes, duration_seconds, codec, width, height,
			comments, pmv_list, problem, present, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			duration_seconds = excluded.duration_seconds,
			codec = excluded.codec,
			width = excluded.width,
			height = excluded.height,
			present = excluded.present,
			updated_at = excluded.updated_at
	`, s.ID, s.Path, s.SizeBytes, s.Duration, s.Codec, s.Width, s.Height,
		s.Comments, s.PMVList, boolToInt(s.Problem), boolToInt(s.Present), now, now)
	return err
}

func (d *DB) GetSourceByPath(ctx context.Context, path string) (*Source, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, path, size_bytes, duration_seconds, codec, width, height,
			comments, pmv_list, problem, present
		FROM sources WHERE path = ?
	`, path)
	return scanSource(row)
}

func (d *DB) ListSources(ctx context.Context, onlyPresent bool) ([]*Source, error) {
	q := `SELECT id, path, size_bytes, duration_seconds, codec, width, height,
		comments, pmv_list, problem, present FROM sources`
	if onlyPresent {
		q += ` WHERE present = 1`
	}
	q += ` ORDER BY path`
	rows, err := d.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkMissing clears the present flag on every row whose path is not in
// seen; returns how many rows changed.
func (d *DB) MarkMissing(ctx context.Context, seen map[string]bool) (int, error) {
	all, err := d.ListSources(ctx, true)
	if err != nil {
		return 0, err
	}
	missing := 0
	for _, s := range all {
		if seen[s.Path] {
			continue
		}
		if _, err := d.conn.ExecContext(ctx,
			`UPDATE sources SET present = 0, updated_at = ? WHERE id = ?`,
			time.Now().UTC().Format(time.RFC3339), s.ID); err != nil {
			return missing, err
		}
		missing++
	}
	return missing, nil
}

// FlagProblem annotates a source that failed extraction during a render.
func (d *DB) FlagProblem(ctx context.Context, path string) error {
	_, err := d.conn.ExecContext(ctx,
		`UPDATE sources SET problem = 1, updated_at = ? WHERE path = ?`,
		time.Now().UTC().Format(time.RFC3339), path)
	return err
}

// AppendPMV records that a source was used in the named compilation.
func (d *DB) AppendPMV(ctx context.Context, path, pmvName string) error {
	s, err := d.GetSourceByPath(ctx, path)
	if err != nil || s == nil {
		return err
	}
	merged := MergePMVLists(s.PMVList, pmvName)
	if merged == s.PMVList {
		return nil
	}
	_, err = d.conn.ExecContext(ctx,
		`UPDATE sources SET pmv_list = ?, updated_at = ? WHERE id = ?`,
		merged, time.Now().UTC().Format(time.RFC3339), s.ID)
	return err
}

func (d *DB) RecordCompilation(ctx context.Context, c *Compilation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO compilations (id, output_path, target_seconds, clip_count, algorithm, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.OutputPath, c.TargetSeconds, c.ClipCount, c.Algorithm,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func scanSource(row interface{ Scan(...any) error }) (*Source, error) {
	var s Source
	var problem, present int
	err := row.Scan(&s.ID, &s.Path, &s.SizeBytes, &s.Duration, &s.Codec, &s.Width, &s.Height,
		&s.Comments, &s.PMVList, &problem, &present)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Problem = problem == 1
	s.Present = present == 1
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
