// Package disk provides the temp-directory collaborator backed by statfs.
package disk

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type Provider struct{}

func New() *Provider { return &Provider{} }

// PickTempDir returns the first candidate directory with at least
// minFreeBytes available, creating it if needed. With no candidates the
// system temp dir is considered.
func (p *Provider) PickTempDir(candidates []string, minFreeBytes int64) (string, error) {
	if len(candidates) == 0 {
		candidates = []string{os.TempDir()}
	}
	var lastErr error
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lastErr = err
			continue
		}
		free, err := freeBytes(dir)
		if err != nil {
			lastErr = err
			continue
		}
		if free >= minFreeBytes {
			return dir, nil
		}
		lastErr = fmt.Errorf("%s: %d bytes free, need %d", dir, free, minFreeBytes)
	}
	if lastErr == nil {
		lastErr = errors.New("no temp dir candidates")
	}
	return "", fmt.Errorf("no temp dir with enough space: %w", lastErr)
}

func freeBytes(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
