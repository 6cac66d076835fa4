package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-fetcher/internal/logging"
)

// SweepTempDirs removes per-fetch temp directories older than maxAge.
// A crashed or killed fetch leaves its directory behind; everything younger
// than maxAge may still belong to a running pipeline and is left alone.
// Returns the number of directories removed.
func (f *Fetcher) SweepTempDirs(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(f.tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("janitor: failed to stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(f.tmpDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logging.Warn("janitor: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Info("janitor: removed %d stale temp directories", removed)
	}
	return removed, nil
}
