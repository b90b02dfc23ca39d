package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// inFlight holds temporary artifact paths this process is still writing.
var inFlight sync.Map

// trackInFlight marks path as being written until the returned func runs.
func trackInFlight(path string) func() {
	key := inFlightKey(path)
	inFlight.Store(key, struct{}{})
	return func() { inFlight.Delete(key) }
}

func inFlightKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// StaleArtifacts lists temporary artifacts in dir that nobody is writing:
// not in flight in this process, and neither the file nor its journals
// modified since cutoff. A temporary artifact outlives its Persist call only
// when the writing process died mid-write.
func StaleArtifacts(dir string, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var stale []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TempSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, busy := inFlight.Load(inFlightKey(path)); busy {
			continue
		}
		modified, ok := lastModified(path)
		if !ok {
			continue // removed while scanning
		}
		if modified.Before(cutoff) {
			stale = append(stale, path)
		}
	}
	return stale, nil
}

// lastModified is the newest mtime of path and its journal files.
// In rollback-journal mode the database file is only touched on spill or
// commit, so the journal is the better liveness signal.
func lastModified(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	newest := info.ModTime()
	for _, side := range []string{path + "-journal", path + "-wal"} {
		if si, err := os.Stat(side); err == nil && si.ModTime().After(newest) {
			newest = si.ModTime()
		}
	}
	return newest, true
}

// RemoveArtifact deletes an artifact together with its journal files.
func RemoveArtifact(path string) error {
	return removeArtifact(path)
}
