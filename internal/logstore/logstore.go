// Package logstore manages the per-step stdout/stderr log files under
// the deterministic layout described in SPEC_FULL.md §4.1.
package logstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Store prepares and tears down per-step log files.
type Store struct {
	Root string // "<input-dir>/.<basename>.logs"
}

// New derives the log root for a given input CSV path, following the
// teacher's convention of rooting ancillary files alongside the input
// rather than in a global home directory.
func New(csvPath string) *Store {
	dir := filepath.Dir(csvPath)
	base := filepath.Base(csvPath)
	return &Store{Root: filepath.Join(dir, fmt.Sprintf(".%s.logs", base))}
}

// Prepare ensures the directory holding the given step log paths exists.
func (s *Store) Prepare(logPathStdout string) error {
	return os.MkdirAll(filepath.Dir(logPathStdout), 0o755)
}

// Truncate removes both log files for a step, tolerating their absence —
// used before a rerun so stale output never survives alongside fresh.
func Truncate(stdout, stderr string) {
	_ = os.Remove(stdout)
	_ = os.Remove(stderr)
}

// Tail returns up to the last n lines of a log file, for display in the
// status view. It tolerates a file that is still being written to.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(ring) < n {
			ring = append(ring, line)
		} else {
			copy(ring, ring[1:])
			ring[n-1] = line
		}
	}
	return ring, nil
}
