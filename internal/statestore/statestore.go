// Package statestore persists and restores task/step status across
// process restarts, gated on a hash of the input table so a changed
// CSV never resumes against stale state.
//
// Grounded on the teacher's internal/state (atomic tmp+rename save,
// os.IsNotExist handling on load) and on model.py's
// persist_state/_resume_state for the resume algorithm itself.
package statestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/taskpanel/taskpanel/internal/model"
)

// Snapshot is the on-disk JSON shape from SPEC_FULL.md §4.5/§6.
type Snapshot struct {
	SourceCSVSHA256 string          `json:"source_csv_sha256"`
	Tasks           []TaskSnapshot  `json:"tasks"`
}

type TaskSnapshot struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Steps []StepSnapshot  `json:"steps"`
}

type StepSnapshot struct {
	Status model.Status `json:"status"`
}

// Store persists Snapshots at a path derived from the input CSV.
type Store struct {
	Path string
}

// New derives the state file path for a given input CSV path, e.g.
// "tasks.csv" -> ".tasks.csv.state.json" in the same directory.
func New(csvPath string) *Store {
	return &Store{Path: derivePath(csvPath)}
}

func derivePath(csvPath string) string {
	dir := filepath.Dir(csvPath)
	base := filepath.Base(csvPath)
	return filepath.Join(dir, fmt.Sprintf(".%s.state.json", base))
}

// HashFile computes the SHA-256 of a file in bounded-memory chunks, for
// use as the integrity gate on resume.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Save atomically writes the current task state.
func (s *Store) Save(sourceHash string, tasks []*model.Task) error {
	snap := Snapshot{SourceCSVSHA256: sourceHash}
	for _, t := range tasks {
		ts := TaskSnapshot{ID: t.ID, Name: t.Name}
		for _, step := range t.Steps {
			ts.Steps = append(ts.Steps, StepSnapshot{Status: step.Status})
		}
		snap.Tasks = append(snap.Tasks, ts)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("renaming state: %w", err)
	}
	return nil
}

// Load reads a prior Snapshot, returning (nil, nil) if no state file
// exists yet — a fresh run, not an error.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return &snap, nil
}

// Discard removes a state file that failed its integrity check,
// mirroring model.py's behavior of deleting rather than trusting a
// mismatched snapshot.
func (s *Store) Discard() error {
	err := os.Remove(s.Path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Resume applies a validated Snapshot onto freshly-parsed tasks,
// following model.py's _resume_state: for each task matched by ID,
// find the first step at RUNNING or KILLED (the point the process was
// interrupted at); if found, restore only the statuses strictly before
// it (everything from that point on re-runs from PENDING); if no such
// step exists, the prior run completed cleanly and every saved status
// is restored as-is.
func Resume(snap *Snapshot, tasks []*model.Task) []string {
	var warnings []string
	byID := make(map[int]TaskSnapshot, len(snap.Tasks))
	for _, ts := range snap.Tasks {
		byID[ts.ID] = ts
	}

	for _, t := range tasks {
		saved, ok := byID[t.ID]
		if !ok {
			continue
		}
		if saved.Name != t.Name {
			warnings = append(warnings, fmt.Sprintf(
				"task %d name changed (%q -> %q); discarding its saved state",
				t.ID, saved.Name, t.Name))
			continue
		}

		interruptedAt := -1
		for i, ss := range saved.Steps {
			if ss.Status == model.Running || ss.Status == model.Killed {
				interruptedAt = i
				break
			}
		}

		limit := len(saved.Steps)
		if interruptedAt >= 0 {
			limit = interruptedAt
		}
		for i := 0; i < limit && i < len(t.Steps); i++ {
			t.Steps[i].Status = saved.Steps[i].Status
		}
	}
	return warnings
}
