// Package state persists watch-mode observations across restarts in a JSON
// file, so a redeploy doesn't reset streaks or re-fire stale notifications.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/use-agent/lookout/models"
)

// TargetState is what the watcher remembers about one target between sweeps.
type TargetState struct {
	LastFingerprint    uint64     `json:"last_fingerprint"`
	LastDOMFingerprint uint64     `json:"last_dom_fingerprint"`
	LastStatus         string     `json:"last_status"`
	LastChecked        *time.Time `json:"last_checked,omitempty"`
	Streak             int        `json:"streak"`
}

// snapshot is the on-disk document.
type snapshot struct {
	Targets    map[string]*TargetState `json:"targets"`
	LastReport *models.RunReport       `json:"last_report,omitempty"`
}

// Store is a mutex-guarded write-through state file. Safe for concurrent use.
type Store struct {
	path string
	mu   sync.Mutex
	snap snapshot
}

// Open loads the state file. A missing or corrupt file loads as empty state
// rather than failing: the watcher can always start fresh.
func Open(path string) *Store {
	s := &Store{
		path: path,
		snap: snapshot{Targets: make(map[string]*TargetState)},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state file unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.snap); err != nil {
		slog.Warn("state file corrupt, starting empty", "path", path, "error", err)
		s.snap = snapshot{Targets: make(map[string]*TargetState)}
	}
	if s.snap.Targets == nil {
		s.snap.Targets = make(map[string]*TargetState)
	}
	return s
}

// Target returns a copy of the stored state for one target. The zero value
// means the target has never been observed.
func (s *Store) Target(id string) TargetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.snap.Targets[id]; ok {
		return *ts
	}
	return TargetState{}
}

// UpdateTarget stores one target's state and writes the file through.
func (s *Store) UpdateTarget(id string, ts TargetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := ts
	s.snap.Targets[id] = &copied
	return s.persistLocked()
}

// SetReport stores the most recent run report and writes the file through.
func (s *Store) SetReport(r *models.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastReport = r
	return s.persistLocked()
}

// Report returns the most recent run report, or nil before the first sweep.
func (s *Store) Report() *models.RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.LastReport
}

// Targets returns a copy of every target's state, keyed by target ID.
func (s *Store) Targets() map[string]TargetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TargetState, len(s.snap.Targets))
	for id, ts := range s.snap.Targets {
		out[id] = *ts
	}
	return out
}

// Reset clears all remembered state and writes the file through.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snapshot{Targets: make(map[string]*TargetState)}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(&s.snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
