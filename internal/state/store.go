package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

// RunState is the record of what previous runs processed
type RunState struct {
	SeenMessageIDs        []string           `json:"seen_message_ids"`
	SeenSecondaryEventIDs []string           `json:"seen_secondary_event_ids"`
	LastCheck             *time.Time         `json:"last_check"`
	LastActionItems       []types.ActionItem `json:"last_action_items"`
}

// Empty returns the default state used when nothing (valid) is on disk
func Empty() RunState {
	return RunState{
		SeenMessageIDs:        []string{},
		SeenSecondaryEventIDs: []string{},
		LastActionItems:       []types.ActionItem{},
	}
}

// Store owns the state file. Only one process may use it at a time; there is
// no locking, callers serialise runs.
type Store struct {
	path   string
	maxIDs int
	log    *logging.Logger

	// rename is swapped in tests to simulate a crash before the final rename
	rename func(oldpath, newpath string) error
}

// NewStore creates a store for the state file at path
func NewStore(path string, maxIDs int, log *logging.Logger) *Store {
	return &Store{
		path:   path,
		maxIDs: maxIDs,
		log:    log.With("state"),
		rename: os.Rename,
	}
}

// Path returns the canonical state file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing, unreadable or corrupt file yields the
// empty state; a run is never blocked on bad state.
func (s *Store) Load() RunState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("Failed to read %s, starting fresh: %v", s.path, err)
		}
		return Empty()
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Debug("Failed to parse %s, starting fresh: %v", s.path, err)
		return Empty()
	}

	// Ensure slices are not nil
	if st.SeenMessageIDs == nil {
		st.SeenMessageIDs = []string{}
	}
	if st.SeenSecondaryEventIDs == nil {
		st.SeenSecondaryEventIDs = []string{}
	}
	if st.LastActionItems == nil {
		st.LastActionItems = []types.ActionItem{}
	}
	return st
}

// Save trims both id lists to the newest maxIDs entries and replaces the state
// file atomically: readers see either the old or the new file, never a mix.
func (s *Store) Save(st RunState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	// The directory holds mail subjects and senders
	if err := os.Chmod(dir, 0700); err != nil {
		return fmt.Errorf("failed to restrict state directory: %w", err)
	}

	st.SeenMessageIDs = keepNewest(st.SeenMessageIDs, s.maxIDs)
	st.SeenSecondaryEventIDs = keepNewest(st.SeenSecondaryEventIDs, s.maxIDs)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict temp state file: %w", err)
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true

	s.log.Debug("Saved %d message ids, %d secondary event ids",
		len(st.SeenMessageIDs), len(st.SeenSecondaryEventIDs))
	return nil
}

// keepNewest drops the oldest (lowest-index) entries beyond max
func keepNewest(ids []string, max int) []string {
	if ids == nil {
		return []string{}
	}
	if max <= 0 || len(ids) <= max {
		return ids
	}
	out := make([]string, max)
	copy(out, ids[len(ids)-max:])
	return out
}
