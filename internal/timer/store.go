package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStateNotFound is returned when no persisted state exists for a key.
var ErrStateNotFound = errors.New("timer state not found")

// StateStore persists timer states keyed by (user, project task) so a timer
// survives process restarts on the same device.
type StateStore interface {
	// Save persists a state, replacing any previous one for the same key
	Save(state State) error

	// Load reads the state for a key, or ErrStateNotFound
	Load(userID, projectTaskID uint64) (*State, error)

	// Clear removes the state for a key; clearing a missing key is a no-op
	Clear(userID, projectTaskID uint64) error

	// List returns every persisted state
	List() ([]State, error)
}

// FileStateStore stores one JSON file per timer under a directory.
type FileStateStore struct {
	dir string
}

// NewFileStateStore creates the directory if needed and returns a store.
func NewFileStateStore(dir string) (*FileStateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create timer state dir: %w", err)
	}
	return &FileStateStore{dir: dir}, nil
}

func (s *FileStateStore) path(userID, projectTaskID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("timer-u%d-t%d.json", userID, projectTaskID))
}

// Save persists a state. The write goes through a temp file and a rename so
// a crash mid-write never leaves a partial state behind.
func (s *FileStateStore) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal timer state: %w", err)
	}

	path := s.path(state.UserID, state.ProjectTaskID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write timer state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit timer state: %w", err)
	}
	return nil
}

// Load reads the state for a key.
func (s *FileStateStore) Load(userID, projectTaskID uint64) (*State, error) {
	data, err := os.ReadFile(s.path(userID, projectTaskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read timer state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse timer state: %w", err)
	}
	return &state, nil
}

// Clear removes the state for a key.
func (s *FileStateStore) Clear(userID, projectTaskID uint64) error {
	err := os.Remove(s.path(userID, projectTaskID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear timer state: %w", err)
	}
	return nil
}

// List returns every persisted state. Unreadable files are skipped rather
// than failing the whole recovery pass.
func (s *FileStateStore) List() ([]State, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "timer-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan timer state dir: %w", err)
	}

	states := make([]State, 0, len(matches))
	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			continue
		}
		var state State
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		states = append(states, state)
	}
	return states, nil
}
