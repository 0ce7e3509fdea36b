package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// StateStore reads and writes the relay state file.
type StateStore struct {
	path string
	mu   sync.Mutex
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty state.
func (s *StateStore) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.validateState(&state); err != nil {
		return nil, fmt.Errorf("invalid state %s: %w", s.path, err)
	}

	return &state, nil
}

// Save replaces the state file atomically.
func (s *StateStore) Save(state *State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}

	slog.Debug("Saved config to disk", "path", s.path, "feeds", len(state.Feeds))
	return nil
}

func (s *StateStore) validateState(state *State) error {
	seen := make(map[string]bool, len(state.Feeds))
	for i, feed := range state.Feeds {
		requiredFields := map[string]string{
			"channel": feed.Channel,
			"name":    feed.Name,
			"url":     feed.URL,
		}
		for fieldName, fieldValue := range requiredFields {
			if fieldValue == "" {
				return fmt.Errorf("feed at index %d: %s is required", i, fieldName)
			}
		}
		if seen[feed.Name] {
			return fmt.Errorf("feed at index %d: duplicate name %q", i, feed.Name)
		}
		seen[feed.Name] = true
	}

	for field, tmpl := range state.Templates {
		if len(field) != 1 {
			return fmt.Errorf("invalid template field %q", field)
		}
		if tmpl == "" {
			return fmt.Errorf("template of field %q is empty", field)
		}
	}

	return nil
}
