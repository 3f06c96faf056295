package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/mikey-austin/pitv/pkg/pitv"
)

// Store saves per-endpoint preferences under XDG_STATE_HOME or ~/.local/state.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a preferences store at the default location.
func NewStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(path), nil
}

// NewStoreAt creates a preferences store backed by path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the preferences stored for an endpoint.
func (s *Store) Get(endpoint string) (pitv.Preferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return pitv.Preferences{}, false, err
	}
	prefs, ok := data[endpoint]
	return prefs, ok, nil
}

// Put stores the preferences for an endpoint.
func (s *Store) Put(endpoint string, prefs pitv.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return err
	}
	data[endpoint] = prefs
	return s.writeAll(data)
}

// Clear removes the preferences for an endpoint.
func (s *Store) Clear(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := data[endpoint]; !ok {
		return nil
	}
	delete(data, endpoint)
	return s.writeAll(data)
}

func (s *Store) readAll() (map[string]pitv.Preferences, error) {
	data := map[string]pitv.Preferences{}
	file, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}
	if len(file) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeAll replaces the file atomically; it holds a credential so it stays 0600.
func (s *Store) writeAll(data map[string]pitv.Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// DefaultPath returns the preferences file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pitv", "preferences.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "pitv", "preferences.json"), nil
}
