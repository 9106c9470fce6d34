// Package store is the key/value persistence gateway. It is the analogue of
// browser local storage: string values by key, no business logic.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Keys owned by the connection controller. Other components read them only.
const (
	KeyLastWalletID    = "last_wallet_id"
	KeyConnectionStart = "connection_start_time"
	KeyConnectionState = "connection_state"
	KeyUserPreferences = "user_preferences"
)

// Gateway is the persistence contract.
type Gateway interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

const stateFile = "state.json"

// File is a Gateway backed by a single JSON file under dir.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file-backed store under dir (created if missing).
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &File{path: filepath.Join(dir, stateFile)}, nil
}

func (f *File) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	m[key] = value
	return f.save(m)
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return f.save(m)
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing store: %w", err)
	}
	if m == nil {
		m = make(map[string]string)
	}
	return m, nil
}

func (f *File) save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

// Mem is an in-memory Gateway for tests and dry runs.
type Mem struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{m: make(map[string]string)}
}

func (s *Mem) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *Mem) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Mem) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
