// Package store keeps match history and learned-policy blobs on disk.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/diegok/aipong/internal/game"
)

// ErrNotFound is returned when no policy was saved under a key
var ErrNotFound = errors.New("not found")

const (
	historyFile = "history.toml"
	policyDir   = "policies"
	policyExt   = ".msgpack"
)

type history struct {
	Results []game.Result `toml:"results"`
}

// FileStore writes everything under one directory. It is safe for
// concurrent use within a process.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

// SaveResult appends res to the match history
func (s *FileStore) SaveResult(res game.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.readHistory()
	if err != nil {
		return err
	}
	h.Results = append(h.Results, res)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(h); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.write(filepath.Join(s.dir, historyFile), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// Results returns the saved match history, oldest first
func (s *FileStore) Results() ([]game.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.readHistory()
	if err != nil {
		return nil, err
	}
	return h.Results, nil
}

func (s *FileStore) readHistory() (history, error) {
	var h history
	_, err := toml.DecodeFile(filepath.Join(s.dir, historyFile), &h)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("failed to read history: %w", err)
	}
	return h, nil
}

// SavePolicy stores an opaque policy blob under key
func (s *FileStore) SavePolicy(key string, blob []byte) error {
	path, err := s.policyPath(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(path, blob); err != nil {
		return fmt.Errorf("failed to save policy %q: %w", key, err)
	}
	return nil
}

// LoadPolicy returns the blob saved under key, or ErrNotFound
func (s *FileStore) LoadPolicy(key string) ([]byte, error) {
	path, err := s.policyPath(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("policy %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %q: %w", key, err)
	}
	return blob, nil
}

// policyPath maps a key like "policy/right" to a single file name
func (s *FileStore) policyPath(key string) (string, error) {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == '/', r == '.', r == ' ':
			return '_'
		}
		return -1
	}, key)
	if name == "" {
		return "", fmt.Errorf("invalid policy key %q", key)
	}
	return filepath.Join(s.dir, policyDir, name+policyExt), nil
}

// write replaces path atomically through a temp file in the same directory
func (s *FileStore) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
