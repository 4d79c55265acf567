// Package filestore keeps credentials in a single JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/subscout-dev/subscout/internal/credentials"
)

// Store is a credentials.Repository backed by a JSON object file.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ credentials.Repository = (*Store)(nil)

// New returns a Store for path. The file is created on the first Put.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Get returns the credential stored for id.
func (s *Store) Get(_ context.Context, id string) (credentials.Credential, error) {
	if id == "" {
		return credentials.Credential{}, credentials.ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return credentials.Credential{}, err
	}
	cred, ok := all[id]
	if !ok {
		return credentials.Credential{}, fmt.Errorf("%w: %s", credentials.ErrNotFound, id)
	}
	return cred, nil
}

// Put stores cred under id, replacing any existing entry.
func (s *Store) Put(_ context.Context, id string, cred credentials.Credential) error {
	if id == "" {
		return credentials.ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = s.now().UTC()
	}
	all[id] = cred
	return s.write(all)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) read() (map[string]credentials.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]credentials.Credential), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	all := make(map[string]credentials.Credential)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", s.path, err)
	}
	return all, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *Store) write(all map[string]credentials.Credential) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing credentials: %w", err)
	}
	return nil
}
