package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	configDirName   = "daylog"
	secretsFileName = "secrets.json"
)

// FileStore persists secrets as a JSON file. It exists for headless
// environments and tests where no keychain is available.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// DefaultFileStore returns a FileStore using the default location:
// ~/.config/daylog/secrets.json
func DefaultFileStore() (*FileStore, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}

	path := filepath.Join(configDir, configDirName, secretsFileName)
	return &FileStore{path: path}, nil
}

// NewFileStore creates a FileStore with a custom path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path where secrets are stored.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes a secret, creating the parent directory if needed.
func (s *FileStore) Save(service, account, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	entries[key(service, account)] = secret
	return s.write(entries)
}

// Read returns the secret for (service, account).
// Returns ErrNotFound if no secret is stored.
func (s *FileStore) Read(service, account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}

	secret, ok := entries[key(service, account)]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Delete removes the secret for (service, account).
// Returns nil if no secret is stored.
func (s *FileStore) Delete(service, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := entries[key(service, account)]; !ok {
		return nil
	}

	delete(entries, key(service, account))
	return s.write(entries)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return nil
}

func key(service, account string) string {
	return service + "/" + account
}
