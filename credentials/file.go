package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "github.com/jrsteele09/merchant-console/internal/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore persists credentials as a JSON document readable only by the
// current user. Every operation reloads the file so separate processes
// sharing the path see each other's writes.
type FileStore struct {
	path    string
	nowFunc func() time.Time
	lock    sync.Mutex
}

func NewFileStore(path string, opts ...Option) *FileStore {
	o := buildOptions(opts)
	return &FileStore{
		path:    path,
		nowFunc: o.nowFunc,
	}
}

// Path returns the backing file location
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Set(_ context.Context, token, apiKey string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	expiresAt := s.nowFunc().Add(EffectiveTTL(ttl))
	entries[TokenKey] = entry{Value: token, ExpiresAt: expiresAt}
	entries[APIKeyKey] = entry{Value: apiKey, ExpiresAt: expiresAt}
	return s.save(entries)
}

func (s *FileStore) SetAPIKey(_ context.Context, apiKey string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[APIKeyKey] = entry{Value: apiKey, ExpiresAt: pairedExpiry(entries, s.nowFunc(), ttl)}
	return s.save(entries)
}

func (s *FileStore) Token(_ context.Context) (string, error) {
	return s.get(TokenKey)
}

func (s *FileStore) APIKey(_ context.Context) (string, error) {
	return s.get(APIKeyKey)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	delete(entries, TokenKey)
	delete(entries, APIKeyKey)
	return s.save(entries)
}

func (s *FileStore) get(name string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	e, ok := entries[name]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(s.nowFunc()) {
		delete(entries, name)
		if err := s.save(entries); err != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return e.Value, nil
}

func (s *FileStore) load() (map[string]entry, error) {
	entries := make(map[string]entry)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[FileStore] read %s", s.path)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errs.Wrapf(err, "[FileStore] decode %s", s.path)
	}
	return entries, nil
}

// save writes to a temp file in the same directory and renames it into place
func (s *FileStore) save(entries map[string]entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("[FileStore] create dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore] encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("[FileStore] create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("[FileStore] rename: %w", err)
	}
	return nil
}
