package credentials

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps credentials for the lifetime of the process.
type MemoryStore struct {
	entries map[string]entry
	nowFunc func() time.Time
	lock    sync.RWMutex
}

// Option configures a store
type Option func(*options)

type options struct {
	nowFunc func() time.Time
}

// WithNowFunc sets the clock used for expiry (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func buildOptions(opts []Option) options {
	o := options{nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		entries: make(map[string]entry),
		nowFunc: o.nowFunc,
	}
}

func (s *MemoryStore) Set(_ context.Context, token, apiKey string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	expiresAt := s.nowFunc().Add(EffectiveTTL(ttl))
	s.entries[TokenKey] = entry{Value: token, ExpiresAt: expiresAt}
	s.entries[APIKeyKey] = entry{Value: apiKey, ExpiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) SetAPIKey(_ context.Context, apiKey string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[APIKeyKey] = entry{Value: apiKey, ExpiresAt: pairedExpiry(s.entries, s.nowFunc(), ttl)}
	return nil
}

func (s *MemoryStore) Token(_ context.Context) (string, error) {
	return s.get(TokenKey)
}

func (s *MemoryStore) APIKey(_ context.Context) (string, error) {
	return s.get(APIKeyKey)
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, TokenKey)
	delete(s.entries, APIKeyKey)
	return nil
}

func (s *MemoryStore) get(name string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(s.nowFunc()) {
		delete(s.entries, name)
		return "", ErrNotFound
	}
	return e.Value, nil
}
