// Package redisstore keeps merchant credentials in Redis so several console
// processes can share one session. Redis key expiry enforces the retention
// ceiling.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "merchant-console:"

var _ credentials.Store = (*Store)(nil)

type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithKeyPrefix namespaces the two entries, e.g. per merchant profile
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Set(ctx context.Context, token, apiKey string, ttl time.Duration) error {
	ttl = credentials.EffectiveTTL(ttl)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(credentials.TokenKey), token, ttl)
	pipe.Set(ctx, s.key(credentials.APIKeyKey), apiKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("[redisstore Set] %w", err)
	}
	return nil
}

// SetAPIKey writes the key with the token's remaining TTL, watching the
// token so a concurrent Set or Clear aborts the write
func (s *Store) SetAPIKey(ctx context.Context, apiKey string, ttl time.Duration) error {
	tokenKey := s.key(credentials.TokenKey)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		expiry, err := tx.PTTL(ctx, tokenKey).Result()
		if err != nil {
			return err
		}
		// PTTL answers negative for a missing token or one without expiry
		if expiry <= 0 {
			expiry = credentials.EffectiveTTL(ttl)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(credentials.APIKeyKey), apiKey, expiry)
			return nil
		})
		return err
	}, tokenKey)
	if err != nil {
		return fmt.Errorf("[redisstore SetAPIKey] %w", err)
	}
	return nil
}

func (s *Store) Token(ctx context.Context) (string, error) {
	return s.get(ctx, credentials.TokenKey)
}

func (s *Store) APIKey(ctx context.Context) (string, error) {
	return s.get(ctx, credentials.APIKeyKey)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(credentials.TokenKey), s.key(credentials.APIKeyKey)).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, name string) (string, error) {
	v, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", credentials.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[redisstore get %s] %w", name, err)
	}
	return v, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}
