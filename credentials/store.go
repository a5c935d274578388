// Package credentials persists the bearer token and API key a merchant
// session runs on. Both entries share a lifecycle: they are written together
// at login, cleared together at logout or when the backend rejects the
// token, and expire on their own after the retention ceiling.
package credentials

import (
	"context"
	"time"

	errs "github.com/jrsteele09/merchant-console/internal/errors"
)

const (
	// TokenKey is the entry name of the bearer token
	TokenKey = "auth_token"
	// APIKeyKey is the entry name of the merchant API key
	APIKeyKey = "api_key"

	// DefaultTTL is the retention ceiling applied when a non-positive ttl is given
	DefaultTTL = 7 * 24 * time.Hour
)

// ErrNotFound is returned when an entry is absent or has expired.
var ErrNotFound = errs.ErrCredentialNotFound

// Store defines the credential persistence operations.
// Token contents are never inspected; format and expiry are the backend's concern.
type Store interface {
	// Set writes the token and API key with a shared expiry, superseding any previous pair
	Set(ctx context.Context, token, apiKey string, ttl time.Duration) error

	// SetAPIKey rewrites only the API key entry (used on key rotation). The key
	// takes the stored token's expiry so the pair still lapses together; ttl
	// applies only when no live token is stored.
	SetAPIKey(ctx context.Context, apiKey string, ttl time.Duration) error

	// Token returns the stored bearer token or ErrNotFound
	Token(ctx context.Context) (string, error)

	// APIKey returns the stored API key or ErrNotFound
	APIKey(ctx context.Context) (string, error)

	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// EffectiveTTL maps a non-positive ttl to DefaultTTL.
func EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// entry is one persisted value with its expiry
type entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// pairedExpiry is when an API key written at now should expire: with the
// token when one is live, otherwise after ttl
func pairedExpiry(entries map[string]entry, now time.Time, ttl time.Duration) time.Time {
	if tok, ok := entries[TokenKey]; ok && !tok.expired(now) {
		return tok.ExpiresAt
	}
	return now.Add(EffectiveTTL(ttl))
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
