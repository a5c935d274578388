package merchantapi

import (
	"context"
	"net/http"
)

// AuthClient covers registration, login and the identity endpoints
type AuthClient struct {
	r Requester
}

// Register creates a merchant. The returned record carries the API key the
// merchant logs in with; registration does not log in.
func (c *AuthClient) Register(ctx context.Context, req RegisterRequest) (*Merchant, error) {
	var m Merchant
	if err := c.r.Do(ctx, http.MethodPost, "/auth/register", nil, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *AuthClient) Login(ctx context.Context, email, apiKey string) (*TokenResponse, error) {
	var t TokenResponse
	if err := c.r.Do(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Email: email, APIKey: apiKey}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Me fetches the identity of the bearer token's merchant
func (c *AuthClient) Me(ctx context.Context) (*Merchant, error) {
	var m Merchant
	if err := c.r.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RefreshAPIKey rotates the API key and returns the updated identity
func (c *AuthClient) RefreshAPIKey(ctx context.Context) (*Merchant, error) {
	var m Merchant
	if err := c.r.Do(ctx, http.MethodPost, "/auth/refresh-api-key", nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *AuthClient) Deactivate(ctx context.Context) (*MessageResponse, error) {
	return c.action(ctx, "/auth/deactivate")
}

func (c *AuthClient) Activate(ctx context.Context) (*MessageResponse, error) {
	return c.action(ctx, "/auth/activate")
}

func (c *AuthClient) action(ctx context.Context, path string) (*MessageResponse, error) {
	var m MessageResponse
	if err := c.r.Do(ctx, http.MethodPost, path, nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
