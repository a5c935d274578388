package apiclient

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/merchant-console/credentials"
	"golang.org/x/oauth2"
)

// attachBearer sets "Authorization: Bearer <token>" when a token is stored.
// A missing token is a valid state (register and login are anonymous), and
// a store failure only downgrades the request to unauthenticated.
func (c *Client) attachBearer(req *http.Request) {
	token, err := c.store.Token(req.Context())
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			c.logger.Err(err).Msg("Failed to read stored token, sending request unauthenticated")
		}
		return
	}
	if token == "" {
		return
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
}

// invalidateOnUnauthenticated clears the credential store and notifies the
// session-invalidated handlers when the backend answers 401.
func (c *Client) invalidateOnUnauthenticated(req *http.Request, resp *http.Response) {
	if resp.StatusCode != http.StatusUnauthorized {
		return
	}
	ctx := req.Context()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Err(err).Msg("Failed to clear credentials after authentication failure")
	}
	c.logger.Warn().Str("path", req.URL.Path).Msg("session invalidated by backend")
	c.notifyInvalidated(ctx)
}
