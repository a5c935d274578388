package session_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/merchant-console/apiclient"
	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/jrsteele09/merchant-console/internal/fakebackend"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/jrsteele09/merchant-console/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sandboxFixture struct {
	backend *fakebackend.Server
	store   *credentials.MemoryStore
	api     *merchantapi.API
	manager *session.Manager
}

func setupSandbox(t *testing.T) *sandboxFixture {
	t.Helper()

	backend := fakebackend.New(fakebackend.WithLogger(zerolog.Nop()))
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	store := credentials.NewMemoryStore()
	client, err := apiclient.New(server.URL+fakebackend.APIPrefix, store, apiclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	api := merchantapi.New(client)

	manager, err := session.New(api.Auth, store, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	client.OnSessionInvalidated(manager.Invalidate)

	return &sandboxFixture{backend: backend, store: store, api: api, manager: manager}
}

func TestSandboxSessionLifecycle(t *testing.T) {
	f := setupSandbox(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Start(ctx))
	require.Equal(t, session.Anonymous, f.manager.State())

	registered, err := f.manager.Register(ctx, merchantapi.RegisterRequest{Email: "shop@example.com", CompanyName: "Acme"})
	require.NoError(t, err)

	merchant, err := f.manager.Login(ctx, "shop@example.com", registered.APIKey)
	require.NoError(t, err)
	require.Equal(t, registered.ID, merchant.ID)

	rotated, err := f.manager.RefreshAPIKey(ctx)
	require.NoError(t, err)
	require.NotEqual(t, registered.APIKey, rotated.APIKey)

	// a restart picks the session up from the store
	f.manager.Close()
	require.NoError(t, f.manager.Start(ctx))
	require.Equal(t, session.Authenticated, f.manager.State())
	require.Equal(t, rotated.APIKey, f.manager.Identity().APIKey)

	f.manager.Logout(ctx)
	_, err = f.manager.Login(ctx, "shop@example.com", registered.APIKey)
	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "Invalid email or API key", failure.Message)
}

func TestSandboxRejectedTokenEndsSession(t *testing.T) {
	f := setupSandbox(t)
	ctx := context.Background()

	registered, err := f.manager.Register(ctx, merchantapi.RegisterRequest{Email: "shop@example.com", CompanyName: "Acme"})
	require.NoError(t, err)
	_, err = f.manager.Login(ctx, "shop@example.com", registered.APIKey)
	require.NoError(t, err)

	f.backend.RevokeTokens(registered.ID)

	_, err = f.api.Payments.List(ctx, merchantapi.PaymentListParams{})
	require.ErrorIs(t, err, apiclient.ErrUnauthenticated)
	require.Equal(t, session.Anonymous, f.manager.State())
	require.Nil(t, f.manager.Identity())
	requireStoreEmpty(t, f.store)
}

func TestSandboxDeactivate(t *testing.T) {
	f := setupSandbox(t)
	ctx := context.Background()

	registered, err := f.manager.Register(ctx, merchantapi.RegisterRequest{Email: "shop@example.com", CompanyName: "Acme"})
	require.NoError(t, err)
	_, err = f.manager.Login(ctx, "shop@example.com", registered.APIKey)
	require.NoError(t, err)

	require.NoError(t, f.manager.Deactivate(ctx))
	require.Equal(t, session.Anonymous, f.manager.State())

	_, err = f.manager.Login(ctx, "shop@example.com", registered.APIKey)
	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "Merchant account is inactive", failure.Message)
}
