package session_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/merchant-console/apiclient"
	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/jrsteele09/merchant-console/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// stubAuth answers with canned values and counts calls
type stubAuth struct {
	login   *merchantapi.TokenResponse
	loginFn func() error
	me      *merchantapi.Merchant
	meFn    func() error
	refresh *merchantapi.Merchant

	loginCalls      atomic.Int32
	meCalls         atomic.Int32
	refreshCalls    atomic.Int32
	deactivateCalls atomic.Int32
}

func (s *stubAuth) Register(_ context.Context, req merchantapi.RegisterRequest) (*merchantapi.Merchant, error) {
	return &merchantapi.Merchant{ID: "m-new", Email: req.Email, APIKey: "sk_new"}, nil
}

func (s *stubAuth) Login(context.Context, string, string) (*merchantapi.TokenResponse, error) {
	s.loginCalls.Add(1)
	if s.loginFn != nil {
		if err := s.loginFn(); err != nil {
			return nil, err
		}
	}
	return s.login, nil
}

func (s *stubAuth) Me(context.Context) (*merchantapi.Merchant, error) {
	s.meCalls.Add(1)
	if s.meFn != nil {
		if err := s.meFn(); err != nil {
			return nil, err
		}
	}
	return s.me, nil
}

func (s *stubAuth) RefreshAPIKey(context.Context) (*merchantapi.Merchant, error) {
	s.refreshCalls.Add(1)
	return s.refresh, nil
}

func (s *stubAuth) Deactivate(context.Context) (*merchantapi.MessageResponse, error) {
	s.deactivateCalls.Add(1)
	return &merchantapi.MessageResponse{Message: "Merchant account deactivated successfully"}, nil
}

type testFixture struct {
	auth    *stubAuth
	store   *credentials.MemoryStore
	manager *session.Manager

	mu     sync.Mutex
	states []session.State
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		auth: &stubAuth{
			login:   &merchantapi.TokenResponse{AccessToken: "jwt1", TokenType: "bearer"},
			me:      &merchantapi.Merchant{ID: "m1", Email: "shop@example.com", APIKey: "sk_1"},
			refresh: &merchantapi.Merchant{ID: "m1", Email: "shop@example.com", APIKey: "sk_2"},
		},
		store: credentials.NewMemoryStore(),
	}
	manager, err := session.New(f.auth, f.store,
		session.WithLogger(zerolog.Nop()),
		session.WithStateListener(func(state session.State, _ *merchantapi.Merchant) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.states = append(f.states, state)
		}),
	)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func (f *testFixture) observed() []session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.State(nil), f.states...)
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")
	require.NoError(t, err)
	require.Equal(t, session.Authenticated, f.manager.State())
}

func requireStoreEmpty(t *testing.T, store credentials.Store) {
	t.Helper()
	_, err := store.Token(context.Background())
	require.ErrorIs(t, err, credentials.ErrNotFound)
	_, err = store.APIKey(context.Background())
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := session.New(nil, credentials.NewMemoryStore())
	require.Error(t, err)
	_, err = session.New(&stubAuth{}, nil)
	require.Error(t, err)
}

func TestStartWithoutTokenIsAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, session.Unknown, f.manager.State())

	require.NoError(t, f.manager.Start(context.Background()))

	require.Equal(t, session.Anonymous, f.manager.State())
	require.Nil(t, f.manager.Identity())
	require.Zero(t, f.auth.meCalls.Load())
	require.Equal(t, []session.State{session.Checking, session.Anonymous}, f.observed())
}

func TestStartWithStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "jwt1", "sk_1", 0))

	require.NoError(t, f.manager.Start(context.Background()))

	require.Equal(t, session.Authenticated, f.manager.State())
	require.Equal(t, "m1", f.manager.Identity().ID)
	require.Equal(t, int32(1), f.auth.meCalls.Load())
}

func TestStartWithRejectedToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "stale", "sk_1", 0))
	f.auth.meFn = func() error {
		return &apiclient.Error{Kind: apiclient.KindUnauthenticated, StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}

	err := f.manager.Start(context.Background())

	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, session.OpCheck, failure.Op)
	require.Equal(t, "Could not validate credentials", failure.Message)
	require.ErrorIs(t, err, apiclient.ErrUnauthenticated)
	require.Equal(t, session.Anonymous, f.manager.State())
	requireStoreEmpty(t, f.store)
}

func TestLoginStoresCredentialsAndIdentity(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	merchant, err := f.manager.Login(ctx, "shop@example.com", "sk_1")
	require.NoError(t, err)
	require.Equal(t, "m1", merchant.ID)

	token, err := f.store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "jwt1", token)
	apiKey, err := f.store.APIKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk_1", apiKey)

	require.Equal(t, session.Authenticated, f.manager.State())
	require.Equal(t, "m1", f.manager.Identity().ID)
}

func TestIdentityIsACopy(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.manager.Identity().CompanyName = "changed"
	require.Empty(t, f.manager.Identity().CompanyName)
}

func TestLoginRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.loginFn = func() error {
		return &apiclient.Error{Kind: apiclient.KindUnauthenticated, StatusCode: http.StatusUnauthorized, Detail: "Invalid email or API key"}
	}

	_, err := f.manager.Login(context.Background(), "shop@example.com", "wrong")

	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, session.OpLogin, failure.Op)
	require.Equal(t, "Invalid email or API key", failure.Message)
	require.Equal(t, "login: Invalid email or API key", err.Error())
	require.Equal(t, session.Unknown, f.manager.State())
	require.Zero(t, f.auth.meCalls.Load())
}

func TestLoginFallbackMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.loginFn = func() error { return errors.New("connection refused") }

	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")

	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "Login failed", failure.Message)
}

func TestLoginIdentityFailureClearsStore(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.meFn = func() error {
		return &apiclient.Error{Kind: apiclient.KindUnexpected, StatusCode: http.StatusInternalServerError}
	}

	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")

	require.Error(t, err)
	require.Equal(t, session.Anonymous, f.manager.State())
	require.Nil(t, f.manager.Identity())
	requireStoreEmpty(t, f.store)
}

func TestLoginEmptyToken(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.login = &merchantapi.TokenResponse{TokenType: "bearer"}

	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")

	require.Error(t, err)
	require.Zero(t, f.auth.meCalls.Load())
	requireStoreEmpty(t, f.store)
}

func TestInvalidateDuringLoginSupersedes(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.meFn = func() error {
		f.manager.Invalidate(context.Background())
		return nil
	}

	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")

	require.ErrorIs(t, err, session.ErrSuperseded)
	require.Equal(t, session.Anonymous, f.manager.State())
	requireStoreEmpty(t, f.store)
}

func TestLogoutDuringLoginRequestSupersedes(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.loginFn = func() error {
		f.manager.Logout(context.Background())
		return nil
	}

	_, err := f.manager.Login(context.Background(), "shop@example.com", "sk_1")

	require.ErrorIs(t, err, session.ErrSuperseded)
	require.Equal(t, session.Anonymous, f.manager.State())
	require.Zero(t, f.auth.meCalls.Load())
	requireStoreEmpty(t, f.store)
}

func TestLogoutFromAnyState(t *testing.T) {
	for _, name := range []string{"unknown", "anonymous", "authenticated"} {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			switch name {
			case "anonymous":
				require.NoError(t, f.manager.Start(context.Background()))
			case "authenticated":
				f.login(t)
			}

			f.manager.Logout(context.Background())

			require.Equal(t, session.Anonymous, f.manager.State())
			require.Nil(t, f.manager.Identity())
			requireStoreEmpty(t, f.store)
		})
	}
}

func TestLogoutMakesNoCalls(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	before := f.auth.meCalls.Load()

	f.manager.Logout(context.Background())

	require.Equal(t, before, f.auth.meCalls.Load())
	require.Equal(t, int32(1), f.auth.loginCalls.Load())
}

func TestRefreshAPIKeyRequiresSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Start(context.Background()))

	_, err := f.manager.RefreshAPIKey(context.Background())

	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Zero(t, f.auth.refreshCalls.Load())
}

func TestRefreshAPIKey(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.login(t)

	merchant, err := f.manager.RefreshAPIKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk_2", merchant.APIKey)
	require.Equal(t, int32(1), f.auth.refreshCalls.Load())

	apiKey, err := f.store.APIKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk_2", apiKey)
	token, err := f.store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "jwt1", token)
	require.Equal(t, "sk_2", f.manager.Identity().APIKey)
}

// rotationFailingStore cannot persist a rotated API key
type rotationFailingStore struct {
	*credentials.MemoryStore
}

func (rotationFailingStore) SetAPIKey(context.Context, string, time.Duration) error {
	return errors.New("disk full")
}

func TestRefreshAPIKeySucceedsWhenKeyCannotBeStored(t *testing.T) {
	auth := &stubAuth{
		login:   &merchantapi.TokenResponse{AccessToken: "jwt1", TokenType: "bearer"},
		me:      &merchantapi.Merchant{ID: "m1", Email: "shop@example.com", APIKey: "sk_1"},
		refresh: &merchantapi.Merchant{ID: "m1", Email: "shop@example.com", APIKey: "sk_2"},
	}
	store := rotationFailingStore{MemoryStore: credentials.NewMemoryStore()}
	manager, err := session.New(auth, store, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	ctx := context.Background()
	_, err = manager.Login(ctx, "shop@example.com", "sk_1")
	require.NoError(t, err)

	merchant, err := manager.RefreshAPIKey(ctx)

	require.NoError(t, err)
	require.Equal(t, "sk_2", merchant.APIKey)
	require.Equal(t, session.Authenticated, manager.State())
	require.Equal(t, "sk_2", manager.Identity().APIKey)
	apiKey, err := store.APIKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk_1", apiKey)
}

func TestDeactivateLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.manager.Deactivate(context.Background()))

	require.Equal(t, int32(1), f.auth.deactivateCalls.Load())
	require.Equal(t, session.Anonymous, f.manager.State())
	requireStoreEmpty(t, f.store)
}

func TestDeactivateRequiresSession(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Deactivate(context.Background())

	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Zero(t, f.auth.deactivateCalls.Load())
}

func TestRegisterLeavesStateAlone(t *testing.T) {
	f := setupTestFixture(t)

	merchant, err := f.manager.Register(context.Background(), merchantapi.RegisterRequest{Email: "new@example.com", CompanyName: "New"})
	require.NoError(t, err)
	require.Equal(t, "sk_new", merchant.APIKey)
	require.Equal(t, session.Unknown, f.manager.State())
	requireStoreEmpty(t, f.store)
}

func TestConcurrentChecksShareOneFetch(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "jwt1", "sk_1", 0))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.auth.meFn = func() error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.manager.Check(context.Background())
		}()
	}
	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.auth.meCalls.Load())
	require.Equal(t, session.Authenticated, f.manager.State())
}

func TestCloseReturnsToUnknown(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.manager.Close()

	require.Equal(t, session.Unknown, f.manager.State())
	require.Nil(t, f.manager.Identity())
	token, err := f.store.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "jwt1", token)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "unknown", session.Unknown.String())
	require.Equal(t, "checking", session.Checking.String())
	require.Equal(t, "authenticated", session.Authenticated.String())
	require.Equal(t, "anonymous", session.Anonymous.String())
}
