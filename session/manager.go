// Package session holds the authenticated identity of one console process
// and the transitions that derive it: start, login, logout, key rotation.
// A Manager is created once and passed to whatever needs the identity.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/merchant-console/apiclient"
	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// AuthAPI is the part of the backend the session needs. *merchantapi.AuthClient satisfies it.
type AuthAPI interface {
	Register(ctx context.Context, req merchantapi.RegisterRequest) (*merchantapi.Merchant, error)
	Login(ctx context.Context, email, apiKey string) (*merchantapi.TokenResponse, error)
	Me(ctx context.Context) (*merchantapi.Merchant, error)
	RefreshAPIKey(ctx context.Context) (*merchantapi.Merchant, error)
	Deactivate(ctx context.Context) (*merchantapi.MessageResponse, error)
}

// StateListener is called after every state or identity change, outside any lock
type StateListener func(state State, identity *merchantapi.Merchant)

// Manager owns the session state.
//
// Login, Register, RefreshAPIKey, Deactivate and identity checks are
// serialized. Logout, Invalidate and Close never wait for them: they bump
// the generation so an in-flight operation discards its result instead of
// resurrecting a session that was ended underneath it.
type Manager struct {
	auth      AuthAPI
	store     credentials.Store
	ttl       time.Duration
	logger    zerolog.Logger
	listeners []StateListener

	opMu  sync.Mutex
	group singleflight.Group

	mu         sync.RWMutex
	state      State
	identity   *merchantapi.Merchant
	generation uint64
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithTTL sets the retention of credentials written at login
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithStateListener(l StateListener) ManagerOption {
	return func(m *Manager) {
		m.listeners = append(m.listeners, l)
	}
}

func New(auth AuthAPI, store credentials.Store, options ...ManagerOption) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("[session New] auth api is required")
	}
	if store == nil {
		return nil, errors.New("[session New] credential store is required")
	}

	m := &Manager{
		auth:   auth,
		store:  store,
		ttl:    credentials.DefaultTTL,
		logger: log.Logger,
		state:  Unknown,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity returns a copy of the current identity, nil unless Authenticated
func (m *Manager) Identity() *merchantapi.Merchant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMerchant(m.identity)
}

// Start runs the process start transition: Unknown -> Checking, then
// Authenticated when the stored token yields an identity, Anonymous otherwise.
func (m *Manager) Start(ctx context.Context) error {
	return m.Check(ctx)
}

// Check re-derives the identity from the stored token. Concurrent callers
// share a single identity fetch and its outcome.
func (m *Manager) Check(ctx context.Context) error {
	_, err, _ := m.group.Do(OpCheck, func() (interface{}, error) {
		return nil, m.check(ctx)
	})
	return err
}

func (m *Manager) check(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen := m.transition(Checking, nil)

	_, err := m.store.Token(ctx)
	if errors.Is(err, credentials.ErrNotFound) {
		m.commit(gen, Anonymous, nil)
		return nil
	}
	if err != nil {
		m.clearCredentials(ctx)
		m.commit(gen, Anonymous, nil)
		return m.fail(OpCheck, fallbackCheck, errors.Wrap(err, "[Check] reading stored token"))
	}

	merchant, err := m.auth.Me(ctx)
	if err != nil {
		m.clearCredentials(ctx)
		m.commit(gen, Anonymous, nil)
		return m.fail(OpCheck, fallbackCheck, errors.Wrap(err, "[Check] identity fetch"))
	}

	if !m.commit(gen, Authenticated, merchant) {
		return m.fail(OpCheck, fallbackCheck, ErrSuperseded)
	}
	return nil
}

// Login exchanges email and API key for a token, stores both, and fetches
// the identity. Any failure of that fetch clears the stored credentials.
func (m *Manager) Login(ctx context.Context, email, apiKey string) (*merchantapi.Merchant, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen := m.currentGeneration()
	tok, err := m.auth.Login(ctx, email, apiKey)
	if err != nil {
		return nil, m.fail(OpLogin, fallbackLogin, errors.Wrap(err, "[Login] login request"))
	}
	if tok.AccessToken == "" {
		return nil, m.fail(OpLogin, fallbackLogin, errors.New("[Login] backend returned an empty access token"))
	}
	if m.currentGeneration() != gen {
		return nil, m.fail(OpLogin, fallbackLogin, ErrSuperseded)
	}

	if err := m.store.Set(ctx, tok.AccessToken, apiKey, m.ttl); err != nil {
		return nil, m.fail(OpLogin, fallbackLogin, errors.Wrap(err, "[Login] storing credentials"))
	}

	merchant, err := m.auth.Me(ctx)
	if err != nil {
		m.end(Anonymous)
		m.clearCredentials(ctx)
		return nil, m.fail(OpLogin, fallbackLogin, errors.Wrap(err, "[Login] identity fetch"))
	}

	if !m.commit(gen, Authenticated, merchant) {
		m.clearCredentials(ctx)
		return nil, m.fail(OpLogin, fallbackLogin, ErrSuperseded)
	}

	m.logger.Info().Str("merchant_id", merchant.ID).Msg("logged in")
	return copyMerchant(merchant), nil
}

// Register creates a merchant account. The session is not changed; the
// returned record carries the API key to log in with.
func (m *Manager) Register(ctx context.Context, req merchantapi.RegisterRequest) (*merchantapi.Merchant, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	merchant, err := m.auth.Register(ctx, req)
	if err != nil {
		return nil, m.fail(OpRegister, fallbackRegister, errors.Wrap(err, "[Register] register request"))
	}
	m.logger.Info().Str("merchant_id", merchant.ID).Msg("merchant registered")
	return merchant, nil
}

// Logout moves to Anonymous and clears the stored credentials. It makes
// no network call and never fails; a store error is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.end(Anonymous)
	m.clearCredentials(ctx)
	m.logger.Info().Msg("logged out")
}

// Invalidate drops the identity after the backend rejected the token.
// It is meant to be registered with apiclient.Client.OnSessionInvalidated;
// the client has already cleared the store when it runs.
func (m *Manager) Invalidate(_ context.Context) {
	if m.end(Anonymous) {
		m.logger.Warn().Msg("session invalidated")
	}
}

// Close tears the session down: the in-memory identity is dropped and the
// state returns to Unknown. Stored credentials are left in place.
func (m *Manager) Close() {
	m.end(Unknown)
}

// RefreshAPIKey rotates the merchant API key. It needs an Authenticated
// session; on success both the identity and the stored key are replaced.
// Once the backend has rotated the key the old one is dead, so a failure to
// persist the new key is logged and the rotation still succeeds.
func (m *Manager) RefreshAPIKey(ctx context.Context) (*merchantapi.Merchant, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen, ok := m.authenticated()
	if !ok {
		return nil, m.fail(OpRefreshAPIKey, fallbackRefreshKey, ErrNotAuthenticated)
	}

	merchant, err := m.auth.RefreshAPIKey(ctx)
	if err != nil {
		return nil, m.fail(OpRefreshAPIKey, fallbackRefreshKey, errors.Wrap(err, "[RefreshAPIKey] refresh request"))
	}
	if !m.commit(gen, Authenticated, merchant) {
		return nil, m.fail(OpRefreshAPIKey, fallbackRefreshKey, ErrSuperseded)
	}
	if err := m.store.SetAPIKey(ctx, merchant.APIKey, m.ttl); err != nil {
		m.logger.Err(err).Str("merchant_id", merchant.ID).Msg("Failed to store rotated API key")
	}

	m.logger.Info().Str("merchant_id", merchant.ID).Msg("api key rotated")
	return copyMerchant(merchant), nil
}

// Deactivate deactivates the merchant account and then logs out
func (m *Manager) Deactivate(ctx context.Context) error {
	if err := m.deactivate(ctx); err != nil {
		return err
	}
	m.Logout(ctx)
	return nil
}

func (m *Manager) deactivate(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if _, ok := m.authenticated(); !ok {
		return m.fail(OpDeactivate, fallbackDeactivate, ErrNotAuthenticated)
	}
	if _, err := m.auth.Deactivate(ctx); err != nil {
		return m.fail(OpDeactivate, fallbackDeactivate, errors.Wrap(err, "[Deactivate] deactivate request"))
	}
	return nil
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Manager) authenticated() (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation, m.state == Authenticated
}

// transition sets the state unconditionally and returns the generation it happened in
func (m *Manager) transition(state State, identity *merchantapi.Merchant) uint64 {
	m.mu.Lock()
	changed := m.set(state, identity)
	gen := m.generation
	m.mu.Unlock()

	if changed {
		m.notify(state, identity)
	}
	return gen
}

// commit applies state only if nothing ended the session since gen
func (m *Manager) commit(gen uint64, state State, identity *merchantapi.Merchant) bool {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return false
	}
	changed := m.set(state, identity)
	m.mu.Unlock()

	if changed {
		m.notify(state, identity)
	}
	return true
}

// end starts a new generation in state with no identity; it reports whether anything changed
func (m *Manager) end(state State) bool {
	m.mu.Lock()
	m.generation++
	changed := m.set(state, nil)
	m.mu.Unlock()

	if changed {
		m.notify(state, nil)
	}
	return changed
}

// set must be called with mu held
func (m *Manager) set(state State, identity *merchantapi.Merchant) bool {
	if m.state == state && m.identity == identity {
		return false
	}
	m.state = state
	m.identity = copyMerchant(identity)
	return true
}

func (m *Manager) notify(state State, identity *merchantapi.Merchant) {
	for _, l := range m.listeners {
		l(state, copyMerchant(identity))
	}
}

func (m *Manager) clearCredentials(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Err(err).Msg("Failed to clear stored credentials")
	}
}

func (m *Manager) fail(op, fallback string, err error) *Failure {
	f := &Failure{Op: op, Message: apiclient.Message(err, fallback), Err: err}
	m.logger.Debug().Err(err).Str("op", op).Msg("session operation failed")
	return f
}

func copyMerchant(m *merchantapi.Merchant) *merchantapi.Merchant {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
