package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/merchant-console/internal/config"
	"github.com/jrsteele09/merchant-console/internal/fakebackend"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/jrsteele09/merchant-console/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	backend *fakebackend.Server
	apiURL  string
}

func setupCLI(t *testing.T) *cliFixture {
	t.Helper()

	backend := fakebackend.New(fakebackend.WithLogger(zerolog.Nop()))
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	t.Setenv("CREDENTIAL_BACKEND", "file")
	t.Setenv("CREDENTIAL_FILE", filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv("LOG_LEVEL", "error")
	return &cliFixture{backend: backend, apiURL: server.URL + fakebackend.APIPrefix}
}

// run executes one command line and returns stdout, stderr and the error
func (f *cliFixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), append([]string{"--api-url", f.apiURL}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (f *cliFixture) mustRun(t *testing.T, out any, args ...string) {
	t.Helper()
	stdout, stderr, err := f.run(t, args...)
	require.NoError(t, err, stderr)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(stdout), out), stdout)
	}
}

func (f *cliFixture) registerAndLogin(t *testing.T) merchantapi.Merchant {
	t.Helper()
	var registered merchantapi.Merchant
	f.mustRun(t, &registered, "register", "--email", "shop@example.com", "--company", "Acme")
	require.NotEmpty(t, registered.APIKey)
	f.mustRun(t, nil, "login", "--email", "shop@example.com", "--api-key", registered.APIKey)
	return registered
}

func TestSessionPersistsBetweenInvocations(t *testing.T) {
	f := setupCLI(t)
	registered := f.registerAndLogin(t)

	var me merchantapi.Merchant
	f.mustRun(t, &me, "whoami")
	require.Equal(t, registered.ID, me.ID)

	var state map[string]string
	f.mustRun(t, &state, "logout")
	require.Equal(t, "anonymous", state["state"])

	_, _, err := f.run(t, "whoami")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestPaymentCommands(t *testing.T) {
	f := setupCLI(t)
	f.registerAndLogin(t)

	var wallet merchantapi.Wallet
	f.mustRun(t, &wallet, "wallets", "create", "--chain", "polygon")

	var payment merchantapi.Payment
	f.mustRun(t, &payment, "payments", "create",
		"--chain", "polygon", "--token", "USDC", "--amount", "12.5", "--recipient", wallet.Address)
	require.Equal(t, merchantapi.PaymentPending, payment.Status)

	var result merchantapi.StatusResult
	f.mustRun(t, &result, "payments", "verify", payment.PaymentID, "0xfeed")
	require.Equal(t, "confirmed", result.Status)

	var payments []merchantapi.Payment
	f.mustRun(t, &payments, "payments", "list", "--status", "completed")
	require.Len(t, payments, 1)

	var balances []merchantapi.Balance
	f.mustRun(t, &balances, "wallets", "balances", wallet.ID)
	require.NotEmpty(t, balances)
	require.Equal(t, "12.5", balances[0].Balance.String())

	var txs []merchantapi.Transaction
	f.mustRun(t, &txs, "transactions", "list", "--tx-hash", "0xfeed")
	require.Len(t, txs, 1)
}

func TestInvalidAmountIsRejectedLocally(t *testing.T) {
	f := setupCLI(t)
	f.registerAndLogin(t)

	_, _, err := f.run(t, "payouts", "create", "--chain", "polygon", "--token", "USDC", "--amount", "lots", "--recipient", "0x1")
	require.ErrorContains(t, err, `invalid --amount "lots"`)
}

func TestSessionExpiredNotice(t *testing.T) {
	f := setupCLI(t)
	registered := f.registerAndLogin(t)
	ctx := context.Background()

	var stderr bytes.Buffer
	a := &app{cfg: config.New(), stdout: io.Discard, stderr: &stderr, apiURL: f.apiURL}
	require.NoError(t, a.init(ctx))
	require.Equal(t, session.Authenticated, a.session.State())

	f.backend.RevokeTokens(registered.ID)
	_, err := a.api.Payments.List(ctx, merchantapi.PaymentListParams{})

	require.Error(t, err)
	require.Contains(t, stderr.String(), sessionExpiredNotice)
	require.Equal(t, session.Anonymous, a.session.State())
}

func TestStaleTokenAtStartIsQuiet(t *testing.T) {
	f := setupCLI(t)
	registered := f.registerAndLogin(t)
	f.backend.RevokeTokens(registered.ID)

	stdout, stderr, err := f.run(t, "whoami")

	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Empty(t, stdout)
	require.NotContains(t, stderr, sessionExpiredNotice)
}

func TestBackendDetailIsReported(t *testing.T) {
	f := setupCLI(t)

	_, _, err := f.run(t, "login", "--email", "nobody@example.com", "--api-key", "nope")
	require.ErrorContains(t, err, "Invalid email or API key")
}

func TestUnknownCredentialBackend(t *testing.T) {
	f := setupCLI(t)
	t.Setenv("CREDENTIAL_BACKEND", "floppy")

	_, _, err := f.run(t, "whoami")
	require.ErrorContains(t, err, `unknown credential backend "floppy"`)
}

func TestRedisCredentialBackend(t *testing.T) {
	f := setupCLI(t)
	mr := miniredis.RunT(t)
	t.Setenv("CREDENTIAL_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", mr.Addr())

	registered := f.registerAndLogin(t)
	require.True(t, mr.Exists("merchant-console:auth_token"))

	var me merchantapi.Merchant
	f.mustRun(t, &me, "whoami")
	require.Equal(t, registered.ID, me.ID)
}

func TestInvalidLogLevel(t *testing.T) {
	f := setupCLI(t)

	_, _, err := f.run(t, "--log-level", "loud", "whoami")
	require.ErrorContains(t, err, "invalid log level")
}
