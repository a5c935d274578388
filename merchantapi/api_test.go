package merchantapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	path   string
	query  url.Values
	body   any
}

// recorder is a Requester that records each call and decodes a canned response into out
type recorder struct {
	calls    []recordedCall
	response string
	err      error
}

func (r *recorder) Do(_ context.Context, method, path string, query url.Values, body, out any) error {
	r.calls = append(r.calls, recordedCall{method: method, path: path, query: query, body: body})
	if r.err != nil {
		return r.err
	}
	if out == nil || r.response == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.response), out)
}

func (r *recorder) last(t *testing.T) recordedCall {
	t.Helper()
	require.NotEmpty(t, r.calls)
	return r.calls[len(r.calls)-1]
}

func setup(response string) (*recorder, *merchantapi.API) {
	r := &recorder{response: response}
	return r, merchantapi.New(r)
}

func bodyJSON(t *testing.T, body any) string {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return string(b)
}

func TestResourcePaths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		call   func(api *merchantapi.API) error
		method string
		path   string
	}{
		{"auth register", func(a *merchantapi.API) error {
			_, err := a.Auth.Register(ctx, merchantapi.RegisterRequest{Email: "m@example.com"})
			return err
		}, http.MethodPost, "/auth/register"},
		{"auth me", func(a *merchantapi.API) error { _, err := a.Auth.Me(ctx); return err }, http.MethodGet, "/auth/me"},
		{"auth refresh", func(a *merchantapi.API) error { _, err := a.Auth.RefreshAPIKey(ctx); return err }, http.MethodPost, "/auth/refresh-api-key"},
		{"auth deactivate", func(a *merchantapi.API) error { _, err := a.Auth.Deactivate(ctx); return err }, http.MethodPost, "/auth/deactivate"},
		{"auth activate", func(a *merchantapi.API) error { _, err := a.Auth.Activate(ctx); return err }, http.MethodPost, "/auth/activate"},
		{"payments create", func(a *merchantapi.API) error {
			_, err := a.Payments.Create(ctx, merchantapi.CreatePaymentRequest{Chain: merchantapi.ChainPolygon})
			return err
		}, http.MethodPost, "/payments/create"},
		{"payments get", func(a *merchantapi.API) error { _, err := a.Payments.Get(ctx, "pay_1"); return err }, http.MethodGet, "/payments/pay_1"},
		{"payments update", func(a *merchantapi.API) error {
			_, err := a.Payments.Update(ctx, "pay_1", merchantapi.UpdatePaymentRequest{Status: merchantapi.PaymentExpired})
			return err
		}, http.MethodPut, "/payments/pay_1"},
		{"payments refund", func(a *merchantapi.API) error { _, err := a.Payments.Refund(ctx, "pay_1"); return err }, http.MethodPost, "/payments/pay_1/refund"},
		{"payments status", func(a *merchantapi.API) error { _, err := a.Payments.Status(ctx, "pay_1"); return err }, http.MethodGet, "/payments/pay_1/status"},
		{"payments transactions", func(a *merchantapi.API) error { _, err := a.Payments.Transactions(ctx, "pay_1"); return err }, http.MethodGet, "/payments/pay_1/transactions"},
		{"wallets create", func(a *merchantapi.API) error {
			_, err := a.Wallets.Create(ctx, merchantapi.CreateWalletRequest{Chain: merchantapi.ChainBSC})
			return err
		}, http.MethodPost, "/wallets/create"},
		{"wallets get", func(a *merchantapi.API) error { _, err := a.Wallets.Get(ctx, "w1"); return err }, http.MethodGet, "/wallets/w1"},
		{"wallets balances", func(a *merchantapi.API) error { _, err := a.Wallets.Balances(ctx, "w1"); return err }, http.MethodGet, "/wallets/w1/balances"},
		{"wallets all balances", func(a *merchantapi.API) error { _, err := a.Wallets.AllBalances(ctx); return err }, http.MethodGet, "/wallets/balances/all"},
		{"wallets activate", func(a *merchantapi.API) error { _, err := a.Wallets.Activate(ctx, "w1"); return err }, http.MethodPost, "/wallets/w1/activate"},
		{"wallets deactivate", func(a *merchantapi.API) error { _, err := a.Wallets.Deactivate(ctx, "w1"); return err }, http.MethodPost, "/wallets/w1/deactivate"},
		{"transactions get", func(a *merchantapi.API) error { _, err := a.Transactions.Get(ctx, "0xabc"); return err }, http.MethodGet, "/transactions/0xabc"},
		{"transactions refresh", func(a *merchantapi.API) error { _, err := a.Transactions.Refresh(ctx, "0xabc"); return err }, http.MethodPost, "/transactions/0xabc/refresh"},
		{"transactions pending", func(a *merchantapi.API) error { _, err := a.Transactions.CheckPending(ctx); return err }, http.MethodGet, "/transactions/pending/check"},
		{"payouts create", func(a *merchantapi.API) error {
			_, err := a.Payouts.Create(ctx, merchantapi.CreatePayoutRequest{Chain: merchantapi.ChainEthereum})
			return err
		}, http.MethodPost, "/payouts/create"},
		{"payouts execute", func(a *merchantapi.API) error { _, err := a.Payouts.Execute(ctx, "payout_1"); return err }, http.MethodPost, "/payouts/payout_1/execute"},
		{"payouts get", func(a *merchantapi.API) error { _, err := a.Payouts.Get(ctx, "payout_1"); return err }, http.MethodGet, "/payouts/payout_1"},
		{"payouts batch", func(a *merchantapi.API) error { _, err := a.Payouts.Batch(ctx, merchantapi.BatchPayoutRequest{}); return err }, http.MethodPost, "/payouts/batch"},
		{"webhooks test", func(a *merchantapi.API) error { _, err := a.Webhooks.Test(ctx); return err }, http.MethodPost, "/webhooks/test"},
		{"webhooks retry", func(a *merchantapi.API) error { _, err := a.Webhooks.Retry(ctx, "log1"); return err }, http.MethodPost, "/webhooks/retry/log1"},
		{"webhooks events", func(a *merchantapi.API) error { _, err := a.Webhooks.SupportedEvents(ctx); return err }, http.MethodGet, "/webhooks/events/supported"},
		{"merchants profile", func(a *merchantapi.API) error { _, err := a.Merchants.Profile(ctx); return err }, http.MethodGet, "/merchants/profile"},
		{"merchants update", func(a *merchantapi.API) error {
			_, err := a.Merchants.UpdateProfile(ctx, merchantapi.UpdateProfileRequest{})
			return err
		}, http.MethodPut, "/merchants/profile"},
		{"merchants stats", func(a *merchantapi.API) error { _, err := a.Merchants.Stats(ctx); return err }, http.MethodGet, "/merchants/stats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, api := setup("")
			require.NoError(t, tt.call(api))
			require.Len(t, r.calls, 1)
			require.Equal(t, tt.method, r.calls[0].method)
			require.Equal(t, tt.path, r.calls[0].path)
		})
	}
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	r, api := setup(`{}`)

	_, err := api.Payments.Get(context.Background(), "a/b c")
	require.NoError(t, err)

	require.Equal(t, "/payments/a%2Fb%20c", r.last(t).path)
}

func TestListWithEmptyParamsSendsNoQuery(t *testing.T) {
	r, api := setup(`[]`)
	ctx := context.Background()

	_, err := api.Payments.List(ctx, merchantapi.PaymentListParams{})
	require.NoError(t, err)
	require.Nil(t, r.last(t).query)
	require.Equal(t, "/payments/", r.last(t).path)

	_, err = api.Transactions.List(ctx, merchantapi.TransactionListParams{})
	require.NoError(t, err)
	require.Nil(t, r.last(t).query)

	_, err = api.Wallets.List(ctx, merchantapi.WalletListParams{})
	require.NoError(t, err)
	require.Nil(t, r.last(t).query)
}

func TestListPassesFiltersThrough(t *testing.T) {
	r, api := setup(`[]`)

	_, err := api.Payments.List(context.Background(), merchantapi.PaymentListParams{
		Status: merchantapi.PaymentCompleted,
		Chain:  merchantapi.ChainTron,
		Limit:  25,
		Extra:  url.Values{"created_after": {"2024-01-01"}, "status_in": {"a", "b"}},
	})
	require.NoError(t, err)

	require.Equal(t, url.Values{
		"status":        {"completed"},
		"chain":         {"tron"},
		"limit":         {"25"},
		"created_after": {"2024-01-01"},
		"status_in":     {"a", "b"},
	}, r.last(t).query)
}

func TestExtraValuesAreNotAliased(t *testing.T) {
	extra := url.Values{"cursor": {"c1"}}
	params := merchantapi.PayoutListParams{Extra: extra, Offset: 10}

	q := params.Values()
	q.Add("cursor", "c2")

	require.Equal(t, []string{"c1"}, extra["cursor"])
}

func TestWalletListActiveOnly(t *testing.T) {
	require.Equal(t, url.Values{"active_only": {"false"}}, merchantapi.WalletListParams{ActiveOnly: new(bool)}.Values())

	yes := true
	require.Equal(t, url.Values{"chain": {"solana"}, "active_only": {"true"}},
		merchantapi.WalletListParams{Chain: merchantapi.ChainSolana, ActiveOnly: &yes}.Values())
}

func TestStatsAndLogParams(t *testing.T) {
	r, api := setup(`{"period_days":7,"total_transactions":3,"status_breakdown":{"confirmed":3}}`)
	ctx := context.Background()

	stats, err := api.Transactions.Stats(ctx, merchantapi.StatsParams{Days: 7})
	require.NoError(t, err)
	require.Equal(t, "/transactions/stats/summary", r.last(t).path)
	require.Equal(t, url.Values{"days": {"7"}}, r.last(t).query)
	require.Equal(t, 7, stats.PeriodDays)
	require.Equal(t, 3, stats.TotalTransactions)
	require.Equal(t, 3, stats.StatusBreakdown["confirmed"])

	r.response = `{"period_days":30,"total_payouts":0}`
	_, err = api.Payouts.Stats(ctx, merchantapi.StatsParams{})
	require.NoError(t, err)
	require.Equal(t, "/payouts/stats/summary", r.last(t).path)
	require.Nil(t, r.last(t).query)

	r.response = `[]`
	_, err = api.Webhooks.Logs(ctx, merchantapi.WebhookLogParams{EventType: "payment.completed", Offset: 5})
	require.NoError(t, err)
	require.Equal(t, url.Values{"event_type": {"payment.completed"}, "offset": {"5"}}, r.last(t).query)
}

func TestWalletBalanceSendsToken(t *testing.T) {
	r, api := setup(`{"chain":"polygon","token":"USDC","balance":"12.50","address":"0x1"}`)

	b, err := api.Wallets.Balance(context.Background(), "w1", merchantapi.USDC)
	require.NoError(t, err)

	require.Equal(t, "/wallets/w1/balance", r.last(t).path)
	require.Equal(t, url.Values{"token": {"USDC"}}, r.last(t).query)
	require.True(t, decimal.RequireFromString("12.5").Equal(b.Balance))
}

func TestLoginBody(t *testing.T) {
	r, api := setup(`{"access_token":"jwt1","token_type":"bearer"}`)

	tok, err := api.Auth.Login(context.Background(), "merchant@example.com", "sk_test_abc")
	require.NoError(t, err)

	require.Equal(t, "jwt1", tok.AccessToken)
	require.Equal(t, "/auth/login", r.last(t).path)
	require.JSONEq(t, `{"email":"merchant@example.com","api_key":"sk_test_abc"}`, bodyJSON(t, r.last(t).body))
}

func TestVerifySendsTxHash(t *testing.T) {
	r, api := setup(`{"message":"Payment verified successfully","status":"completed"}`)

	res, err := api.Payments.Verify(context.Background(), "pay_1", "0xdead")
	require.NoError(t, err)

	require.Equal(t, "/payments/pay_1/verify", r.last(t).path)
	require.JSONEq(t, `{"tx_hash":"0xdead"}`, bodyJSON(t, r.last(t).body))
	require.Equal(t, "completed", res.Status)
}

func TestBatchPayoutMixedResults(t *testing.T) {
	r, api := setup(`{"message":"Processed 2 payouts","payouts":[
		{"payout_id":"payout_1","amount":"5","status":"pending"},
		{"error":"Insufficient balance","payout_data":{"chain":"ethereum","token":"USDC","amount":"900","recipient_address":"0x2"}}
	]}`)

	res, err := api.Payouts.Batch(context.Background(), merchantapi.BatchPayoutRequest{
		Payouts: []merchantapi.CreatePayoutRequest{
			{Chain: merchantapi.ChainEthereum, Token: merchantapi.USDC, Amount: decimal.NewFromInt(5), RecipientAddress: "0x1"},
		},
	})
	require.NoError(t, err)

	require.JSONEq(t, `{"payouts":[{"chain":"ethereum","token":"USDC","amount":"5","recipient_address":"0x1"}]}`, bodyJSON(t, r.last(t).body))
	require.Len(t, res.Payouts, 2)
	require.Equal(t, "payout_1", res.Payouts[0].PayoutID)
	require.Empty(t, res.Payouts[0].Error)
	require.Equal(t, "Insufficient balance", res.Payouts[1].Error)
	require.NotNil(t, res.Payouts[1].PayoutData)
	require.Equal(t, "0x2", res.Payouts[1].PayoutData.RecipientAddress)
}

func TestSupportedEventsUnwrapsList(t *testing.T) {
	_, api := setup(`{"events":[{"name":"payment.created","description":"A payment request was created"}]}`)

	events, err := api.Webhooks.SupportedEvents(context.Background())
	require.NoError(t, err)
	require.Equal(t, []merchantapi.WebhookEvent{{Name: "payment.created", Description: "A payment request was created"}}, events)
}

func TestUpdateProfileOmitsUnsetFields(t *testing.T) {
	r, api := setup(`{}`)
	hook := "https://example.com/hook"

	_, err := api.Merchants.UpdateProfile(context.Background(), merchantapi.UpdateProfileRequest{WebhookURL: &hook})
	require.NoError(t, err)

	require.JSONEq(t, `{"webhook_url":"https://example.com/hook"}`, bodyJSON(t, r.last(t).body))
}

func TestErrorsArePropagated(t *testing.T) {
	r, api := setup("")
	r.err = context.DeadlineExceeded

	m, err := api.Auth.Me(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, m)
	require.Len(t, r.calls, 1)
}

func TestTimestampFormats(t *testing.T) {
	var p merchantapi.Payment
	require.NoError(t, json.Unmarshal([]byte(`{"created_at":"2024-05-01T10:20:30.123456","expires_at":null,"amount":100.25}`), &p))

	require.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC), p.CreatedAt.Time)
	require.Nil(t, p.ExpiresAt)
	require.True(t, decimal.RequireFromString("100.25").Equal(p.Amount))

	var ts merchantapi.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:20:30+02:00"`), &ts))
	require.Equal(t, time.Date(2024, 5, 1, 8, 20, 30, 0, time.UTC), ts.Time)

	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestSupportedTokens(t *testing.T) {
	require.Contains(t, merchantapi.SupportedTokens(merchantapi.ChainBSC), merchantapi.BUSD)
	require.NotContains(t, merchantapi.SupportedTokens(merchantapi.ChainTron), merchantapi.DAI)
	require.Nil(t, merchantapi.SupportedTokens("bitcoin"))
}
