// Package merchantapi defines the typed call surface of the merchant
// backend: one client per resource family, each a mapping from an operation
// to its method, path and parameters. Clients hold no state, never cache and
// never retry; every call is exactly one request.
package merchantapi

import (
	"context"
	"net/url"
	"strings"
)

// Requester sends one request to the backend. *apiclient.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// API groups the resource clients that share one Requester
type API struct {
	Auth         *AuthClient
	Payments     *PaymentsClient
	Wallets      *WalletsClient
	Transactions *TransactionsClient
	Payouts      *PayoutsClient
	Webhooks     *WebhooksClient
	Merchants    *MerchantsClient
}

func New(r Requester) *API {
	return &API{
		Auth:         &AuthClient{r: r},
		Payments:     &PaymentsClient{r: r},
		Wallets:      &WalletsClient{r: r},
		Transactions: &TransactionsClient{r: r},
		Payouts:      &PayoutsClient{r: r},
		Webhooks:     &WebhooksClient{r: r},
		Merchants:    &MerchantsClient{r: r},
	}
}

// resourcePath joins a resource prefix with escaped path segments:
// resourcePath("/payments", id, "verify") -> "/payments/<id>/verify"
func resourcePath(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
