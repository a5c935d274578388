package merchantapi

import (
	"net/url"
	"strconv"
)

// Every list parameter struct enumerates the filters the backend recognises.
// Zero-valued fields are left out of the query. Extra is copied into the
// query verbatim, still unvalidated, for keys the struct does not name.

type PaymentListParams struct {
	Status PaymentStatus
	Chain  Chain
	Token  TokenSymbol
	Limit  int // backend default 50, max 100
	Offset int
	Extra  url.Values
}

func (p PaymentListParams) Values() url.Values {
	return newQuery(p.Extra).
		str("status", string(p.Status)).
		str("chain", string(p.Chain)).
		str("token", string(p.Token)).
		num("limit", p.Limit).
		num("offset", p.Offset).
		values()
}

type WalletListParams struct {
	Chain Chain
	// ActiveOnly is tri-state: nil lets the backend default (true) apply
	ActiveOnly *bool
	Extra      url.Values
}

func (p WalletListParams) Values() url.Values {
	q := newQuery(p.Extra).str("chain", string(p.Chain))
	if p.ActiveOnly != nil {
		q.set("active_only", strconv.FormatBool(*p.ActiveOnly))
	}
	return q.values()
}

type TransactionListParams struct {
	Status TransactionStatus
	Chain  Chain
	Token  TokenSymbol
	TxHash string
	Limit  int
	Offset int
	Extra  url.Values
}

func (p TransactionListParams) Values() url.Values {
	return newQuery(p.Extra).
		str("status", string(p.Status)).
		str("chain", string(p.Chain)).
		str("token", string(p.Token)).
		str("tx_hash", p.TxHash).
		num("limit", p.Limit).
		num("offset", p.Offset).
		values()
}

type PayoutListParams struct {
	Status PayoutStatus
	Chain  Chain
	Token  TokenSymbol
	Limit  int
	Offset int
	Extra  url.Values
}

func (p PayoutListParams) Values() url.Values {
	return newQuery(p.Extra).
		str("status", string(p.Status)).
		str("chain", string(p.Chain)).
		str("token", string(p.Token)).
		num("limit", p.Limit).
		num("offset", p.Offset).
		values()
}

type WebhookLogParams struct {
	EventType string
	Limit     int
	Offset    int
	Extra     url.Values
}

func (p WebhookLogParams) Values() url.Values {
	return newQuery(p.Extra).
		str("event_type", p.EventType).
		num("limit", p.Limit).
		num("offset", p.Offset).
		values()
}

// StatsParams selects the summary window in days (backend default 30, range 1-365)
type StatsParams struct {
	Days  int
	Extra url.Values
}

func (p StatsParams) Values() url.Values {
	return newQuery(p.Extra).num("days", p.Days).values()
}

type query struct {
	v url.Values
}

func newQuery(extra url.Values) *query {
	q := &query{v: url.Values{}}
	for k, vs := range extra {
		q.v[k] = append([]string(nil), vs...)
	}
	return q
}

func (q *query) set(key, value string) *query {
	q.v.Set(key, value)
	return q
}

func (q *query) str(key, value string) *query {
	if value != "" {
		q.v.Set(key, value)
	}
	return q
}

func (q *query) num(key string, value int) *query {
	if value != 0 {
		q.v.Set(key, strconv.Itoa(value))
	}
	return q
}

// values returns nil for an empty query so no query string is sent
func (q *query) values() url.Values {
	if len(q.v) == 0 {
		return nil
	}
	return q.v
}
