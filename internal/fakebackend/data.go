package fakebackend

import (
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/shopspring/decimal"
)

type walletRecord struct {
	merchantapi.Wallet
	custodial bool // the sandbox generated the address and holds its key
}

type balanceKey struct {
	chain   merchantapi.Chain
	address string
	token   merchantapi.TokenSymbol
}

// dataStore holds every table in insertion order; Server.mu guards it
type dataStore struct {
	merchants    map[string]*merchantapi.Merchant
	keyHashes    map[string]string // merchant id -> bcrypt hash of the current API key
	payments     []*merchantapi.Payment
	transactions []*merchantapi.Transaction
	wallets      []*walletRecord
	payouts      []*merchantapi.Payout
	webhookLogs  []*merchantapi.WebhookLog
	balances     map[balanceKey]decimal.Decimal
}

func newDataStore() *dataStore {
	return &dataStore{
		merchants: make(map[string]*merchantapi.Merchant),
		keyHashes: make(map[string]string),
		balances:  make(map[balanceKey]decimal.Decimal),
	}
}

func (d *dataStore) merchantByEmail(email string) *merchantapi.Merchant {
	for _, m := range d.merchants {
		if m.Email == email {
			return m
		}
	}
	return nil
}

func (d *dataStore) payment(merchantID, paymentID string) *merchantapi.Payment {
	for _, p := range d.payments {
		if p.PaymentID == paymentID && p.MerchantID == merchantID {
			return p
		}
	}
	return nil
}

func (d *dataStore) paymentByRowID(id string) *merchantapi.Payment {
	for _, p := range d.payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// merchantTransactions returns the merchant's transactions, newest first
func (d *dataStore) merchantTransactions(merchantID string) []*merchantapi.Transaction {
	var out []*merchantapi.Transaction
	for i := len(d.transactions) - 1; i >= 0; i-- {
		tx := d.transactions[i]
		if p := d.paymentByRowID(tx.PaymentRequestID); p != nil && p.MerchantID == merchantID {
			out = append(out, tx)
		}
	}
	return out
}

func (d *dataStore) transaction(merchantID, txHash string) *merchantapi.Transaction {
	for _, tx := range d.merchantTransactions(merchantID) {
		if tx.TxHash == txHash {
			return tx
		}
	}
	return nil
}

func (d *dataStore) wallet(merchantID, walletID string) *walletRecord {
	for _, w := range d.wallets {
		if w.ID == walletID && w.MerchantID == merchantID {
			return w
		}
	}
	return nil
}

// walletForChain returns the merchant's wallet on chain, the active one
// when activeOnly is set
func (d *dataStore) walletForChain(merchantID string, chain merchantapi.Chain, activeOnly bool) *walletRecord {
	for _, w := range d.wallets {
		if w.MerchantID == merchantID && w.Chain == chain && (w.IsActive || !activeOnly) {
			return w
		}
	}
	return nil
}

func (d *dataStore) payout(merchantID, payoutID string) *merchantapi.Payout {
	for _, p := range d.payouts {
		if p.PayoutID == payoutID && p.MerchantID == merchantID {
			return p
		}
	}
	return nil
}

func (d *dataStore) webhookLog(merchantID, logID string) *merchantapi.WebhookLog {
	for _, l := range d.webhookLogs {
		if l.ID == logID && l.MerchantID == merchantID {
			return l
		}
	}
	return nil
}

func (d *dataStore) balance(chain merchantapi.Chain, address string, token merchantapi.TokenSymbol) decimal.Decimal {
	return d.balances[balanceKey{chain: chain, address: address, token: token}]
}

func (d *dataStore) credit(chain merchantapi.Chain, address string, token merchantapi.TokenSymbol, amount decimal.Decimal) {
	key := balanceKey{chain: chain, address: address, token: token}
	d.balances[key] = d.balances[key].Add(amount)
}

// newestFirst returns a reversed copy of rows
func newestFirst[T any](rows []*T) []*T {
	out := make([]*T, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out
}
