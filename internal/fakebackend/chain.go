package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ChainTransaction is what a network reports about a transaction hash
type ChainTransaction struct {
	Status      merchantapi.TransactionStatus
	From        string
	BlockNumber *int64
	GasUsed     *int64
	GasPrice    *int64
}

// Chain stands in for the networks the backend creates wallets on, watches
// and sends payouts through.
type Chain interface {
	NewWallet(chain merchantapi.Chain) (string, error)
	TransactionStatus(chain merchantapi.Chain, txHash string) (ChainTransaction, error)
	Send(chain merchantapi.Chain, from, to string, token merchantapi.TokenSymbol, amount decimal.Decimal) (string, error)
}

// SandboxChain confirms every transaction it has not been told otherwise about
type SandboxChain struct {
	mu        sync.Mutex
	block     int64
	statuses  map[string]merchantapi.TransactionStatus
	sendError error
}

func NewSandboxChain() *SandboxChain {
	return &SandboxChain{
		block:    18_000_000,
		statuses: make(map[string]merchantapi.TransactionStatus),
	}
}

// SetStatus pins the status reported for txHash
func (c *SandboxChain) SetStatus(txHash string, status merchantapi.TransactionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[txHash] = status
}

// FailSends makes every following Send return err; nil restores sending
func (c *SandboxChain) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendError = err
}

func (c *SandboxChain) NewWallet(chain merchantapi.Chain) (string, error) {
	switch chain {
	case merchantapi.ChainTron:
		return "T" + randomHex(16), nil
	case merchantapi.ChainSolana:
		return randomHex(22), nil
	}
	return "0x" + randomHex(20), nil
}

func (c *SandboxChain) TransactionStatus(_ merchantapi.Chain, txHash string) (ChainTransaction, error) {
	if txHash == "" {
		return ChainTransaction{}, errors.New("empty transaction hash")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.statuses[txHash]
	if !ok {
		status = merchantapi.TransactionConfirmed
	}
	tx := ChainTransaction{Status: status, From: "0x" + randomHex(20)}
	if status == merchantapi.TransactionConfirmed {
		c.block++
		block, gasUsed, gasPrice := c.block, int64(65_000), int64(30_000_000_000)
		tx.BlockNumber, tx.GasUsed, tx.GasPrice = &block, &gasUsed, &gasPrice
	}
	return tx, nil
}

func (c *SandboxChain) Send(chain merchantapi.Chain, _, _ string, _ merchantapi.TokenSymbol, _ decimal.Decimal) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendError != nil {
		return "", c.sendError
	}
	hash := "0x" + randomHex(32)
	if chain == merchantapi.ChainSolana {
		hash = randomHex(32)
	}
	c.statuses[hash] = merchantapi.TransactionConfirmed
	return hash, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
