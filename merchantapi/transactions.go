package merchantapi

import (
	"context"
	"net/http"
)

const transactionsPath = "/transactions"

type TransactionsClient struct {
	r Requester
}

func (c *TransactionsClient) List(ctx context.Context, params TransactionListParams) ([]Transaction, error) {
	var txs []Transaction
	if err := c.r.Do(ctx, http.MethodGet, transactionsPath+"/", params.Values(), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *TransactionsClient) Get(ctx context.Context, txHash string) (*Transaction, error) {
	var tx Transaction
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(transactionsPath, txHash), nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Refresh re-reads the transaction status from chain
func (c *TransactionsClient) Refresh(ctx context.Context, txHash string) (*StatusResult, error) {
	var res StatusResult
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(transactionsPath, txHash, "refresh"), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *TransactionsClient) Stats(ctx context.Context, params StatsParams) (*TransactionStats, error) {
	var s TransactionStats
	if err := c.r.Do(ctx, http.MethodGet, transactionsPath+"/stats/summary", params.Values(), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *TransactionsClient) CheckPending(ctx context.Context) (*PendingCheck, error) {
	var p PendingCheck
	if err := c.r.Do(ctx, http.MethodGet, transactionsPath+"/pending/check", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
