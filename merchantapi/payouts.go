package merchantapi

import (
	"context"
	"net/http"
)

const payoutsPath = "/payouts"

type PayoutsClient struct {
	r Requester
}

func (c *PayoutsClient) Create(ctx context.Context, req CreatePayoutRequest) (*Payout, error) {
	var p Payout
	if err := c.r.Do(ctx, http.MethodPost, payoutsPath+"/create", nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Execute sends a pending payout on chain
func (c *PayoutsClient) Execute(ctx context.Context, payoutID string) (*ExecutePayoutResult, error) {
	var res ExecutePayoutResult
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(payoutsPath, payoutID, "execute"), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PayoutsClient) List(ctx context.Context, params PayoutListParams) ([]Payout, error) {
	var ps []Payout
	if err := c.r.Do(ctx, http.MethodGet, payoutsPath+"/", params.Values(), nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *PayoutsClient) Get(ctx context.Context, payoutID string) (*Payout, error) {
	var p Payout
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(payoutsPath, payoutID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Batch creates up to 100 payouts; individual rejections come back inline
func (c *PayoutsClient) Batch(ctx context.Context, req BatchPayoutRequest) (*BatchPayoutResult, error) {
	var res BatchPayoutResult
	if err := c.r.Do(ctx, http.MethodPost, payoutsPath+"/batch", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PayoutsClient) Stats(ctx context.Context, params StatsParams) (*PayoutStats, error) {
	var s PayoutStats
	if err := c.r.Do(ctx, http.MethodGet, payoutsPath+"/stats/summary", params.Values(), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
