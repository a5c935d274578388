package merchantapi

import (
	"context"
	"net/http"
)

const profilePath = "/merchants/profile"

type MerchantsClient struct {
	r Requester
}

func (c *MerchantsClient) Profile(ctx context.Context) (*Merchant, error) {
	var m Merchant
	if err := c.r.Do(ctx, http.MethodGet, profilePath, nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateProfile changes only the fields that are set
func (c *MerchantsClient) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Merchant, error) {
	var m Merchant
	if err := c.r.Do(ctx, http.MethodPut, profilePath, nil, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *MerchantsClient) Stats(ctx context.Context) (*MerchantStats, error) {
	var s MerchantStats
	if err := c.r.Do(ctx, http.MethodGet, "/merchants/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
