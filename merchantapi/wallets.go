package merchantapi

import (
	"context"
	"net/http"
	"net/url"
)

const walletsPath = "/wallets"

type WalletsClient struct {
	r Requester
}

func (c *WalletsClient) Create(ctx context.Context, req CreateWalletRequest) (*Wallet, error) {
	var w Wallet
	if err := c.r.Do(ctx, http.MethodPost, walletsPath+"/create", nil, req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *WalletsClient) List(ctx context.Context, params WalletListParams) ([]Wallet, error) {
	var ws []Wallet
	if err := c.r.Do(ctx, http.MethodGet, walletsPath+"/", params.Values(), nil, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *WalletsClient) Get(ctx context.Context, walletID string) (*Wallet, error) {
	var w Wallet
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(walletsPath, walletID), nil, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *WalletsClient) Balance(ctx context.Context, walletID string, token TokenSymbol) (*Balance, error) {
	var b Balance
	query := url.Values{"token": {string(token)}}
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(walletsPath, walletID, "balance"), query, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Balances returns one balance per supported token of the wallet's chain
func (c *WalletsClient) Balances(ctx context.Context, walletID string) ([]Balance, error) {
	var bs []Balance
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(walletsPath, walletID, "balances"), nil, nil, &bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// AllBalances returns balances across every active wallet of the merchant
func (c *WalletsClient) AllBalances(ctx context.Context) (*MerchantBalances, error) {
	var mb MerchantBalances
	if err := c.r.Do(ctx, http.MethodGet, walletsPath+"/balances/all", nil, nil, &mb); err != nil {
		return nil, err
	}
	return &mb, nil
}

func (c *WalletsClient) Activate(ctx context.Context, walletID string) (*MessageResponse, error) {
	return c.action(ctx, walletID, "activate")
}

func (c *WalletsClient) Deactivate(ctx context.Context, walletID string) (*MessageResponse, error) {
	return c.action(ctx, walletID, "deactivate")
}

func (c *WalletsClient) action(ctx context.Context, walletID, action string) (*MessageResponse, error) {
	var m MessageResponse
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(walletsPath, walletID, action), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
