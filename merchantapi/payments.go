package merchantapi

import (
	"context"
	"net/http"
)

const paymentsPath = "/payments"

type PaymentsClient struct {
	r Requester
}

func (c *PaymentsClient) Create(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	var p Payment
	if err := c.r.Do(ctx, http.MethodPost, paymentsPath+"/create", nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *PaymentsClient) Get(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(paymentsPath, paymentID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *PaymentsClient) List(ctx context.Context, params PaymentListParams) ([]Payment, error) {
	var ps []Payment
	if err := c.r.Do(ctx, http.MethodGet, paymentsPath+"/", params.Values(), nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *PaymentsClient) Update(ctx context.Context, paymentID string, req UpdatePaymentRequest) (*Payment, error) {
	var p Payment
	if err := c.r.Do(ctx, http.MethodPut, resourcePath(paymentsPath, paymentID), nil, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Verify asks the backend to check txHash on chain against the payment
func (c *PaymentsClient) Verify(ctx context.Context, paymentID, txHash string) (*StatusResult, error) {
	var res StatusResult
	body := map[string]string{"tx_hash": txHash}
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(paymentsPath, paymentID, "verify"), nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PaymentsClient) Refund(ctx context.Context, paymentID string) (*MessageResponse, error) {
	var m MessageResponse
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(paymentsPath, paymentID, "refund"), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *PaymentsClient) Status(ctx context.Context, paymentID string) (*PaymentStatusInfo, error) {
	var s PaymentStatusInfo
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(paymentsPath, paymentID, "status"), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Transactions lists the on-chain transactions recorded against a payment
func (c *PaymentsClient) Transactions(ctx context.Context, paymentID string) ([]Transaction, error) {
	var txs []Transaction
	if err := c.r.Do(ctx, http.MethodGet, resourcePath(paymentsPath, paymentID, "transactions"), nil, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
