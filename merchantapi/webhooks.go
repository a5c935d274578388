package merchantapi

import (
	"context"
	"net/http"
)

const webhooksPath = "/webhooks"

type WebhooksClient struct {
	r Requester
}

// Test sends a test event to the merchant's configured webhook URL
func (c *WebhooksClient) Test(ctx context.Context) (*WebhookResult, error) {
	var res WebhookResult
	if err := c.r.Do(ctx, http.MethodPost, webhooksPath+"/test", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *WebhooksClient) Logs(ctx context.Context, params WebhookLogParams) ([]WebhookLog, error) {
	var logs []WebhookLog
	if err := c.r.Do(ctx, http.MethodGet, webhooksPath+"/logs", params.Values(), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Retry redelivers the event recorded in a webhook log entry
func (c *WebhooksClient) Retry(ctx context.Context, logID string) (*WebhookResult, error) {
	var res WebhookResult
	if err := c.r.Do(ctx, http.MethodPost, resourcePath(webhooksPath, "retry", logID), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *WebhooksClient) SupportedEvents(ctx context.Context) ([]WebhookEvent, error) {
	var res struct {
		Events []WebhookEvent `json:"events"`
	}
	if err := c.r.Do(ctx, http.MethodGet, webhooksPath+"/events/supported", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}
