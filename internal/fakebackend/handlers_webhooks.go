package fakebackend

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/merchant-console/merchantapi"
)

const (
	maxWebhookRetries    = 5
	maxWebhookLoggedBody = 4 << 10

	// SignatureHeader carries "sha256=<hex hmac>" of the request body
	SignatureHeader = "X-Webhook-Signature"
)

// SupportedEvents lists the webhook event types deliveries are made for
var SupportedEvents = []merchantapi.WebhookEvent{
	{Name: "payment.created", Description: "A new payment request was created"},
	{Name: "payment.completed", Description: "A payment was successfully completed"},
	{Name: "payment.failed", Description: "A payment failed"},
	{Name: "payment.expired", Description: "A payment request expired"},
	{Name: "payment.refunded", Description: "A payment was refunded"},
	{Name: "transaction.confirmed", Description: "A transaction was confirmed on the blockchain"},
	{Name: "transaction.failed", Description: "A transaction failed on the blockchain"},
	{Name: "payout.created", Description: "A payout was created"},
	{Name: "payout.completed", Description: "A payout was completed"},
	{Name: "payout.failed", Description: "A payout failed"},
	{Name: "wallet.created", Description: "A new wallet was created"},
	{Name: "test", Description: "Test webhook event"},
}

// Sign returns the signature header value for body
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// deliver posts payload to webhookURL and appends the attempt to the
// webhook log. The lock must not be held.
func (s *Server) deliver(ctx context.Context, merchantID, webhookURL, eventType string, payload map[string]any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Err(err).Msg("Failed to encode webhook payload")
		return false
	}

	entry := &merchantapi.WebhookLog{
		ID:         uuid.New().String(),
		MerchantID: merchantID,
		EventType:  eventType,
		Payload:    payload,
		CreatedAt:  merchantapi.Timestamp{Time: s.now().UTC()},
	}
	defer func() {
		s.mu.Lock()
		s.data.webhookLogs = append(s.data.webhookLogs, entry)
		s.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		msg := err.Error()
		entry.ResponseBody = &msg
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.webhookSecret, body))
	req.Header.Set("User-Agent", "Merchant-Sandbox/1.0")

	resp, err := s.webhookClient.Do(req)
	if err != nil {
		msg := err.Error()
		entry.ResponseBody = &msg
		s.logger.Debug().Err(err).Str("url", webhookURL).Msg("webhook delivery failed")
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookLoggedBody))
	status, text := resp.StatusCode, string(respBody)
	entry.ResponseStatus, entry.ResponseBody = &status, &text
	return resp.StatusCode == http.StatusOK
}

func (s *Server) eventPayload(merchantID, eventType string, data map[string]any) map[string]any {
	return map[string]any{
		"event_type":  eventType,
		"merchant_id": merchantID,
		"data":        data,
		"timestamp":   s.now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *Server) webhookURL(merchantID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.data.merchants[merchantID]; ok && m.WebhookURL != nil {
		return *m.WebhookURL
	}
	return ""
}

// notify delivers an event to the merchant's webhook URL, if one is set
func (s *Server) notify(ctx context.Context, merchantID, eventType string, data map[string]any) bool {
	hook := s.webhookURL(merchantID)
	if hook == "" {
		return false
	}
	return s.deliver(ctx, merchantID, hook, eventType, s.eventPayload(merchantID, eventType, data))
}

func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantIDFrom(r)
	success := s.notify(r.Context(), merchantID, "test", map[string]any{
		"test":      true,
		"message":   "This is a test webhook from the merchant sandbox",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
	message := "Failed to send test webhook"
	if success {
		message = "Test webhook sent"
	}
	writeJSON(w, http.StatusOK, merchantapi.WebhookResult{Success: success, Message: message})
}

func (s *Server) handleWebhookLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := parsePage(w, q)
	if !ok {
		return
	}
	eventType := q.Get("event_type")

	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*merchantapi.WebhookLog
	for _, l := range newestFirst(s.data.webhookLogs) {
		if l.MerchantID == merchantID && (eventType == "" || l.EventType == eventType) {
			out = append(out, l)
		}
	}
	writeJSON(w, http.StatusOK, paginate(out, page))
}

// handleRetryWebhook redelivers a logged event. Each retry is logged as a
// new attempt and counted against the original entry.
func (s *Server) handleRetryWebhook(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantIDFrom(r)

	s.mu.Lock()
	entry := s.data.webhookLog(merchantID, pathVar(r, "id"))
	if entry == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Webhook log not found")
		return
	}
	if entry.RetryCount >= maxWebhookRetries {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Maximum retry attempts exceeded")
		return
	}
	entry.RetryCount++
	eventType, payload := entry.EventType, entry.Payload
	s.mu.Unlock()

	success := false
	if hook := s.webhookURL(merchantID); hook != "" {
		success = s.deliver(r.Context(), merchantID, hook, eventType, payload)
	}
	message := "Webhook retry failed"
	if success {
		message = "Webhook retry completed"
	}
	writeJSON(w, http.StatusOK, merchantapi.WebhookResult{Success: success, Message: message})
}

// handleIncomingWebhook accepts an event from an external service,
// checking the signature when one is sent.
func (s *Server) handleIncomingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if sig := r.Header.Get(SignatureHeader); sig != "" && !hmac.Equal([]byte(sig), []byte(Sign(s.webhookSecret, body))) {
		writeDetail(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	eventType, _ := payload["event_type"].(string)
	merchantID, _ := payload["merchant_id"].(string)
	if eventType == "" || merchantID == "" {
		writeDetail(w, http.StatusBadRequest, "Missing required fields: event_type, merchant_id")
		return
	}

	status, text := http.StatusOK, "Processed successfully"
	s.mu.Lock()
	s.data.webhookLogs = append(s.data.webhookLogs, &merchantapi.WebhookLog{
		ID:             uuid.New().String(),
		MerchantID:     merchantID,
		EventType:      "incoming_" + eventType,
		Payload:        payload,
		ResponseStatus: &status,
		ResponseBody:   &text,
		CreatedAt:      merchantapi.Timestamp{Time: s.now().UTC()},
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Webhook processed successfully"})
}

func (s *Server) handleSupportedEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": SupportedEvents})
}
