package fakebackend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/merchant-console/merchantapi"
)

const maxBatchPayouts = 100

// payoutError is a rejection with the status and detail to answer with
type payoutError struct {
	status int
	detail string
	issues []validationIssue
}

func (e *payoutError) Error() string {
	if e.detail == "" && len(e.issues) > 0 {
		return e.issues[0].Msg
	}
	return e.detail
}

func (e *payoutError) write(w http.ResponseWriter) {
	if len(e.issues) > 0 {
		writeValidation(w, e.issues...)
		return
	}
	writeDetail(w, e.status, e.detail)
}

func validatePayout(req merchantapi.CreatePayoutRequest) *payoutError {
	var issues []validationIssue
	if !validChain(req.Chain) {
		issues = append(issues, invalid("body", "chain", "value is not a valid enumeration member"))
	}
	if !validToken(req.Token) {
		issues = append(issues, invalid("body", "token", "value is not a valid enumeration member"))
	}
	if !req.Amount.IsPositive() {
		issues = append(issues, invalid("body", "amount", "ensure this value is greater than 0"))
	}
	if strings.TrimSpace(req.RecipientAddress) == "" {
		issues = append(issues, invalid("body", "recipient_address", "field required"))
	}
	if len(issues) > 0 {
		return &payoutError{status: http.StatusUnprocessableEntity, issues: issues}
	}
	return nil
}

// createPayout must be called with mu held
func (s *Server) createPayout(merchantID string, req merchantapi.CreatePayoutRequest) (*merchantapi.Payout, *payoutError) {
	if err := validatePayout(req); err != nil {
		return nil, err
	}
	wallet := s.data.walletForChain(merchantID, req.Chain, true)
	if wallet == nil {
		return nil, &payoutError{status: http.StatusBadRequest, detail: "No active wallet found for " + string(req.Chain)}
	}
	available := s.data.balance(wallet.Chain, wallet.Address, req.Token)
	if available.LessThan(req.Amount) {
		return nil, &payoutError{
			status: http.StatusBadRequest,
			detail: fmt.Sprintf("Insufficient balance. Available: %s, Required: %s", available, req.Amount),
		}
	}

	p := &merchantapi.Payout{
		ID:               uuid.New().String(),
		PayoutID:         "payout_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		MerchantID:       merchantID,
		Chain:            req.Chain,
		Token:            req.Token,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
		Status:           merchantapi.PayoutPending,
		CreatedAt:        merchantapi.Timestamp{Time: s.now().UTC()},
	}
	s.data.payouts = append(s.data.payouts, p)
	return p, nil
}

func (s *Server) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.CreatePayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	merchantID := merchantIDFrom(r)
	s.mu.Lock()
	p, err := s.createPayout(merchantID, req)
	var cp merchantapi.Payout
	if err == nil {
		cp = *p
	}
	s.mu.Unlock()
	if err != nil {
		err.write(w)
		return
	}
	s.notify(r.Context(), merchantID, "payout.created", payoutEvent(&cp))
	writeJSON(w, http.StatusOK, cp)
}

func payoutEvent(p *merchantapi.Payout) map[string]any {
	data := map[string]any{
		"payout_id":         p.PayoutID,
		"chain":             p.Chain,
		"token":             p.Token,
		"amount":            p.Amount.String(),
		"recipient_address": p.RecipientAddress,
	}
	if p.TxHash != nil {
		data["tx_hash"] = *p.TxHash
	}
	return data
}

// handleBatchPayouts creates each payout independently; rejections are
// reported inline next to the input that caused them.
func (s *Server) handleBatchPayouts(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.BatchPayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Payouts) > maxBatchPayouts {
		writeDetail(w, http.StatusBadRequest, "Maximum 100 payouts allowed per batch")
		return
	}

	merchantID := merchantIDFrom(r)
	s.mu.Lock()
	// rejected rows carry only the error and the input, not zero payout fields
	rows := make([]any, 0, len(req.Payouts))
	var created []merchantapi.Payout
	for i := range req.Payouts {
		in := req.Payouts[i]
		p, err := s.createPayout(merchantID, in)
		if err != nil {
			rows = append(rows, map[string]any{"error": err.Error(), "payout_data": in})
			continue
		}
		created = append(created, *p)
		rows = append(rows, created[len(created)-1])
	}
	s.mu.Unlock()

	for i := range created {
		s.notify(r.Context(), merchantID, "payout.created", payoutEvent(&created[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Batch payout processing completed. %d payouts processed.", len(rows)),
		"payouts": rows,
	})
}

// handleExecutePayout sends a pending payout from the merchant's custodial wallet
func (s *Server) handleExecutePayout(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantIDFrom(r)

	s.mu.Lock()
	p := s.data.payout(merchantID, pathVar(r, "id"))
	if p == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Payout not found")
		return
	}
	if p.Status != merchantapi.PayoutPending {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Payout is not in pending status")
		return
	}
	wallet := s.data.walletForChain(merchantID, p.Chain, true)
	if wallet == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "No active wallet found for this chain")
		return
	}
	if !wallet.custodial {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Wallet private key not available (non-custodial mode)")
		return
	}
	if s.data.balance(wallet.Chain, wallet.Address, p.Token).LessThan(p.Amount) {
		p.Status = merchantapi.PayoutFailed
		s.mu.Unlock()
		writeDetail(w, http.StatusInternalServerError, "Failed to execute payout: insufficient balance")
		return
	}
	from, chain, token, amount, to := wallet.Address, p.Chain, p.Token, p.Amount, p.RecipientAddress
	s.mu.Unlock()

	txHash, err := s.chain.Send(chain, from, to, token, amount)

	s.mu.Lock()
	if err != nil {
		p.Status = merchantapi.PayoutFailed
		event := payoutEvent(p)
		s.mu.Unlock()
		event["error"] = err.Error()
		s.notify(r.Context(), merchantID, "payout.failed", event)
		writeDetail(w, http.StatusInternalServerError, "Failed to execute payout: "+err.Error())
		return
	}
	p.Status = merchantapi.PayoutCompleted
	p.TxHash = &txHash
	s.data.credit(chain, from, token, amount.Neg())
	event := payoutEvent(p)
	s.mu.Unlock()

	s.notify(r.Context(), merchantID, "payout.completed", event)

	writeJSON(w, http.StatusOK, merchantapi.ExecutePayoutResult{
		PayoutID: p.PayoutID,
		TxHash:   txHash,
		Status:   merchantapi.PayoutCompleted,
		Message:  "Payout executed successfully",
	})
}

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, issues := parseEnumFilters(q.Get, nil)
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}
	page, ok := parsePage(w, q)
	if !ok {
		return
	}

	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*merchantapi.Payout
	for _, p := range newestFirst(s.data.payouts) {
		if p.MerchantID == merchantID && filters.match(string(p.Status), p.Chain, p.Token) {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, paginate(out, page))
}

func (s *Server) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.data.payout(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payout not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePayoutStats(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r.URL.Query())
	if !ok {
		return
	}
	end := s.now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := merchantapi.PayoutStats{Breakdown: newBreakdown(days, start, end)}
	for _, p := range s.data.payouts {
		if p.MerchantID != merchantID || p.CreatedAt.Before(start) {
			continue
		}
		tally(&stats.Breakdown, string(p.Status), p.Chain)
		if p.Status == merchantapi.PayoutCompleted {
			stats.TokenVolumes[string(p.Token)] += p.Amount.InexactFloat64()
		}
		stats.TotalPayouts++
	}
	writeJSON(w, http.StatusOK, stats)
}
