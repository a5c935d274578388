package fakebackend

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/merchant-console/merchantapi"
)

const defaultPaymentExpiry = 24 * time.Hour

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.CreatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
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
	if req.ExpiresIn < 0 {
		issues = append(issues, invalid("body", "expires_in", "ensure this value is greater than or equal to 0"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	now := s.now().UTC()
	expiry := defaultPaymentExpiry
	if req.ExpiresIn > 0 {
		expiry = time.Duration(req.ExpiresIn) * time.Minute
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if req.Description != "" {
		metadata["description"] = req.Description
	}

	p := &merchantapi.Payment{
		ID:               uuid.New().String(),
		PaymentID:        "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		MerchantID:       merchantIDFrom(r),
		Chain:            req.Chain,
		Token:            req.Token,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
		Status:           merchantapi.PaymentPending,
		ExpiresAt:        &merchantapi.Timestamp{Time: now.Add(expiry)},
		Metadata:         metadata,
		CreatedAt:        merchantapi.Timestamp{Time: now},
	}

	s.mu.Lock()
	s.data.payments = append(s.data.payments, p)
	cp := *p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.data.payment(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, issues := parseEnumFilters(q.Get, func(v string) bool { return validPaymentStatus(merchantapi.PaymentStatus(v)) })
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
	var out []*merchantapi.Payment
	for _, p := range newestFirst(s.data.payments) {
		if p.MerchantID == merchantID && filters.match(string(p.Status), p.Chain, p.Token) {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, paginate(out, page))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.UpdatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != "" && !validPaymentStatus(req.Status) {
		writeValidation(w, invalid("body", "status", "value is not a valid enumeration member"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.payment(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	if req.Metadata != nil {
		p.Metadata = req.Metadata
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePaymentTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.data.payment(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}
	out := []*merchantapi.Transaction{}
	for _, tx := range newestFirst(s.data.transactions) {
		if tx.PaymentRequestID == p.ID {
			out = append(out, tx)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleVerifyPayment checks a transaction hash on chain; a confirmed
// transaction completes the payment, records the transaction and credits
// the recipient address.
func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	txHash := r.URL.Query().Get("tx_hash")
	if r.ContentLength != 0 {
		var body struct {
			TxHash string `json:"tx_hash"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if body.TxHash != "" {
			txHash = body.TxHash
		}
	}
	if txHash == "" {
		writeValidation(w, invalid("body", "tx_hash", "field required"))
		return
	}

	merchantID, paymentID := merchantIDFrom(r), pathVar(r, "id")
	s.mu.RLock()
	p := s.data.payment(merchantID, paymentID)
	var chain merchantapi.Chain
	if p != nil {
		chain = p.Chain
	}
	s.mu.RUnlock()
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}

	status, err := s.chain.TransactionStatus(chain, txHash)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to verify payment: "+err.Error())
		return
	}
	if status.Status != merchantapi.TransactionConfirmed {
		writeJSON(w, http.StatusOK, merchantapi.StatusResult{Message: "Transaction not confirmed yet", Status: string(status.Status)})
		return
	}

	s.mu.Lock()
	p.Status = merchantapi.PaymentCompleted
	s.data.transactions = append(s.data.transactions, &merchantapi.Transaction{
		ID:                uuid.New().String(),
		PaymentRequestID:  p.ID,
		TxHash:            txHash,
		Chain:             p.Chain,
		Token:             p.Token,
		Amount:            p.Amount,
		FromAddress:       status.From,
		ToAddress:         p.RecipientAddress,
		BlockNumber:       status.BlockNumber,
		ConfirmationCount: 1,
		Status:            merchantapi.TransactionConfirmed,
		GasUsed:           status.GasUsed,
		GasPrice:          status.GasPrice,
		CreatedAt:         merchantapi.Timestamp{Time: s.now().UTC()},
	})
	s.data.credit(p.Chain, p.RecipientAddress, p.Token, p.Amount)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, merchantapi.StatusResult{Message: "Payment verified successfully", Status: string(merchantapi.TransactionConfirmed)})
}

func (s *Server) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.payment(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}
	if p.Status != merchantapi.PaymentCompleted {
		writeDetail(w, http.StatusBadRequest, "Only completed payments can be refunded")
		return
	}
	p.Status = merchantapi.PaymentRefunded
	writeJSON(w, http.StatusOK, merchantapi.MessageResponse{Message: "Payment refunded successfully"})
}

// handlePaymentStatus reports the status, expiring a pending payment whose deadline has passed
func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.payment(merchantIDFrom(r), pathVar(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Payment request not found")
		return
	}
	if p.Status == merchantapi.PaymentPending && p.ExpiresAt != nil && s.now().After(p.ExpiresAt.Time) {
		p.Status = merchantapi.PaymentExpired
	}
	writeJSON(w, http.StatusOK, merchantapi.PaymentStatusInfo{
		PaymentID: p.PaymentID,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	})
}
