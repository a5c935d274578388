package fakebackend

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/merchant-console/merchantapi"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.handleMe(w, r)
}

// handleUpdateProfile accepts the fields as a JSON body or as query parameters
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.UpdateProfileRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeValidation(w, invalid("body", "", "Invalid JSON body: "+err.Error()))
			return
		}
	}
	q := r.URL.Query()
	if req.CompanyName == nil && q.Has("company_name") {
		v := q.Get("company_name")
		req.CompanyName = &v
	}
	if req.WebhookURL == nil && q.Has("webhook_url") {
		v := q.Get("webhook_url")
		req.WebhookURL = &v
	}
	if req.CompanyName == nil && req.WebhookURL == nil {
		writeDetail(w, http.StatusBadRequest, "No fields to update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.data.merchants[merchantIDFrom(r)]
	if req.CompanyName != nil {
		m.CompanyName = *req.CompanyName
	}
	if req.WebhookURL != nil {
		hook := *req.WebhookURL
		m.WebhookURL = &hook
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMerchantStats(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.data.merchants[merchantID]

	stats := merchantapi.MerchantStatistics{
		Payments:     map[string]int{},
		Transactions: map[string]int{},
		Payouts:      map[string]int{},
		Wallets:      map[string]int{},
	}
	for _, p := range s.data.payments {
		if p.MerchantID == merchantID {
			stats.Payments[string(p.Status)]++
		}
	}
	for _, tx := range s.data.merchantTransactions(merchantID) {
		stats.Transactions[string(tx.Status)]++
	}
	for _, p := range s.data.payouts {
		if p.MerchantID == merchantID {
			stats.Payouts[string(p.Status)]++
		}
	}
	for _, rec := range s.data.wallets {
		if rec.MerchantID == merchantID && rec.IsActive {
			stats.Wallets[string(rec.Chain)]++
		}
	}

	writeJSON(w, http.StatusOK, merchantapi.MerchantStats{
		MerchantID:  m.ID,
		CompanyName: m.CompanyName,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		Statistics:  stats,
	})
}
