package fakebackend

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jrsteele09/merchant-console/merchantapi"
)

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.CreateWalletRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validChain(req.Chain) {
		writeValidation(w, invalid("body", "chain", "value is not a valid enumeration member"))
		return
	}

	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	exists := s.data.walletForChain(merchantID, req.Chain, false) != nil
	s.mu.RUnlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Wallet already exists for "+string(req.Chain))
		return
	}

	address, custodial := req.Address, false
	if address == "" {
		generated, err := s.chain.NewWallet(req.Chain)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Failed to create wallet")
			return
		}
		address, custodial = generated, true
	}

	rec := &walletRecord{
		Wallet: merchantapi.Wallet{
			ID:         uuid.New().String(),
			MerchantID: merchantID,
			Chain:      req.Chain,
			Address:    address,
			IsActive:   true,
			CreatedAt:  merchantapi.Timestamp{Time: s.now().UTC()},
		},
		custodial: custodial,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// re-check under the write lock, a concurrent create may have won
	if s.data.walletForChain(merchantID, req.Chain, false) != nil {
		writeDetail(w, http.StatusBadRequest, "Wallet already exists for "+string(req.Chain))
		return
	}
	s.data.wallets = append(s.data.wallets, rec)
	writeJSON(w, http.StatusOK, rec.Wallet)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chain := merchantapi.Chain(q.Get("chain"))
	if chain != "" && !validChain(chain) {
		writeValidation(w, invalid("query", "chain", "value is not a valid enumeration member"))
		return
	}
	activeOnly := true
	if raw := q.Get("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(w, invalid("query", "active_only", "value could not be parsed to a boolean"))
			return
		}
		activeOnly = v
	}

	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []merchantapi.Wallet{}
	for _, rec := range newestFirst(s.data.wallets) {
		if rec.MerchantID != merchantID || (chain != "" && rec.Chain != chain) || (activeOnly && !rec.IsActive) {
			continue
		}
		out = append(out, rec.Wallet)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.data.wallet(merchantIDFrom(r), pathVar(r, "id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Wallet not found")
		return
	}
	writeJSON(w, http.StatusOK, rec.Wallet)
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	token := merchantapi.TokenSymbol(r.URL.Query().Get("token"))
	if !validToken(token) {
		writeValidation(w, invalid("query", "token", "value is not a valid enumeration member"))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.data.wallet(merchantIDFrom(r), pathVar(r, "id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Wallet not found")
		return
	}
	writeJSON(w, http.StatusOK, s.balanceOf(rec, token))
}

func (s *Server) handleWalletBalances(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.data.wallet(merchantIDFrom(r), pathVar(r, "id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Wallet not found")
		return
	}
	out := []merchantapi.Balance{}
	for _, token := range merchantapi.SupportedTokens(rec.Chain) {
		out = append(out, s.balanceOf(rec, token))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAllBalances(w http.ResponseWriter, r *http.Request) {
	merchantID := merchantIDFrom(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := merchantapi.MerchantBalances{MerchantID: merchantID, Balances: []merchantapi.Balance{}}
	for _, rec := range s.data.wallets {
		if rec.MerchantID != merchantID || !rec.IsActive {
			continue
		}
		for _, token := range merchantapi.SupportedTokens(rec.Chain) {
			res.Balances = append(res.Balances, s.balanceOf(rec, token))
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActivateWallet(w http.ResponseWriter, r *http.Request) {
	s.setWalletActive(w, r, true, "Wallet activated successfully")
}

func (s *Server) handleDeactivateWallet(w http.ResponseWriter, r *http.Request) {
	s.setWalletActive(w, r, false, "Wallet deactivated successfully")
}

func (s *Server) setWalletActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.data.wallet(merchantIDFrom(r), pathVar(r, "id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Wallet not found")
		return
	}
	rec.IsActive = active
	writeJSON(w, http.StatusOK, merchantapi.MessageResponse{Message: message})
}

// balanceOf must be called with mu held
func (s *Server) balanceOf(rec *walletRecord, token merchantapi.TokenSymbol) merchantapi.Balance {
	return merchantapi.Balance{
		Chain:   rec.Chain,
		Token:   token,
		Balance: s.data.balance(rec.Chain, rec.Address, token),
		Address: rec.Address,
	}
}
