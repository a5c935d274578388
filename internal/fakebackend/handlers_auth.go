package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"golang.org/x/crypto/bcrypt"
)

// generateAPIKey returns 32 random bytes hex encoded
func generateAPIKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func hashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(hash), err
}

func checkAPIKeyHash(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var issues []validationIssue
	if !validEmail(req.Email) {
		issues = append(issues, invalid("body", "email", "value is not a valid email address"))
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		issues = append(issues, invalid("body", "company_name", "field required"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	apiKey := generateAPIKey()
	hash, err := hashAPIKey(apiKey)
	if err != nil {
		s.logger.Err(err).Msg("Failed to hash API key")
		writeDetail(w, http.StatusInternalServerError, "Failed to create merchant")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.merchantByEmail(req.Email) != nil {
		writeDetail(w, http.StatusBadRequest, "Merchant with this email already exists")
		return
	}

	m := &merchantapi.Merchant{
		ID:          uuid.New().String(),
		Email:       req.Email,
		CompanyName: req.CompanyName,
		APIKey:      apiKey,
		IsActive:    true,
		CreatedAt:   merchantapi.Timestamp{Time: s.now().UTC()},
	}
	if req.WebhookURL != "" {
		hook := req.WebhookURL
		m.WebhookURL = &hook
	}
	s.data.merchants[m.ID] = m
	s.data.keyHashes[m.ID] = hash
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req merchantapi.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.RLock()
	var merchantID, hash string
	var active bool
	if m := s.data.merchantByEmail(req.Email); m != nil {
		merchantID, hash, active = m.ID, s.data.keyHashes[m.ID], m.IsActive
	}
	s.mu.RUnlock()

	matched := hash != "" && req.APIKey != "" && checkAPIKeyHash(req.APIKey, hash)

	if !matched {
		writeUnauthorized(w, "Invalid email or API key")
		return
	}
	if !active {
		writeUnauthorized(w, "Merchant account is inactive")
		return
	}

	token, err := s.tokens.Issue(merchantID)
	if err != nil {
		s.logger.Err(err).Msg("Failed to issue access token")
		writeDetail(w, http.StatusInternalServerError, "Failed to create access token")
		return
	}
	writeJSON(w, http.StatusOK, merchantapi.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	m := *s.data.merchants[merchantIDFrom(r)]
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRefreshAPIKey(w http.ResponseWriter, r *http.Request) {
	apiKey := generateAPIKey()
	hash, err := hashAPIKey(apiKey)
	if err != nil {
		s.logger.Err(err).Msg("Failed to hash API key")
		writeDetail(w, http.StatusInternalServerError, "Failed to refresh API key")
		return
	}

	s.mu.Lock()
	m := s.data.merchants[merchantIDFrom(r)]
	m.APIKey = apiKey
	s.data.keyHashes[m.ID] = hash
	cp := *m
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.setActive(merchantIDFrom(r), false)
	writeJSON(w, http.StatusOK, merchantapi.MessageResponse{Message: "Merchant account deactivated successfully"})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.setActive(merchantIDFrom(r), true)
	writeJSON(w, http.StatusOK, merchantapi.MessageResponse{Message: "Merchant account activated successfully"})
}

func (s *Server) setActive(merchantID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.data.merchants[merchantID]; ok {
		m.IsActive = active
	}
}
