package fakebackend

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenRevoked = errors.New("access token revoked")
)

// tokenIssuer mints and verifies HS256 access tokens whose subject is the merchant id
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	issued  map[string]map[string]time.Time // merchant id -> jti -> expiry
	revoked map[string]time.Time            // jti -> expiry
}

func newTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     now,
		issued:  make(map[string]map[string]time.Time),
		revoked: make(map[string]time.Time),
	}
}

func (t *tokenIssuer) Issue(merchantID string) (string, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	jti := uuid.New().String()

	claims := jwt.MapClaims{
		"sub": merchantID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": jti,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.issued[merchantID] == nil {
		t.issued[merchantID] = make(map[string]time.Time)
	}
	t.issued[merchantID][jti] = exp
	return signed, nil
}

// Verify returns the merchant id carried by a valid, unrevoked token
func (t *tokenIssuer) Verify(raw string) (string, error) {
	token, err := jwt.Parse(raw, t.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errors.Wrap(ErrInvalidToken, errMessage(err))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	if t.isRevoked(jti) {
		return "", ErrTokenRevoked
	}
	return sub, nil
}

// Revoke invalidates every token issued to the merchant so far
func (t *tokenIssuer) Revoke(merchantID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for jti, exp := range t.issued[merchantID] {
		t.revoked[jti] = exp
		n++
	}
	delete(t.issued, merchantID)
	t.cleanup()
	return n
}

func (t *tokenIssuer) isRevoked(jti string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.revoked[jti]
	return exists
}

// cleanup drops revocations of tokens that have expired anyway; mu must be held
func (t *tokenIssuer) cleanup() {
	now := t.now()
	for jti, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, jti)
		}
	}
}

func (t *tokenIssuer) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}

func errMessage(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}
