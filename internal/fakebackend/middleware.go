package fakebackend

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type contextKey string

const contextKeyMerchantID contextKey = "merchant_id"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the chain every route runs through
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.MetricsMiddleware,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
	return append(chained, mw...)
}

// AuthedMiddleware is APIMiddleware plus bearer token authentication
func (s *Server) AuthedMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return s.APIMiddleware(s.RequireMerchant)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func recorderFor(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *Server) MetricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recorderFor(w)
		next(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env != "DEV" {
			next(w, r)
			return
		}
		start := time.Now()
		rec := recorderFor(w)
		next(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Recovered from panic")
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next(w, r)
	}
}

// RequireMerchant validates the bearer token and puts the merchant id on
// the request context. The merchant must exist and be active.
func (s *Server) RequireMerchant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, "Not authenticated")
			return
		}

		merchantID, err := s.tokens.Verify(raw)
		if err != nil {
			writeUnauthorized(w, "Could not validate credentials")
			return
		}

		s.mu.RLock()
		merchant, exists := s.data.merchants[merchantID]
		active := exists && merchant.IsActive
		s.mu.RUnlock()

		if !exists {
			writeUnauthorized(w, "Merchant not found")
			return
		}
		if !active {
			writeUnauthorized(w, "Merchant account is inactive")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyMerchantID, merchantID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func merchantIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyMerchantID).(string)
	return id
}
