// Package fakebackend is an in-memory merchant backend speaking the same
// JSON REST contract as the production API. It backs the sandbox binary and
// the end-to-end tests of the console packages.
package fakebackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// APIPrefix is the root every resource route is mounted under
	APIPrefix = "/api/v1"

	defaultSecret        = "sandbox-secret-change-me"
	defaultTokenTTL      = 30 * time.Minute
	defaultWebhookSecret = "sandbox-webhook-secret"
)

type Server struct {
	env           string
	router        *mux.Router
	routes        []string
	logger        zerolog.Logger
	now           func() time.Time
	chain         Chain
	webhookClient *http.Client
	webhookSecret string
	tokens        *tokenIssuer
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec

	secret   string
	tokenTTL time.Duration

	mu   sync.RWMutex
	data *dataStore
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithSecret sets the HMAC key access tokens are signed with
func WithSecret(secret string) ServerOption {
	return func(s *Server) {
		s.secret = secret
	}
}

func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEnv sets the environment name; request logging is on for "DEV"
func WithEnv(env string) ServerOption {
	return func(s *Server) {
		s.env = env
	}
}

func WithChain(c Chain) ServerOption {
	return func(s *Server) {
		s.chain = c
	}
}

// WithWebhookClient sets the client webhook deliveries are sent with
func WithWebhookClient(c *http.Client) ServerOption {
	return func(s *Server) {
		s.webhookClient = c
	}
}

func WithWebhookSecret(secret string) ServerOption {
	return func(s *Server) {
		s.webhookSecret = secret
	}
}

func New(options ...ServerOption) *Server {
	s := &Server{
		logger:        log.Logger,
		now:           time.Now,
		secret:        defaultSecret,
		tokenTTL:      defaultTokenTTL,
		webhookSecret: defaultWebhookSecret,
		data:          newDataStore(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.chain == nil {
		s.chain = NewSandboxChain()
	}
	if s.webhookClient == nil {
		s.webhookClient = &http.Client{Timeout: 30 * time.Second}
	}
	s.tokens = newTokenIssuer(s.secret, s.tokenTTL, s.now)

	s.registry = prometheus.NewRegistry()
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_sandbox_requests_total",
		Help: "Sandbox API requests by route and response code.",
	}, []string{"route", "code"})
	s.registry.MustRegister(s.requests)

	s.router = mux.NewRouter()
	s.router.UseEncodedPath()
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Registry exposes the sandbox metrics, also served on /metrics
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// RevokeTokens invalidates every access token issued to the merchant so far
func (s *Server) RevokeTokens(merchantID string) int {
	return s.tokens.Revoke(merchantID)
}

// Fund credits address with amount of token, as if an inbound transfer
// had settled outside any payment request
func (s *Server) Fund(chain merchantapi.Chain, address string, token merchantapi.TokenSymbol, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.credit(chain, address, token, amount)
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Server) register(pattern, method string, handler http.HandlerFunc) {
	s.routes = append(s.routes, method+" "+APIPrefix+pattern)
	s.router.HandleFunc(APIPrefix+pattern, handler).Methods(method)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		s.logger.Info().Msg(route)
	}
}
