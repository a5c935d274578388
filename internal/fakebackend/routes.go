package fakebackend

import "net/http"

func (s *Server) initRoutes() {
	s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// AUTH
	s.register("/auth/register", http.MethodPost, ChainMiddleware(s.handleRegister, s.APIMiddleware()...))
	s.register("/auth/login", http.MethodPost, ChainMiddleware(s.handleLogin, s.APIMiddleware()...))
	s.register("/auth/me", http.MethodGet, ChainMiddleware(s.handleMe, s.AuthedMiddleware()...))
	s.register("/auth/refresh-api-key", http.MethodPost, ChainMiddleware(s.handleRefreshAPIKey, s.AuthedMiddleware()...))
	s.register("/auth/deactivate", http.MethodPost, ChainMiddleware(s.handleDeactivate, s.AuthedMiddleware()...))
	s.register("/auth/activate", http.MethodPost, ChainMiddleware(s.handleActivate, s.AuthedMiddleware()...))

	// PAYMENTS
	s.register("/payments/create", http.MethodPost, ChainMiddleware(s.handleCreatePayment, s.AuthedMiddleware()...))
	s.register("/payments/", http.MethodGet, ChainMiddleware(s.handleListPayments, s.AuthedMiddleware()...))
	s.register("/payments/{id}", http.MethodGet, ChainMiddleware(s.handleGetPayment, s.AuthedMiddleware()...))
	s.register("/payments/{id}", http.MethodPut, ChainMiddleware(s.handleUpdatePayment, s.AuthedMiddleware()...))
	s.register("/payments/{id}/transactions", http.MethodGet, ChainMiddleware(s.handlePaymentTransactions, s.AuthedMiddleware()...))
	s.register("/payments/{id}/verify", http.MethodPost, ChainMiddleware(s.handleVerifyPayment, s.AuthedMiddleware()...))
	s.register("/payments/{id}/refund", http.MethodPost, ChainMiddleware(s.handleRefundPayment, s.AuthedMiddleware()...))
	s.register("/payments/{id}/status", http.MethodGet, ChainMiddleware(s.handlePaymentStatus, s.AuthedMiddleware()...))

	// WALLETS
	s.register("/wallets/create", http.MethodPost, ChainMiddleware(s.handleCreateWallet, s.AuthedMiddleware()...))
	s.register("/wallets/", http.MethodGet, ChainMiddleware(s.handleListWallets, s.AuthedMiddleware()...))
	s.register("/wallets/balances/all", http.MethodGet, ChainMiddleware(s.handleAllBalances, s.AuthedMiddleware()...))
	s.register("/wallets/{id}", http.MethodGet, ChainMiddleware(s.handleGetWallet, s.AuthedMiddleware()...))
	s.register("/wallets/{id}/balance", http.MethodGet, ChainMiddleware(s.handleWalletBalance, s.AuthedMiddleware()...))
	s.register("/wallets/{id}/balances", http.MethodGet, ChainMiddleware(s.handleWalletBalances, s.AuthedMiddleware()...))
	s.register("/wallets/{id}/activate", http.MethodPost, ChainMiddleware(s.handleActivateWallet, s.AuthedMiddleware()...))
	s.register("/wallets/{id}/deactivate", http.MethodPost, ChainMiddleware(s.handleDeactivateWallet, s.AuthedMiddleware()...))

	// TRANSACTIONS
	s.register("/transactions/", http.MethodGet, ChainMiddleware(s.handleListTransactions, s.AuthedMiddleware()...))
	s.register("/transactions/stats/summary", http.MethodGet, ChainMiddleware(s.handleTransactionStats, s.AuthedMiddleware()...))
	s.register("/transactions/pending/check", http.MethodGet, ChainMiddleware(s.handleCheckPending, s.AuthedMiddleware()...))
	s.register("/transactions/{hash}", http.MethodGet, ChainMiddleware(s.handleGetTransaction, s.AuthedMiddleware()...))
	s.register("/transactions/{hash}/refresh", http.MethodPost, ChainMiddleware(s.handleRefreshTransaction, s.AuthedMiddleware()...))

	// PAYOUTS
	s.register("/payouts/create", http.MethodPost, ChainMiddleware(s.handleCreatePayout, s.AuthedMiddleware()...))
	s.register("/payouts/batch", http.MethodPost, ChainMiddleware(s.handleBatchPayouts, s.AuthedMiddleware()...))
	s.register("/payouts/", http.MethodGet, ChainMiddleware(s.handleListPayouts, s.AuthedMiddleware()...))
	s.register("/payouts/stats/summary", http.MethodGet, ChainMiddleware(s.handlePayoutStats, s.AuthedMiddleware()...))
	s.register("/payouts/{id}", http.MethodGet, ChainMiddleware(s.handleGetPayout, s.AuthedMiddleware()...))
	s.register("/payouts/{id}/execute", http.MethodPost, ChainMiddleware(s.handleExecutePayout, s.AuthedMiddleware()...))

	// WEBHOOKS
	s.register("/webhooks/test", http.MethodPost, ChainMiddleware(s.handleTestWebhook, s.AuthedMiddleware()...))
	s.register("/webhooks/logs", http.MethodGet, ChainMiddleware(s.handleWebhookLogs, s.AuthedMiddleware()...))
	s.register("/webhooks/retry/{id}", http.MethodPost, ChainMiddleware(s.handleRetryWebhook, s.AuthedMiddleware()...))
	s.register("/webhooks/incoming", http.MethodPost, ChainMiddleware(s.handleIncomingWebhook, s.APIMiddleware()...))
	s.register("/webhooks/events/supported", http.MethodGet, ChainMiddleware(s.handleSupportedEvents, s.APIMiddleware()...))

	// MERCHANTS
	s.register("/merchants/profile", http.MethodGet, ChainMiddleware(s.handleProfile, s.AuthedMiddleware()...))
	s.register("/merchants/profile", http.MethodPut, ChainMiddleware(s.handleUpdateProfile, s.AuthedMiddleware()...))
	s.register("/merchants/stats", http.MethodGet, ChainMiddleware(s.handleMerchantStats, s.AuthedMiddleware()...))

	s.router.NotFoundHandler = ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	}, s.APIMiddleware()...)
	s.router.MethodNotAllowedHandler = ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}, s.APIMiddleware()...)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
