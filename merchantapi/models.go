package merchantapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainBSC       Chain = "bsc"
	ChainAvalanche Chain = "avalanche"
	ChainTron      Chain = "tron"
	ChainSolana    Chain = "solana"
)

// Chains lists every supported network
var Chains = []Chain{ChainEthereum, ChainPolygon, ChainBSC, ChainAvalanche, ChainTron, ChainSolana}

// TokenSymbol is a stablecoin ticker
type TokenSymbol string

const (
	USDC TokenSymbol = "USDC"
	USDT TokenSymbol = "USDT"
	DAI  TokenSymbol = "DAI"
	BUSD TokenSymbol = "BUSD"
	FRAX TokenSymbol = "FRAX"
)

// SupportedTokens returns the stablecoins the backend tracks balances for on chain.
func SupportedTokens(chain Chain) []TokenSymbol {
	switch chain {
	case ChainEthereum, ChainPolygon, ChainAvalanche:
		return []TokenSymbol{USDC, USDT, DAI}
	case ChainBSC:
		return []TokenSymbol{USDC, USDT, BUSD}
	case ChainTron, ChainSolana:
		return []TokenSymbol{USDC, USDT}
	}
	return nil
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
	PaymentRefunded  PaymentStatus = "refunded"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionExpired   TransactionStatus = "expired"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

// Timestamp accepts RFC 3339 as well as the zone-less ISO 8601 form the
// backend emits for naive datetimes (interpreted as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Merchant is the identity record the backend asserts for a token
type Merchant struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
	APIKey      string    `json:"api_key"`
	WebhookURL  *string   `json:"webhook_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   Timestamp `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	WebhookURL  string `json:"webhook_url,omitempty"`
}

type LoginRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is the body of action endpoints that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResult is returned by verify and refresh style actions
type StatusResult struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	TxHash  string `json:"tx_hash,omitempty"`
}

type Payment struct {
	ID               string          `json:"id"`
	PaymentID        string          `json:"payment_id"`
	MerchantID       string          `json:"merchant_id"`
	Chain            Chain           `json:"chain"`
	Token            TokenSymbol     `json:"token"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
	Status           PaymentStatus   `json:"status"`
	ExpiresAt        *Timestamp      `json:"expires_at"`
	Metadata         map[string]any  `json:"metadata"`
	CreatedAt        Timestamp       `json:"created_at"`
}

type CreatePaymentRequest struct {
	Chain            Chain           `json:"chain"`
	Token            TokenSymbol     `json:"token"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
	Description      string          `json:"description,omitempty"`
	ExpiresIn        int             `json:"expires_in,omitempty"` // minutes
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

type UpdatePaymentRequest struct {
	Status   PaymentStatus  `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type PaymentStatusInfo struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
	CreatedAt Timestamp     `json:"created_at"`
	ExpiresAt *Timestamp    `json:"expires_at"`
}

type Wallet struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	Chain      Chain     `json:"chain"`
	Address    string    `json:"address"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  Timestamp `json:"created_at"`
}

type CreateWalletRequest struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address,omitempty"` // empty asks the backend to generate one
}

type Balance struct {
	Chain   Chain           `json:"chain"`
	Token   TokenSymbol     `json:"token"`
	Balance decimal.Decimal `json:"balance"`
	Address string          `json:"address"`
}

type MerchantBalances struct {
	MerchantID string    `json:"merchant_id"`
	Balances   []Balance `json:"balances"`
}

type Transaction struct {
	ID                string            `json:"id"`
	PaymentRequestID  string            `json:"payment_request_id"`
	TxHash            string            `json:"tx_hash"`
	Chain             Chain             `json:"chain"`
	Token             TokenSymbol       `json:"token"`
	Amount            decimal.Decimal   `json:"amount"`
	FromAddress       string            `json:"from_address"`
	ToAddress         string            `json:"to_address"`
	BlockNumber       *int64            `json:"block_number"`
	ConfirmationCount int               `json:"confirmation_count"`
	Status            TransactionStatus `json:"status"`
	GasUsed           *int64            `json:"gas_used"`
	GasPrice          *int64            `json:"gas_price"`
	CreatedAt         Timestamp         `json:"created_at"`
}

type DateRange struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// Breakdown is the aggregate shared by the transaction and payout summaries
type Breakdown struct {
	PeriodDays      int                `json:"period_days"`
	StatusBreakdown map[string]int     `json:"status_breakdown"`
	TokenVolumes    map[string]float64 `json:"token_volumes"`
	ChainBreakdown  map[string]int     `json:"chain_breakdown"`
	DateRange       DateRange          `json:"date_range"`
}

type TransactionStats struct {
	Breakdown
	TotalTransactions int `json:"total_transactions"`
}

type PendingCheck struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

type Payout struct {
	ID               string          `json:"id"`
	PayoutID         string          `json:"payout_id"`
	MerchantID       string          `json:"merchant_id"`
	Chain            Chain           `json:"chain"`
	Token            TokenSymbol     `json:"token"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
	Status           PayoutStatus    `json:"status"`
	TxHash           *string         `json:"tx_hash"`
	CreatedAt        Timestamp       `json:"created_at"`
}

type CreatePayoutRequest struct {
	Chain            Chain           `json:"chain"`
	Token            TokenSymbol     `json:"token"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
	Description      string          `json:"description,omitempty"`
}

type BatchPayoutRequest struct {
	Payouts []CreatePayoutRequest `json:"payouts"`
}

// BatchPayoutItem is either a created payout or, when Error is set, the
// rejected input echoed back in PayoutData.
type BatchPayoutItem struct {
	Payout
	Error      string               `json:"error,omitempty"`
	PayoutData *CreatePayoutRequest `json:"payout_data,omitempty"`
}

type BatchPayoutResult struct {
	Message string            `json:"message"`
	Payouts []BatchPayoutItem `json:"payouts"`
}

type ExecutePayoutResult struct {
	PayoutID string       `json:"payout_id"`
	TxHash   string       `json:"tx_hash"`
	Status   PayoutStatus `json:"status"`
	Message  string       `json:"message"`
}

type PayoutStats struct {
	Breakdown
	TotalPayouts int `json:"total_payouts"`
}

type WebhookLog struct {
	ID             string         `json:"id"`
	MerchantID     string         `json:"merchant_id"`
	EventType      string         `json:"event_type"`
	Payload        map[string]any `json:"payload"`
	ResponseStatus *int           `json:"response_status"`
	ResponseBody   *string        `json:"response_body"`
	RetryCount     int            `json:"retry_count"`
	CreatedAt      Timestamp      `json:"created_at"`
}

type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WebhookEvent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProfileRequest struct {
	CompanyName *string `json:"company_name,omitempty"`
	WebhookURL  *string `json:"webhook_url,omitempty"`
}

type MerchantStatistics struct {
	Payments     map[string]int `json:"payments"`
	Transactions map[string]int `json:"transactions"`
	Payouts      map[string]int `json:"payouts"`
	Wallets      map[string]int `json:"wallets"`
}

type MerchantStats struct {
	MerchantID  string             `json:"merchant_id"`
	CompanyName string             `json:"company_name"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   Timestamp          `json:"created_at"`
	Statistics  MerchantStatistics `json:"statistics"`
}
