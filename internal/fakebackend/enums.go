package fakebackend

import (
	"slices"

	"github.com/jrsteele09/merchant-console/merchantapi"
)

func validChain(c merchantapi.Chain) bool {
	return slices.Contains(merchantapi.Chains, c)
}

func validToken(t merchantapi.TokenSymbol) bool {
	switch t {
	case merchantapi.USDC, merchantapi.USDT, merchantapi.DAI, merchantapi.BUSD, merchantapi.FRAX:
		return true
	}
	return false
}

func validPaymentStatus(s merchantapi.PaymentStatus) bool {
	switch s {
	case merchantapi.PaymentPending, merchantapi.PaymentCompleted, merchantapi.PaymentFailed,
		merchantapi.PaymentExpired, merchantapi.PaymentRefunded:
		return true
	}
	return false
}

func validTransactionStatus(s merchantapi.TransactionStatus) bool {
	switch s {
	case merchantapi.TransactionPending, merchantapi.TransactionConfirmed,
		merchantapi.TransactionFailed, merchantapi.TransactionExpired:
		return true
	}
	return false
}

// enumFilters validates the status/chain/token query filters shared by list endpoints
type enumFilters struct {
	status string
	chain  merchantapi.Chain
	token  merchantapi.TokenSymbol
}

func parseEnumFilters(get func(string) string, statusValid func(string) bool) (enumFilters, []validationIssue) {
	f := enumFilters{
		status: get("status"),
		chain:  merchantapi.Chain(get("chain")),
		token:  merchantapi.TokenSymbol(get("token")),
	}
	var issues []validationIssue
	if f.status != "" && statusValid != nil && !statusValid(f.status) {
		issues = append(issues, invalid("query", "status", "value is not a valid enumeration member"))
	}
	if f.chain != "" && !validChain(f.chain) {
		issues = append(issues, invalid("query", "chain", "value is not a valid enumeration member"))
	}
	if f.token != "" && !validToken(f.token) {
		issues = append(issues, invalid("query", "token", "value is not a valid enumeration member"))
	}
	return f, issues
}

func (f enumFilters) match(status string, chain merchantapi.Chain, token merchantapi.TokenSymbol) bool {
	return (f.status == "" || f.status == status) &&
		(f.chain == "" || f.chain == chain) &&
		(f.token == "" || f.token == token)
}
