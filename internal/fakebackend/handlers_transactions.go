package fakebackend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/merchant-console/merchantapi"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, issues := parseEnumFilters(q.Get, func(v string) bool { return validTransactionStatus(merchantapi.TransactionStatus(v)) })
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}
	page, ok := parsePage(w, q)
	if !ok {
		return
	}
	txHash := q.Get("tx_hash")

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*merchantapi.Transaction
	for _, tx := range s.data.merchantTransactions(merchantIDFrom(r)) {
		if filters.match(string(tx.Status), tx.Chain, tx.Token) && (txHash == "" || tx.TxHash == txHash) {
			out = append(out, tx)
		}
	}
	writeJSON(w, http.StatusOK, paginate(out, page))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx := s.data.transaction(merchantIDFrom(r), pathVar(r, "hash"))
	if tx == nil {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRefreshTransaction(w http.ResponseWriter, r *http.Request) {
	txHash := pathVar(r, "hash")
	s.mu.RLock()
	tx := s.data.transaction(merchantIDFrom(r), txHash)
	var chain merchantapi.Chain
	if tx != nil {
		chain = tx.Chain
	}
	s.mu.RUnlock()
	if tx == nil {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}

	status, err := s.chain.TransactionStatus(chain, txHash)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to refresh transaction status: "+err.Error())
		return
	}

	s.mu.Lock()
	applyChainStatus(tx, status)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, merchantapi.StatusResult{
		TxHash:  txHash,
		Status:  string(status.Status),
		Message: "Transaction status updated successfully",
	})
}

// handleCheckPending re-reads every pending transaction of the merchant from chain
func (s *Server) handleCheckPending(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var pending []*merchantapi.Transaction
	for _, tx := range s.data.merchantTransactions(merchantIDFrom(r)) {
		if tx.Status == merchantapi.TransactionPending {
			pending = append(pending, tx)
		}
	}
	s.mu.RUnlock()

	updated := 0
	for _, tx := range pending {
		status, err := s.chain.TransactionStatus(tx.Chain, tx.TxHash)
		if err != nil || status.Status == merchantapi.TransactionPending {
			continue
		}
		s.mu.Lock()
		applyChainStatus(tx, status)
		s.mu.Unlock()
		updated++
	}

	writeJSON(w, http.StatusOK, merchantapi.PendingCheck{
		Message: fmt.Sprintf("Checked %d pending transactions", len(pending)),
		Updated: updated,
	})
}

func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r.URL.Query())
	if !ok {
		return
	}
	end := s.now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := merchantapi.TransactionStats{Breakdown: newBreakdown(days, start, end)}
	for _, tx := range s.data.merchantTransactions(merchantIDFrom(r)) {
		if tx.CreatedAt.Before(start) {
			continue
		}
		tally(&stats.Breakdown, string(tx.Status), tx.Chain)
		if tx.Status == merchantapi.TransactionConfirmed {
			stats.TokenVolumes[string(tx.Token)] += tx.Amount.InexactFloat64()
		}
		stats.TotalTransactions++
	}
	writeJSON(w, http.StatusOK, stats)
}

// applyChainStatus must be called with mu held
func applyChainStatus(tx *merchantapi.Transaction, status ChainTransaction) {
	tx.Status = status.Status
	tx.BlockNumber = status.BlockNumber
	tx.GasUsed = status.GasUsed
	tx.GasPrice = status.GasPrice
	if status.Status == merchantapi.TransactionConfirmed {
		tx.ConfirmationCount = 1
	}
}

func newBreakdown(days int, start, end time.Time) merchantapi.Breakdown {
	return merchantapi.Breakdown{
		PeriodDays:      days,
		StatusBreakdown: map[string]int{},
		TokenVolumes:    map[string]float64{},
		ChainBreakdown:  map[string]int{},
		DateRange: merchantapi.DateRange{
			Start: merchantapi.Timestamp{Time: start},
			End:   merchantapi.Timestamp{Time: end},
		},
	}
}

func tally(b *merchantapi.Breakdown, status string, chain merchantapi.Chain) {
	b.StatusBreakdown[status]++
	b.ChainBreakdown[string(chain)]++
}
