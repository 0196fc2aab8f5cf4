// Package signals holds the four behavioural detectors. Each Detect function
// is a pure computation over rows already fetched for one user and window;
// the matching Compute function performs the fetch through a Source.
package signals

import (
	"context"
	"strings"

	"budgee-insights/src/db"
	"budgee-insights/src/models"

	"github.com/shopspring/decimal"
)

// Source is the read side of a db.Conn.
type Source interface {
	Accounts(ctx context.Context, filter db.AccountFilter) ([]models.Account, error)
	Transactions(ctx context.Context, filter db.TransactionFilter) ([]models.Transaction, error)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// matchesAny reports whether the merchant name or any category level contains
// one of the lower-case keywords.
func matchesAny(t models.Transaction, keywords ...string) bool {
	text := strings.ToLower(t.Merchant() + " " + strings.Join(t.Category, " "))
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// monthlyAverage spreads total over the window in 30-day months.
func monthlyAverage(total float64, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return total / (float64(windowDays) / 30)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func accountIDs(accounts []models.Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.AccountID
	}
	return ids
}

// outflowTotal sums the absolute value of dated negative amounts.
func outflowTotal(txns []models.Transaction) float64 {
	var total float64
	for _, t := range txns {
		if t.Amount < 0 && !t.Date.IsZero() {
			total -= t.Amount
		}
	}
	return total
}
