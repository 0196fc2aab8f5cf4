package signals

import (
	"context"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/models"
)

var refNow = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func daysAgo(n int) time.Time {
	return refNow.Truncate(24*time.Hour).AddDate(0, 0, -n)
}

func charge(account, merchant string, amount float64, date time.Time) models.Transaction {
	return models.Transaction{
		UserID:       "u1",
		AccountID:    account,
		MerchantName: strPtr(merchant),
		Amount:       amount,
		Date:         date,
		Category:     []string{"Uncategorized"},
	}
}

// series returns count charges spaced every days, most recent first at offset.
func series(account, merchant string, amount float64, count, every, offset int) []models.Transaction {
	var out []models.Transaction
	for i := 0; i < count; i++ {
		out = append(out, charge(account, merchant, amount, daysAgo(offset+i*every)))
	}
	return out
}

type fakeSource struct {
	accounts []models.Account
	txns     []models.Transaction
	err      error
}

func (f *fakeSource) Accounts(_ context.Context, filter db.AccountFilter) ([]models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Account
	for _, a := range f.accounts {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) Transactions(_ context.Context, filter db.TransactionFilter) ([]models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Transaction
	for _, t := range f.txns {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}
