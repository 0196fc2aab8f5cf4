package signals

import (
	"context"
	"math"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/models"
)

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"

	minimumPaymentRate      = 0.02
	minimumPaymentFloor     = 25.0
	minimumPaymentTolerance = 5.0
	overdueUtilization      = 90.0
)

func CreditUtilization(ctx context.Context, src Source, userID string, window models.Window, now time.Time) (models.CreditSignal, error) {
	accounts, err := src.Accounts(ctx, db.AccountFilter{UserID: userID, Kind: db.AccountsCredit})
	if err != nil {
		return models.CreditSignal{}, err
	}
	if len(accounts) == 0 {
		return DetectCreditUtilization(nil, nil), nil
	}
	txns, err := src.Transactions(ctx, db.TransactionFilter{
		UserID:     userID,
		AccountIDs: accountIDs(accounts),
		Since:      window.Cutoff(now),
	})
	if err != nil {
		return models.CreditSignal{}, err
	}
	return DetectCreditUtilization(accounts, txns), nil
}

func UtilizationTier(utilization float64) string {
	switch {
	case utilization >= 50:
		return TierHigh
	case utilization >= 30:
		return TierMedium
	}
	return TierLow
}

// DetectCreditUtilization expects credit accounts with a positive limit and
// the window's transactions on those accounts. Payments are inflows; interest
// is any outflow whose merchant or category mentions interest or a fee.
func DetectCreditUtilization(accounts []models.Account, txns []models.Transaction) models.CreditSignal {
	result := models.CreditSignal{
		Accounts:        []models.CreditAccountUtilization{},
		UtilizationTier: TierLow,
	}

	for _, a := range accounts {
		if a.Limit <= 0 {
			continue
		}
		u := models.CreditAccountUtilization{
			AccountID:        a.AccountID,
			Balance:          a.Balance,
			Limit:            a.Limit,
			Utilization:      round2(a.Balance / a.Limit * 100),
			EstimatedMinimum: round2(math.Max(a.Balance*minimumPaymentRate, minimumPaymentFloor)),
		}
		u.Tier = UtilizationTier(u.Utilization)

		var lastPayment time.Time
		hasPayment := false
		for _, t := range txns {
			if t.AccountID != a.AccountID || t.Date.IsZero() {
				continue
			}
			switch {
			case t.Amount > 0:
				if !hasPayment || !t.Date.Before(lastPayment) {
					lastPayment = t.Date
					u.LastPayment = t.Amount
					hasPayment = true
				}
			case t.Amount < 0 && matchesAny(t, "interest", "fee"):
				u.InterestCharged -= t.Amount
			}
		}
		u.InterestCharged = round2(u.InterestCharged)
		u.MinimumPaymentOnly = hasPayment && math.Abs(u.LastPayment-u.EstimatedMinimum) <= minimumPaymentTolerance

		result.Accounts = append(result.Accounts, u)
		result.TotalBalance += a.Balance
		result.TotalLimit += a.Limit
		result.InterestCharged += u.InterestCharged
		result.MinimumPaymentOnly = result.MinimumPaymentOnly || u.MinimumPaymentOnly
	}

	result.OverallUtilization = round2(ratio(result.TotalBalance, result.TotalLimit) * 100)
	result.UtilizationTier = UtilizationTier(result.OverallUtilization)
	result.TotalBalance = round2(result.TotalBalance)
	result.TotalLimit = round2(result.TotalLimit)
	result.InterestCharged = round2(result.InterestCharged)
	result.IsOverdue = result.OverallUtilization >= overdueUtilization || result.InterestCharged > 0
	return result
}
