package signals

import (
	"context"
	"math"
	"sort"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/models"

	"gonum.org/v1/gonum/stat"
)

const (
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyIrregular = "irregular"
	FrequencyUnknown   = "unknown"

	minRecurringCount = 3
	weeksPerMonth     = 4.33
)

// Subscriptions fetches the user's outflows in the window and detects recurring merchants.
func Subscriptions(ctx context.Context, src Source, userID string, window models.Window, now time.Time) (models.SubscriptionSignal, error) {
	txns, err := src.Transactions(ctx, db.TransactionFilter{
		UserID: userID,
		Since:  window.Cutoff(now),
		Sign:   db.Outflow,
	})
	if err != nil {
		return models.SubscriptionSignal{}, err
	}
	return DetectSubscriptions(txns), nil
}

// DetectSubscriptions groups outflows by merchant and classifies merchants
// with at least three dated charges by their mean interval: 25-34 days is
// monthly, 6-8 days is weekly.
func DetectSubscriptions(txns []models.Transaction) models.SubscriptionSignal {
	result := models.SubscriptionSignal{
		RecurringMerchants: []string{},
		MerchantDetails:    map[string]models.MerchantDetail{},
	}

	byMerchant := map[string][]models.Transaction{}
	for _, t := range txns {
		if t.Amount >= 0 || t.Date.IsZero() {
			continue
		}
		result.TotalOutflow -= t.Amount
		byMerchant[t.Merchant()] = append(byMerchant[t.Merchant()], t)
	}

	merchants := make([]string, 0, len(byMerchant))
	for m := range byMerchant {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)

	for _, merchant := range merchants {
		charges := byMerchant[merchant]
		if len(charges) < minRecurringCount {
			continue
		}
		sort.SliceStable(charges, func(i, j int) bool { return charges[i].Date.Before(charges[j].Date) })

		intervals := make([]float64, 0, len(charges)-1)
		for i := 1; i < len(charges); i++ {
			intervals = append(intervals, charges[i].Date.Sub(charges[i-1].Date).Hours()/24)
		}
		amounts := make([]float64, len(charges))
		for i, c := range charges {
			amounts[i] = math.Abs(c.Amount)
		}

		meanInterval := stat.Mean(intervals, nil)
		meanAmount := stat.Mean(amounts, nil)

		var frequency string
		var monthly float64
		switch {
		case meanInterval >= 25 && meanInterval <= 34:
			frequency = FrequencyMonthly
			monthly = meanAmount
		case meanInterval >= 6 && meanInterval <= 8:
			frequency = FrequencyWeekly
			monthly = meanAmount * weeksPerMonth
		default:
			continue
		}

		result.RecurringMerchants = append(result.RecurringMerchants, merchant)
		result.MonthlyRecurring += monthly
		result.MerchantDetails[merchant] = models.MerchantDetail{
			Frequency:         frequency,
			AvgAmount:         round2(meanAmount),
			MonthlyEquivalent: round2(monthly),
			Count:             len(charges),
		}
	}

	result.SubscriptionShare = round2(ratio(result.MonthlyRecurring, result.TotalOutflow) * 100)
	result.MonthlyRecurring = round2(result.MonthlyRecurring)
	result.TotalOutflow = round2(result.TotalOutflow)
	return result
}
