package signals

import (
	"context"
	"sort"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/models"

	"gonum.org/v1/gonum/stat"
)

const payrollThreshold = 500.0

var payrollKeywords = []string{"payroll", "employer", "salary", "income"}

func IncomeStability(ctx context.Context, src Source, userID string, window models.Window, now time.Time) (models.IncomeSignal, error) {
	checking, err := src.Accounts(ctx, db.AccountFilter{UserID: userID, Kind: db.AccountsChecking})
	if err != nil {
		return models.IncomeSignal{}, err
	}
	if len(checking) == 0 {
		return DetectIncomeStability(nil, nil, window.Days()), nil
	}
	account := checking[0]
	txns, err := src.Transactions(ctx, db.TransactionFilter{
		UserID:     userID,
		AccountIDs: []string{account.AccountID},
		Since:      window.Cutoff(now),
	})
	if err != nil {
		return models.IncomeSignal{}, err
	}
	return DetectIncomeStability(&account, txns, window.Days()), nil
}

// PayFrequency classifies a median gap between paychecks in days.
func PayFrequency(medianGap float64) string {
	switch {
	case medianGap >= 6 && medianGap <= 8:
		return FrequencyWeekly
	case medianGap >= 13 && medianGap <= 15:
		return FrequencyBiweekly
	case medianGap >= 28 && medianGap <= 31:
		return FrequencyMonthly
	}
	return FrequencyIrregular
}

// DetectIncomeStability finds payroll deposits on the checking account:
// inflows above $500 or whose merchant or category names pay. Fewer than two
// dated deposits yields the unknown/irregular result.
func DetectIncomeStability(checking *models.Account, txns []models.Transaction, windowDays int) models.IncomeSignal {
	result := models.IncomeSignal{
		Frequency:          FrequencyUnknown,
		IrregularFrequency: true,
	}
	if checking == nil {
		return result
	}

	var payroll []models.Transaction
	var outflows []models.Transaction
	for _, t := range txns {
		if t.AccountID != checking.AccountID || t.Date.IsZero() {
			continue
		}
		if t.Amount < 0 {
			outflows = append(outflows, t)
			continue
		}
		if t.Amount > 0 && (t.Amount > payrollThreshold || matchesAny(t, payrollKeywords...)) {
			payroll = append(payroll, t)
		}
	}
	result.PayrollCount = len(payroll)
	if len(payroll) < 2 {
		return result
	}
	sort.SliceStable(payroll, func(i, j int) bool { return payroll[i].Date.Before(payroll[j].Date) })

	gaps := make([]float64, 0, len(payroll)-1)
	amounts := make([]float64, len(payroll))
	var total float64
	for i, p := range payroll {
		amounts[i] = p.Amount
		total += p.Amount
		if i > 0 {
			gaps = append(gaps, p.Date.Sub(payroll[i-1].Date).Hours()/24)
		}
	}

	result.MedianPayGap = round2(median(gaps))
	result.Frequency = PayFrequency(result.MedianPayGap)
	result.IrregularFrequency = result.Frequency == FrequencyIrregular

	mean, std := stat.MeanStdDev(amounts, nil)
	if mean > 0 {
		result.IncomeVariability = round2(std / mean * 100)
	}

	expenses := monthlyAverage(outflowTotal(outflows), windowDays)
	result.TotalIncome = round2(total)
	result.AvgMonthlyIncome = round2(monthlyAverage(total, windowDays))
	result.AvgMonthlyExpenses = round2(expenses)
	result.CashFlowBuffer = round2(ratio(checking.Balance, expenses))
	return result
}

// median averages the two middle values of an even-length sample.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
