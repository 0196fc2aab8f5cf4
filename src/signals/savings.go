package signals

import (
	"context"
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/models"
)

const (
	CoverageExcellent = "excellent"
	CoverageGood      = "good"
	CoverageBuilding  = "building"
	CoverageLow       = "low"
)

func SavingsBehavior(ctx context.Context, src Source, userID string, window models.Window, now time.Time) (models.SavingsSignal, error) {
	savings, err := src.Accounts(ctx, db.AccountFilter{UserID: userID, Kind: db.AccountsSavings})
	if err != nil {
		return models.SavingsSignal{}, err
	}
	if len(savings) == 0 {
		return DetectSavingsBehavior(nil, nil, nil, window.Days()), nil
	}
	since := window.Cutoff(now)
	savingsTxns, err := src.Transactions(ctx, db.TransactionFilter{
		UserID:     userID,
		AccountIDs: accountIDs(savings),
		Since:      since,
	})
	if err != nil {
		return models.SavingsSignal{}, err
	}

	checking, err := src.Accounts(ctx, db.AccountFilter{UserID: userID, Kind: db.AccountsChecking})
	if err != nil {
		return models.SavingsSignal{}, err
	}
	var checkingOutflows []models.Transaction
	if len(checking) > 0 {
		checkingOutflows, err = src.Transactions(ctx, db.TransactionFilter{
			UserID:     userID,
			AccountIDs: accountIDs(checking),
			Since:      since,
			Sign:       db.Outflow,
		})
		if err != nil {
			return models.SavingsSignal{}, err
		}
	}
	return DetectSavingsBehavior(savings, savingsTxns, checkingOutflows, window.Days()), nil
}

func CoverageTier(months float64) string {
	switch {
	case months >= 6:
		return CoverageExcellent
	case months >= 3:
		return CoverageGood
	case months > 0:
		return CoverageBuilding
	}
	return CoverageLow
}

// DetectSavingsBehavior measures growth of the savings accounts over the
// window and how many months of checking outflows they cover.
//
// The balance at the start of the window is estimated as current balance
// minus net inflow; no balance history is consulted. Without a positive
// estimate growth is reported as 100 when there are savings, otherwise 0.
func DetectSavingsBehavior(savings []models.Account, savingsTxns, checkingOutflows []models.Transaction, windowDays int) models.SavingsSignal {
	result := models.SavingsSignal{CoverageTier: CoverageLow}
	if len(savings) == 0 {
		return result
	}

	for _, a := range savings {
		result.TotalSavings += a.Balance
	}
	for _, t := range savingsTxns {
		if t.Date.IsZero() {
			continue
		}
		result.NetInflow += t.Amount
	}

	prior := result.TotalSavings - result.NetInflow
	switch {
	case prior > 0:
		result.GrowthRate = (result.TotalSavings - prior) / prior * 100
	case result.TotalSavings > 0:
		result.GrowthRate = 100
	}

	expenses := monthlyAverage(outflowTotal(checkingOutflows), windowDays)
	months := ratio(result.TotalSavings, expenses)

	result.SavingsAccounts = len(savings)
	result.TotalSavings = round2(result.TotalSavings)
	result.NetInflow = round2(result.NetInflow)
	result.EstimatedPriorBalance = round2(prior)
	result.GrowthRate = round2(result.GrowthRate)
	result.AvgMonthlyExpenses = round2(expenses)
	result.EmergencyFundMonths = round2(months)
	result.CoverageTier = CoverageTier(months)
	return result
}
