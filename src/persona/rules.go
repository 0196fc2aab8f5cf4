// Package persona assigns a single persona to a feature set by walking an
// ordered rule chain; the first rule that matches wins.
package persona

import (
	"fmt"

	"budgee-insights/src/models"
)

// Rule returns the criteria it found satisfied, or nil when it does not match.
type Rule struct {
	Persona models.Persona
	Match   func(fs models.FeatureSet) []string
}

// Rules is evaluated in order. General wellness is the fallback and has no rule.
var Rules = []Rule{
	{models.PersonaHighUtilization, highUtilization},
	{models.PersonaVariableIncome, variableIncome},
	{models.PersonaSubscriptionHeavy, subscriptionHeavy},
	{models.PersonaSavingsBuilder, savingsBuilder},
}

// Classify returns the first matching persona and its criteria. An empty
// feature set, or one that matches nothing, is general wellness with no criteria.
func Classify(fs models.FeatureSet) (models.Persona, []string) {
	if fs.Empty() {
		return models.PersonaGeneralWellness, []string{}
	}
	for _, r := range Rules {
		if criteria := r.Match(fs); len(criteria) > 0 {
			return r.Persona, criteria
		}
	}
	return models.PersonaGeneralWellness, []string{}
}

func highUtilization(fs models.FeatureSet) []string {
	c := fs.CreditUtilization
	if c == nil {
		return nil
	}
	var met []string
	if c.OverallUtilization >= 50 {
		met = append(met, fmt.Sprintf("overall credit utilization %.1f%% >= 50%%", c.OverallUtilization))
	}
	for _, a := range c.Accounts {
		if a.Utilization >= 50 {
			met = append(met, fmt.Sprintf("account %s utilization %.1f%% >= 50%%", a.AccountID, a.Utilization))
		}
	}
	if c.InterestCharged > 0 {
		met = append(met, fmt.Sprintf("interest charged $%.2f > $0", c.InterestCharged))
	}
	if c.MinimumPaymentOnly {
		met = append(met, "making minimum payments only")
	}
	if c.IsOverdue {
		met = append(met, "credit account flagged overdue")
	}
	return met
}

func variableIncome(fs models.FeatureSet) []string {
	in := fs.IncomeStability
	if in == nil || in.CashFlowBuffer >= 1.0 {
		return nil
	}
	var met []string
	if in.MedianPayGap > 45 {
		met = append(met, fmt.Sprintf("median pay gap %.0f days > 45", in.MedianPayGap))
	}
	if in.IrregularFrequency {
		met = append(met, "irregular pay frequency")
	}
	if len(met) == 0 {
		return nil
	}
	return append(met, fmt.Sprintf("cash-flow buffer %.2f months < 1.0", in.CashFlowBuffer))
}

func subscriptionHeavy(fs models.FeatureSet) []string {
	s := fs.Subscriptions
	if s == nil || len(s.RecurringMerchants) < 3 {
		return nil
	}
	var met []string
	if s.MonthlyRecurring >= 50 {
		met = append(met, fmt.Sprintf("monthly recurring spend $%.2f >= $50", s.MonthlyRecurring))
	}
	if s.SubscriptionShare >= 10 {
		met = append(met, fmt.Sprintf("subscription share %.1f%% >= 10%%", s.SubscriptionShare))
	}
	if len(met) == 0 {
		return nil
	}
	return append([]string{fmt.Sprintf("%d recurring merchants >= 3", len(s.RecurringMerchants))}, met...)
}

func savingsBuilder(fs models.FeatureSet) []string {
	s := fs.SavingsBehavior
	if s == nil {
		return nil
	}
	var met []string
	if s.GrowthRate >= 2 {
		met = append(met, fmt.Sprintf("savings growth %.1f%% >= 2%%", s.GrowthRate))
	}
	if s.NetInflow >= 200 {
		met = append(met, fmt.Sprintf("net savings inflow $%.2f >= $200", s.NetInflow))
	}
	if len(met) == 0 {
		return nil
	}
	if c := fs.CreditUtilization; c != nil {
		if c.OverallUtilization >= 30 {
			return nil
		}
		for _, a := range c.Accounts {
			if a.Utilization >= 30 {
				return nil
			}
		}
	}
	return append(met, "credit utilization below 30% on every account")
}
