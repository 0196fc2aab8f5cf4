package models

type SignalType string

const (
	SignalSubscriptions     SignalType = "subscriptions"
	SignalCreditUtilization SignalType = "credit_utilization"
	SignalSavingsBehavior   SignalType = "savings_behavior"
	SignalIncomeStability   SignalType = "income_stability"
)

var SignalTypes = []SignalType{
	SignalSubscriptions,
	SignalCreditUtilization,
	SignalSavingsBehavior,
	SignalIncomeStability,
}

type MerchantDetail struct {
	Frequency         string  `json:"frequency"`
	AvgAmount         float64 `json:"avg_amount"`
	MonthlyEquivalent float64 `json:"monthly_equivalent"`
	Count             int     `json:"count"`
}

type SubscriptionSignal struct {
	RecurringMerchants []string                  `json:"recurring_merchants"`
	MonthlyRecurring   float64                   `json:"monthly_recurring"`
	SubscriptionShare  float64                   `json:"subscription_share"`
	TotalOutflow       float64                   `json:"total_outflow"`
	MerchantDetails    map[string]MerchantDetail `json:"merchant_details"`
}

type CreditAccountUtilization struct {
	AccountID          string  `json:"account_id"`
	Balance            float64 `json:"balance"`
	Limit              float64 `json:"limit"`
	Utilization        float64 `json:"utilization"`
	Tier               string  `json:"tier"`
	LastPayment        float64 `json:"last_payment"`
	EstimatedMinimum   float64 `json:"estimated_minimum"`
	MinimumPaymentOnly bool    `json:"minimum_payment_only"`
	InterestCharged    float64 `json:"interest_charged"`
}

type CreditSignal struct {
	Accounts           []CreditAccountUtilization `json:"accounts"`
	TotalBalance       float64                    `json:"total_balance"`
	TotalLimit         float64                    `json:"total_limit"`
	OverallUtilization float64                    `json:"overall_utilization"`
	UtilizationTier    string                     `json:"utilization_tier"`
	InterestCharged    float64                    `json:"interest_charged"`
	MinimumPaymentOnly bool                       `json:"minimum_payment_only"`
	IsOverdue          bool                       `json:"is_overdue"`
}

// EstimatedPriorBalance is current savings minus window net inflow, not an
// observed historical balance.
type SavingsSignal struct {
	SavingsAccounts       int     `json:"savings_accounts"`
	TotalSavings          float64 `json:"total_savings"`
	NetInflow             float64 `json:"net_inflow"`
	EstimatedPriorBalance float64 `json:"estimated_prior_balance"`
	GrowthRate            float64 `json:"growth_rate"`
	AvgMonthlyExpenses    float64 `json:"avg_monthly_expenses"`
	EmergencyFundMonths   float64 `json:"emergency_fund_months"`
	CoverageTier          string  `json:"coverage_tier"`
}

type IncomeSignal struct {
	Frequency          string  `json:"frequency"`
	MedianPayGap       float64 `json:"median_pay_gap"`
	IrregularFrequency bool    `json:"irregular_frequency"`
	PayrollCount       int     `json:"payroll_count"`
	TotalIncome        float64 `json:"total_income"`
	IncomeVariability  float64 `json:"income_variability"`
	AvgMonthlyIncome   float64 `json:"avg_monthly_income"`
	AvgMonthlyExpenses float64 `json:"avg_monthly_expenses"`
	CashFlowBuffer     float64 `json:"cash_flow_buffer"`
}
