package models

import "time"

// Transaction amounts are signed: negative is money leaving the account.
// Date is the calendar day; a zero Date means the stored value was missing or
// could not be parsed.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	MerchantName  *string   `json:"merchant_name"`
	Category      []string  `json:"category"`
	Pending       bool      `json:"pending"`
}

func (t Transaction) Merchant() string {
	if t.MerchantName == nil || *t.MerchantName == "" {
		return "Unknown"
	}
	return *t.MerchantName
}
