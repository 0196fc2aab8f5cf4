package models

type Account struct {
	AccountID string  `json:"account_id"`
	UserID    string  `json:"user_id"`
	Type      string  `json:"type"`
	Subtype   string  `json:"subtype"`
	Balance   float64 `json:"balance"`
	Limit     float64 `json:"limit"` // zero unless Type is credit
}
