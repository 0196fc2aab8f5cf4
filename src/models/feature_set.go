package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeatureSet holds the signals computed for one user and window. A nil field
// means that signal type has not been computed or stored.
type FeatureSet struct {
	UserID            string              `json:"user_id"`
	Window            Window              `json:"time_window"`
	Subscriptions     *SubscriptionSignal `json:"subscriptions,omitempty"`
	CreditUtilization *CreditSignal       `json:"credit_utilization,omitempty"`
	SavingsBehavior   *SavingsSignal      `json:"savings_behavior,omitempty"`
	IncomeStability   *IncomeSignal       `json:"income_stability,omitempty"`
}

// StoredFeature is one computed_features row.
type StoredFeature struct {
	UserID     string          `json:"user_id"`
	Window     Window          `json:"time_window"`
	SignalType SignalType      `json:"signal_type"`
	SignalData json.RawMessage `json:"signal_data"`
	ComputedAt time.Time       `json:"computed_at"`
}

func (fs FeatureSet) Empty() bool {
	return fs.Subscriptions == nil && fs.CreditUtilization == nil &&
		fs.SavingsBehavior == nil && fs.IncomeStability == nil
}

func (fs FeatureSet) Complete() bool {
	return fs.Subscriptions != nil && fs.CreditUtilization != nil &&
		fs.SavingsBehavior != nil && fs.IncomeStability != nil
}

// Rows serializes every present signal into its storage row.
func (fs FeatureSet) Rows(computedAt time.Time) ([]StoredFeature, error) {
	var rows []StoredFeature
	for _, st := range SignalTypes {
		v := fs.signal(st)
		if v == nil {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", st, err)
		}
		rows = append(rows, StoredFeature{
			UserID:     fs.UserID,
			Window:     fs.Window,
			SignalType: st,
			SignalData: data,
			ComputedAt: computedAt,
		})
	}
	return rows, nil
}

// Apply decodes a stored row into the matching field. Unknown signal types are ignored.
func (fs *FeatureSet) Apply(row StoredFeature) error {
	var err error
	switch row.SignalType {
	case SignalSubscriptions:
		var s SubscriptionSignal
		if err = json.Unmarshal(row.SignalData, &s); err == nil {
			fs.Subscriptions = &s
		}
	case SignalCreditUtilization:
		var s CreditSignal
		if err = json.Unmarshal(row.SignalData, &s); err == nil {
			fs.CreditUtilization = &s
		}
	case SignalSavingsBehavior:
		var s SavingsSignal
		if err = json.Unmarshal(row.SignalData, &s); err == nil {
			fs.SavingsBehavior = &s
		}
	case SignalIncomeStability:
		var s IncomeSignal
		if err = json.Unmarshal(row.SignalData, &s); err == nil {
			fs.IncomeStability = &s
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", row.SignalType, err)
	}
	return nil
}

func (fs FeatureSet) signal(st SignalType) any {
	switch st {
	case SignalSubscriptions:
		if fs.Subscriptions != nil {
			return fs.Subscriptions
		}
	case SignalCreditUtilization:
		if fs.CreditUtilization != nil {
			return fs.CreditUtilization
		}
	case SignalSavingsBehavior:
		if fs.SavingsBehavior != nil {
			return fs.SavingsBehavior
		}
	case SignalIncomeStability:
		if fs.IncomeStability != nil {
			return fs.IncomeStability
		}
	}
	return nil
}
