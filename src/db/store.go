package db

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"budgee-insights/src/models"
)

var ErrNotFound = errors.New("not found")

// Store is the shared handle to the accounts/transactions source and the
// feature/persona sink. Each worker acquires its own Conn.
type Store interface {
	Acquire(ctx context.Context) (Conn, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	Migrate(ctx context.Context) error
	Close()
}

// Conn is a single connection scoped to one worker. It must be released.
type Conn interface {
	Accounts(ctx context.Context, filter AccountFilter) ([]models.Account, error)
	Transactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)

	// ReplaceFeatureSet upserts every present signal of fs in one transaction.
	ReplaceFeatureSet(ctx context.Context, fs models.FeatureSet, computedAt time.Time) error
	ReplaceFeature(ctx context.Context, row models.StoredFeature) error
	// FeatureSet returns the stored signals and whether any row exists.
	FeatureSet(ctx context.Context, userID string, window models.Window) (models.FeatureSet, bool, error)

	ReplacePersona(ctx context.Context, pa models.PersonaAssignment) error
	Persona(ctx context.Context, userID string, window models.Window) (models.PersonaAssignment, error)

	Release()
}

type AccountKind string

const (
	AccountsAll      AccountKind = ""
	AccountsCredit   AccountKind = "credit"
	AccountsSavings  AccountKind = "savings"
	AccountsChecking AccountKind = "checking"
)

type AccountFilter struct {
	UserID string
	Kind   AccountKind
}

var savingsSubtypes = []string{"savings", "money market", "money_market", "hsa"}

// Match reports whether a satisfies the filter. The SQL backends express the
// same predicate in their WHERE clauses.
func (f AccountFilter) Match(a models.Account) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	subtype := strings.ToLower(a.Subtype)
	switch f.Kind {
	case AccountsCredit:
		return a.Type == "credit" && a.Limit > 0
	case AccountsSavings:
		return slices.Contains(savingsSubtypes, subtype) ||
			(a.Type == "depository" && strings.Contains(subtype, "savings"))
	case AccountsChecking:
		return subtype == "checking"
	}
	return true
}

type Sign int

const (
	AnySign Sign = iota
	Outflow
	Inflow
)

// TransactionFilter selects transactions on or after Since. An empty
// AccountIDs places no restriction on accounts.
type TransactionFilter struct {
	UserID     string
	AccountIDs []string
	Since      time.Time
	Sign       Sign
}

func (f TransactionFilter) Match(t models.Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, t.AccountID) {
		return false
	}
	if !f.Since.IsZero() && (t.Date.IsZero() || t.Date.Before(f.Since)) {
		return false
	}
	switch f.Sign {
	case Outflow:
		return t.Amount < 0
	case Inflow:
		return t.Amount > 0
	}
	return true
}
