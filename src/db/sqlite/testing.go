package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"testing"
	"time"

	"budgee-insights/src/models"
)

// NewTestStore creates a migrated database in a temporary file that is
// removed when the test ends.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	tmp, err := os.CreateTemp("", "test_insights_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	store, err := Open(path)
	if err != nil {
		_ = os.Remove(path)
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		_ = os.Remove(path)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(path + suffix)
		}
	})
	return store
}

// SeedAccounts inserts accounts; a zero Limit is stored as NULL.
func SeedAccounts(t *testing.T, s *Store, accounts ...models.Account) {
	t.Helper()
	for _, a := range accounts {
		var limit any
		if a.Limit > 0 {
			limit = strconv.FormatFloat(a.Limit, 'f', -1, 64)
		}
		_, err := s.db.Exec(`
			INSERT INTO accounts (account_id, user_id, type, subtype, balance, credit_limit)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.AccountID, a.UserID, a.Type, a.Subtype, strconv.FormatFloat(a.Balance, 'f', -1, 64), limit)
		if err != nil {
			t.Fatalf("Failed to seed account %s: %v", a.AccountID, err)
		}
	}
}

// SeedTransactions inserts transactions; the first category entry is stored
// as a JSON list when more than one is given.
func SeedTransactions(t *testing.T, s *Store, txns ...models.Transaction) {
	t.Helper()
	for i, txn := range txns {
		id := txn.TransactionID
		if id == "" {
			id = "txn-" + strconv.Itoa(i) + "-" + txn.AccountID + "-" + txn.Date.Format(time.DateOnly)
		}
		var date any
		if !txn.Date.IsZero() {
			date = txn.Date.Format(time.DateOnly)
		}
		var cat any
		switch len(txn.Category) {
		case 0:
		case 1:
			cat = txn.Category[0]
		default:
			cat = jsonList(txn.Category)
		}
		_, err := s.db.Exec(`
			INSERT INTO transactions (transaction_id, account_id, user_id, date, amount, merchant_name, category, pending)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, txn.AccountID, txn.UserID, date, strconv.FormatFloat(txn.Amount, 'f', -1, 64), txn.MerchantName, cat, txn.Pending)
		if err != nil {
			t.Fatalf("Failed to seed transaction %s: %v", id, err)
		}
	}
}

// SeedRawDate inserts one transaction whose date column holds the given text
// verbatim, for rows an upstream sync wrote without a valid date.
func SeedRawDate(t *testing.T, s *Store, id, userID, accountID, date string, amount float64, merchant string) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO transactions (transaction_id, account_id, user_id, date, amount, merchant_name, category, pending)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 0)`,
		id, accountID, userID, date, strconv.FormatFloat(amount, 'f', -1, 64), merchant)
	if err != nil {
		t.Fatalf("Failed to seed transaction %s: %v", id, err)
	}
}

// CountFeatureRows returns the number of computed_features rows for a key.
func CountFeatureRows(t *testing.T, s *Store, userID string, window models.Window) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM computed_features WHERE user_id = ? AND time_window = ?`,
		userID, string(window)).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count feature rows: %v", err)
	}
	return n
}

func CountPersonaRows(t *testing.T, s *Store, userID string, window models.Window) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM persona_assignments WHERE user_id = ? AND time_window = ?`,
		userID, string(window)).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count persona rows: %v", err)
	}
	return n
}

func jsonList(list []string) string {
	b, _ := json.Marshal(list)
	return string(b)
}
