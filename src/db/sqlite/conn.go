package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"budgee-insights/src/category"
	"budgee-insights/src/db"
	"budgee-insights/src/models"
)

type conn struct {
	c *sql.Conn
}

func (c *conn) Release() {
	_ = c.c.Close()
}

func (c *conn) Accounts(ctx context.Context, filter db.AccountFilter) ([]models.Account, error) {
	query := `
		SELECT account_id, user_id, type, subtype, CAST(balance AS TEXT), CAST(COALESCE(credit_limit, 0) AS TEXT)
		FROM accounts
		WHERE user_id = ?
	`
	switch filter.Kind {
	case db.AccountsCredit:
		query += ` AND type = 'credit' AND CAST(credit_limit AS REAL) > 0`
	case db.AccountsSavings:
		query += ` AND (LOWER(subtype) IN ('savings', 'money market', 'money_market', 'hsa')
			OR (type = 'depository' AND LOWER(subtype) LIKE '%savings%'))`
	case db.AccountsChecking:
		query += ` AND LOWER(subtype) = 'checking'`
	}
	query += ` ORDER BY account_id`

	rows, err := c.c.QueryContext(ctx, query, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var balance, limit string
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Type, &a.Subtype, &balance, &limit); err != nil {
			return nil, err
		}
		if a.Balance, err = db.ParseAmount(balance); err != nil {
			return nil, err
		}
		if a.Limit, err = db.ParseAmount(limit); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (c *conn) Transactions(ctx context.Context, filter db.TransactionFilter) ([]models.Transaction, error) {
	var where []string
	var args []any

	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, "account_id IN (?"+strings.Repeat(", ?", len(filter.AccountIDs)-1)+")")
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	if !filter.Since.IsZero() {
		where = append(where, "date(date) >= ?")
		args = append(args, filter.Since.Format(time.DateOnly))
	}
	switch filter.Sign {
	case db.Outflow:
		where = append(where, "CAST(amount AS REAL) < 0")
	case db.Inflow:
		where = append(where, "CAST(amount AS REAL) > 0")
	}

	query := `
		SELECT transaction_id, account_id, user_id, date, CAST(amount AS TEXT), merchant_name, category, pending
		FROM transactions
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, transaction_id"

	rows, err := c.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date, merchant, cat sql.NullString
		var amount string
		if err := rows.Scan(&t.TransactionID, &t.AccountID, &t.UserID, &date, &amount, &merchant, &cat, &t.Pending); err != nil {
			return nil, err
		}
		t.Date = db.ParseDate(date.String)
		if t.Amount, err = db.ParseAmount(amount); err != nil {
			return nil, err
		}
		if merchant.Valid {
			t.MerchantName = &merchant.String
		}
		if cat.Valid {
			t.Category = category.Normalize(cat.String)
		} else {
			t.Category = category.Normalize(nil)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

const upsertFeature = `
	INSERT INTO computed_features (user_id, time_window, signal_type, signal_data, computed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (user_id, signal_type, time_window) DO UPDATE SET
		signal_data = excluded.signal_data,
		computed_at = excluded.computed_at
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execUpsert(ctx context.Context, e execer, row models.StoredFeature) error {
	_, err := e.ExecContext(ctx, upsertFeature,
		row.UserID, string(row.Window), string(row.SignalType), string(row.SignalData), formatTime(row.ComputedAt))
	return err
}

func (c *conn) ReplaceFeatureSet(ctx context.Context, fs models.FeatureSet, computedAt time.Time) error {
	rows, err := fs.Rows(computedAt)
	if err != nil {
		return err
	}
	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := execUpsert(ctx, tx, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", row.SignalType, err)
		}
	}
	return tx.Commit()
}

func (c *conn) ReplaceFeature(ctx context.Context, row models.StoredFeature) error {
	return execUpsert(ctx, c.c, row)
}

func (c *conn) FeatureSet(ctx context.Context, userID string, window models.Window) (models.FeatureSet, bool, error) {
	fs := models.FeatureSet{UserID: userID, Window: window}
	query := `
		SELECT signal_type, signal_data, computed_at
		FROM computed_features
		WHERE user_id = ? AND time_window = ?
	`
	rows, err := c.c.QueryContext(ctx, query, userID, string(window))
	if err != nil {
		return fs, false, err
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		row := models.StoredFeature{UserID: userID, Window: window}
		var st, data, computedAt string
		if err := rows.Scan(&st, &data, &computedAt); err != nil {
			return fs, false, err
		}
		row.SignalType = models.SignalType(st)
		row.SignalData = json.RawMessage(data)
		row.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
		if err := fs.Apply(row); err != nil {
			return fs, false, err
		}
		found = true
	}
	return fs, found, rows.Err()
}

func (c *conn) ReplacePersona(ctx context.Context, pa models.PersonaAssignment) error {
	criteria := pa.CriteriaMet
	if criteria == nil {
		criteria = []string{}
	}
	encoded, err := json.Marshal(criteria)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO persona_assignments (user_id, time_window, persona, criteria_met, assigned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, time_window) DO UPDATE SET
			persona = excluded.persona,
			criteria_met = excluded.criteria_met,
			assigned_at = excluded.assigned_at
	`
	_, err = c.c.ExecContext(ctx, query, pa.UserID, string(pa.Window), string(pa.Persona), string(encoded), formatTime(pa.AssignedAt))
	return err
}

func (c *conn) Persona(ctx context.Context, userID string, window models.Window) (models.PersonaAssignment, error) {
	pa := models.PersonaAssignment{UserID: userID, Window: window}
	query := `
		SELECT persona, criteria_met, assigned_at
		FROM persona_assignments
		WHERE user_id = ? AND time_window = ?
	`
	var persona, criteria, assignedAt string
	err := c.c.QueryRowContext(ctx, query, userID, string(window)).Scan(&persona, &criteria, &assignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pa, db.ErrNotFound
	}
	if err != nil {
		return pa, err
	}
	pa.Persona = models.Persona(persona)
	pa.AssignedAt, _ = time.Parse(time.RFC3339Nano, assignedAt)
	if err := json.Unmarshal([]byte(criteria), &pa.CriteriaMet); err != nil {
		return pa, fmt.Errorf("decode criteria_met: %w", err)
	}
	return pa, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
