package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"budgee-insights/src/category"
	"budgee-insights/src/db"
	"budgee-insights/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type conn struct {
	c *pgxpool.Conn
}

func (c *conn) Release() {
	c.c.Release()
}

func (c *conn) Accounts(ctx context.Context, filter db.AccountFilter) ([]models.Account, error) {
	query := `
		SELECT account_id, user_id, type, subtype, balance::text, COALESCE(credit_limit, 0)::text
		FROM accounts
		WHERE user_id = $1
	`
	switch filter.Kind {
	case db.AccountsCredit:
		query += ` AND type = 'credit' AND credit_limit > 0`
	case db.AccountsSavings:
		query += ` AND (LOWER(subtype) IN ('savings', 'money market', 'money_market', 'hsa')
			OR (type = 'depository' AND LOWER(subtype) LIKE '%savings%'))`
	case db.AccountsChecking:
		query += ` AND LOWER(subtype) = 'checking'`
	}
	query += ` ORDER BY account_id`

	rows, err := c.c.Query(ctx, query, filter.UserID)
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
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, "account_id = ANY("+arg(filter.AccountIDs)+")")
	}
	if !filter.Since.IsZero() {
		where = append(where, "date >= "+arg(filter.Since.Format(time.DateOnly))+"::date")
	}
	switch filter.Sign {
	case db.Outflow:
		where = append(where, "amount < 0")
	case db.Inflow:
		where = append(where, "amount > 0")
	}

	query := `
		SELECT transaction_id, account_id, user_id, date, amount::text, merchant_name, category, pending
		FROM transactions
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, transaction_id"

	rows, err := c.c.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date *time.Time
		var amount string
		var cat *string
		if err := rows.Scan(&t.TransactionID, &t.AccountID, &t.UserID, &date, &amount, &t.MerchantName, &cat, &t.Pending); err != nil {
			return nil, err
		}
		if date != nil {
			t.Date = *date
		}
		if t.Amount, err = db.ParseAmount(amount); err != nil {
			return nil, err
		}
		t.Category = category.Normalize(cat)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

const upsertFeature = `
	INSERT INTO computed_features (user_id, time_window, signal_type, signal_data, computed_at)
	VALUES ($1, $2, $3, $4::jsonb, $5)
	ON CONFLICT (user_id, signal_type, time_window) DO UPDATE SET
		signal_data = EXCLUDED.signal_data,
		computed_at = EXCLUDED.computed_at
`

func (c *conn) ReplaceFeatureSet(ctx context.Context, fs models.FeatureSet, computedAt time.Time) error {
	rows, err := fs.Rows(computedAt)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, c.c, func(tx pgx.Tx) error {
		for _, row := range rows {
			if _, err := tx.Exec(ctx, upsertFeature, row.UserID, string(row.Window), string(row.SignalType), string(row.SignalData), row.ComputedAt); err != nil {
				return fmt.Errorf("upsert %s: %w", row.SignalType, err)
			}
		}
		return nil
	})
}

func (c *conn) ReplaceFeature(ctx context.Context, row models.StoredFeature) error {
	_, err := c.c.Exec(ctx, upsertFeature, row.UserID, string(row.Window), string(row.SignalType), string(row.SignalData), row.ComputedAt)
	return err
}

func (c *conn) FeatureSet(ctx context.Context, userID string, window models.Window) (models.FeatureSet, bool, error) {
	fs := models.FeatureSet{UserID: userID, Window: window}
	query := `
		SELECT signal_type, signal_data, computed_at
		FROM computed_features
		WHERE user_id = $1 AND time_window = $2
	`
	rows, err := c.c.Query(ctx, query, userID, string(window))
	if err != nil {
		return fs, false, err
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		row := models.StoredFeature{UserID: userID, Window: window}
		var st string
		var data []byte
		if err := rows.Scan(&st, &data, &row.ComputedAt); err != nil {
			return fs, false, err
		}
		row.SignalType = models.SignalType(st)
		row.SignalData = data
		if err := fs.Apply(row); err != nil {
			return fs, false, err
		}
		found = true
	}
	return fs, found, rows.Err()
}

func (c *conn) ReplacePersona(ctx context.Context, pa models.PersonaAssignment) error {
	criteria, err := json.Marshal(nonNil(pa.CriteriaMet))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO persona_assignments (user_id, time_window, persona, criteria_met, assigned_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (user_id, time_window) DO UPDATE SET
			persona = EXCLUDED.persona,
			criteria_met = EXCLUDED.criteria_met,
			assigned_at = EXCLUDED.assigned_at
	`
	_, err = c.c.Exec(ctx, query, pa.UserID, string(pa.Window), string(pa.Persona), string(criteria), pa.AssignedAt)
	return err
}

func (c *conn) Persona(ctx context.Context, userID string, window models.Window) (models.PersonaAssignment, error) {
	pa := models.PersonaAssignment{UserID: userID, Window: window}
	query := `
		SELECT persona, criteria_met, assigned_at
		FROM persona_assignments
		WHERE user_id = $1 AND time_window = $2
	`
	var persona string
	var criteria []byte
	err := c.c.QueryRow(ctx, query, userID, string(window)).Scan(&persona, &criteria, &pa.AssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pa, db.ErrNotFound
	}
	if err != nil {
		return pa, err
	}
	pa.Persona = models.Persona(persona)
	if err := json.Unmarshal(criteria, &pa.CriteriaMet); err != nil {
		return pa, fmt.Errorf("decode criteria_met: %w", err)
	}
	return pa, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
