package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

const recurringColumns = "id, user_id, type, amount, category_id, frequency, custom_days, start_date, next_date, active, created_at, updated_at"

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	now := time.Now().UTC()
	rt.CreatedAt = now
	rt.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (id, user_id, type, amount, category_id, frequency, custom_days, start_date, next_date, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.UserID, string(rt.Type), rt.Amount.String(), rt.CategoryID, string(rt.Frequency),
		rt.CustomDays, formatDate(rt.StartDate), formatDate(rt.NextDate), rt.Active,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID, id string) (*core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	rt, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE user_id = ? ORDER BY next_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var rts []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		rts = append(rts, *rt)
	}
	return rts, rows.Err()
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	rt.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET type = ?, amount = ?, category_id = ?, frequency = ?, custom_days = ?, start_date = ?, next_date = ?, active = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(rt.Type), rt.Amount.String(), rt.CategoryID, string(rt.Frequency), rt.CustomDays,
		formatDate(rt.StartDate), formatDate(rt.NextDate), rt.Active, formatTime(rt.UpdatedAt),
		rt.ID, rt.UserID,
	)
	if err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	return requireRow(res)
}

// ListDueRecurring returns every active template, across all users, whose
// next date has arrived. Used by the worker sweep.
func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE active = 1 AND next_date <= ? ORDER BY next_date`,
		formatDate(now))
	if err != nil {
		return nil, fmt.Errorf("list due recurring transactions: %w", err)
	}
	defer rows.Close()

	var rts []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		rts = append(rts, *rt)
	}
	return rts, rows.Err()
}

// SumActiveRecurring sums the amounts of active recurring templates of one
// type. Summation happens in Go to keep decimal exactness.
func (r *SQLiteRepository) SumActiveRecurring(ctx context.Context, userID string, typ core.TransactionType) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM recurring_transactions WHERE user_id = ? AND type = ? AND active = 1`,
		userID, string(typ))
}

func scanRecurring(row rowScanner) (*core.RecurringTransaction, error) {
	var (
		rt                   core.RecurringTransaction
		typ, amount, freq    string
		startDate, nextDate  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rt.ID, &rt.UserID, &typ, &amount, &rt.CategoryID, &freq, &rt.CustomDays,
		&startDate, &nextDate, &rt.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rt.Type = core.TransactionType(typ)
	rt.Frequency = core.Frequency(freq)
	var err error
	if rt.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if rt.StartDate, err = parseDate(startDate); err != nil {
		return nil, fmt.Errorf("parse start_date %q: %w", startDate, err)
	}
	if rt.NextDate, err = parseDate(nextDate); err != nil {
		return nil, fmt.Errorf("parse next_date %q: %w", nextDate, err)
	}
	if rt.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rt, nil
}
