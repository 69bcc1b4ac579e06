package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

const transactionColumns = "id, user_id, type, amount, tx_date, category_id, account_id, credit_card_id, notes, created_at, updated_at"

// InsertTransaction persists a new transaction row inside the current write
// transaction.
func (lt *LedgerTx) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := lt.tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, tx_date, category_id, account_id, credit_card_id, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Type), t.Amount.String(), formatDate(t.Date),
		t.CategoryID, t.AccountID, t.CreditCardID, t.Notes, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetTransaction loads a transaction inside the current write transaction.
func (lt *LedgerTx) GetTransaction(ctx context.Context, userID, id string) (*core.Transaction, error) {
	return getTransaction(ctx, lt.tx, userID, id)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (*core.Transaction, error) {
	return getTransaction(ctx, r.db, userID, id)
}

func getTransaction(ctx context.Context, q querier, userID, id string) (*core.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction rewrites every mutable field of the row inside the
// current write transaction.
func (lt *LedgerTx) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := lt.tx.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount = ?, tx_date = ?, category_id = ?, account_id = ?, credit_card_id = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount.String(), formatDate(t.Date), t.CategoryID, t.AccountID, t.CreditCardID, t.Notes,
		formatTime(t.UpdatedAt), t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

// DeleteTransaction removes the row inside the current write transaction.
func (lt *LedgerTx) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := lt.tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?
		 ORDER BY tx_date DESC, created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// SumAmountsByType sums transaction amounts of one type inside the
// half-open window [start, end). Amounts are stored as exact decimal text,
// so the summation happens in Go rather than with SQL SUM, which would
// round through floating point.
func (r *SQLiteRepository) SumAmountsByType(ctx context.Context, userID string, typ core.TransactionType, start, end time.Time) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND type = ? AND tx_date >= ? AND tx_date < ?`,
		userID, string(typ), formatDate(start), formatDate(end))
}

// SumExpensesForCategory sums expense amounts for one category inside the
// half-open window [start, end).
func (r *SQLiteRepository) SumExpensesForCategory(ctx context.Context, userID, categoryID string, start, end time.Time) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND type = 'expense' AND category_id = ? AND tx_date >= ? AND tx_date < ?`,
		userID, categoryID, formatDate(start), formatDate(end))
}

func (r *SQLiteRepository) sumAmounts(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// ExpenseSumsByCategory returns expense totals grouped by category inside
// [start, end), sorted descending by amount. Categories without matching
// transactions do not appear. Uncategorized expenses are skipped; they have
// no category row to attach to.
func (r *SQLiteRepository) ExpenseSumsByCategory(ctx context.Context, userID string, start, end time.Time) ([]core.CategorySpend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.category_id, c.name, t.amount
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = 'expense' AND t.category_id IS NOT NULL
		   AND t.tx_date >= ? AND t.tx_date < ?`,
		userID, formatDate(start), formatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("expense sums by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]*core.CategorySpend)
	for rows.Next() {
		var categoryID, name, amount string
		if err := rows.Scan(&categoryID, &name, &amount); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		cs, ok := totals[categoryID]
		if !ok {
			cs = &core.CategorySpend{CategoryID: categoryID, CategoryName: name, Amount: decimal.Zero}
			totals[categoryID] = cs
		}
		cs.Amount = cs.Amount.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.CategorySpend, 0, len(totals))
	for _, cs := range totals {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out, nil
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t                    core.Transaction
		typ, amount, txDate  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &amount, &txDate,
		&t.CategoryID, &t.AccountID, &t.CreditCardID, &t.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Type = core.TransactionType(typ)
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.Date, err = parseDate(txDate); err != nil {
		return nil, fmt.Errorf("parse tx_date %q: %w", txDate, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &t, nil
}
