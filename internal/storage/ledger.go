package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

const accountColumns = "id, user_id, name, currency, balance, created_at, updated_at"

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, currency, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Currency, a.Balance.String(), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (*core.Account, error) {
	return getAccount(ctx, r.db, userID, id)
}

// GetAccount loads an account inside the current write transaction.
func (lt *LedgerTx) GetAccount(ctx context.Context, userID, id string) (*core.Account, error) {
	return getAccount(ctx, lt.tx, userID, id)
}

func getAccount(ctx context.Context, q querier, userID, id string) (*core.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateAccountProfile updates the descriptive fields of an account. The
// balance is deliberately not touched here; it changes only through the
// ledger service or the explicit SetAccountBalance override.
func (r *SQLiteRepository) UpdateAccountProfile(ctx context.Context, a *core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, currency = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		a.Name, a.Currency, formatTime(time.Now().UTC()), a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

// SetAccountBalance overwrites an account balance directly, ownership
// checked. This bypasses the transaction-derived invariant; callers own the
// consequences.
func (r *SQLiteRepository) SetAccountBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		balance.String(), formatTime(time.Now().UTC()), id, userID,
	)
	if err != nil {
		return fmt.Errorf("set account balance: %w", err)
	}
	return requireRow(res)
}

// SetAccountBalance writes the new balance inside the current write
// transaction. Ownership was already checked by the preceding GetAccount.
func (lt *LedgerTx) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := lt.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("set account balance: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("account still referenced: %w", core.ErrConstraintViolation)
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountAccountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountLinkedCards(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_cards WHERE linked_account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count linked cards: %w", err)
	}
	return n, nil
}

const cardColumns = "id, user_id, name, credit_limit, used, linked_account_id, created_at, updated_at"

func (r *SQLiteRepository) CreateCreditCard(ctx context.Context, c *core.CreditCard) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (id, user_id, name, credit_limit, used, linked_account_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Limit.String(), c.Used.String(), c.LinkedAccountID, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert credit card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCreditCard(ctx context.Context, userID, id string) (*core.CreditCard, error) {
	return getCreditCard(ctx, r.db, userID, id)
}

// GetCreditCard loads a credit card inside the current write transaction.
func (lt *LedgerTx) GetCreditCard(ctx context.Context, userID, id string) (*core.CreditCard, error) {
	return getCreditCard(ctx, lt.tx, userID, id)
}

func getCreditCard(ctx context.Context, q querier, userID, id string) (*core.CreditCard, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCreditCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get credit card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (r *SQLiteRepository) UpdateCreditCardProfile(ctx context.Context, c *core.CreditCard) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET name = ?, credit_limit = ?, linked_account_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.Limit.String(), c.LinkedAccountID, formatTime(time.Now().UTC()), c.ID, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	return requireRow(res)
}

// SetCardUsed overwrites a card's used amount directly, ownership checked.
// Same escape-hatch semantics as SetAccountBalance.
func (r *SQLiteRepository) SetCardUsed(ctx context.Context, userID, id string, used decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET used = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		used.String(), formatTime(time.Now().UTC()), id, userID,
	)
	if err != nil {
		return fmt.Errorf("set card used: %w", err)
	}
	return requireRow(res)
}

// SetCardUsed writes the new used amount inside the current write
// transaction.
func (lt *LedgerTx) SetCardUsed(ctx context.Context, id string, used decimal.Decimal) error {
	res, err := lt.tx.ExecContext(ctx,
		`UPDATE credit_cards SET used = ?, updated_at = ? WHERE id = ?`,
		used.String(), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("set card used: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCreditCard(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("credit card still referenced: %w", core.ErrConstraintViolation)
		}
		return fmt.Errorf("delete credit card: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountCardTransactions(ctx context.Context, cardID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE credit_card_id = ?`, cardID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count card transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (*core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// CategoryExists reports whether the category exists and belongs to the
// user, inside the current write transaction.
func (lt *LedgerTx) CategoryExists(ctx context.Context, userID, id string) (bool, error) {
	var n int64
	err := lt.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// DeleteCategory fails ErrConstraintViolation while transactions, recurring
// templates or budgets still reference the category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("category still referenced: %w", core.ErrConstraintViolation)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*core.Account, error) {
	var (
		a                    core.Account
		balance              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &balance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &a, nil
}

func scanCreditCard(row rowScanner) (*core.CreditCard, error) {
	var (
		c                    core.CreditCard
		limit, used          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &limit, &used, &c.LinkedAccountID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if c.Limit, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("parse limit %q: %w", limit, err)
	}
	if c.Used, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("parse used %q: %w", used, err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &c, nil
}

// isForeignKeyError matches the driver's FK violation message; modernc.org
// exposes no typed error for it.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// requireRow maps "no rows affected" to core.ErrNotFound so update/delete
// against an absent or unowned record fails the same way a lookup would.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
