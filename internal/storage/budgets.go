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

const budgetColumns = "id, user_id, category_id, monthly_limit, alert_threshold, created_at, updated_at"

// ErrDuplicateBudget is returned when a second budget is created for the
// same (user, category) pair.
var ErrDuplicateBudget = errors.New("budget already exists for category")

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category_id, monthly_limit, alert_threshold, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CategoryID, b.MonthlyLimit.String(), b.AlertThreshold, formatTime(now), formatTime(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateBudget
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudgetForCategory(ctx context.Context, userID, categoryID string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get budget for category: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b *core.Budget) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET monthly_limit = ?, alert_threshold = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		b.MonthlyLimit.String(), b.AlertThreshold, formatTime(b.UpdatedAt), b.ID, b.UserID,
	)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

func scanBudget(row rowScanner) (*core.Budget, error) {
	var (
		b                    core.Budget
		limit                string
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &limit, &b.AlertThreshold, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.MonthlyLimit, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("parse monthly_limit %q: %w", limit, err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &b, nil
}
