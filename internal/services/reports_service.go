package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

// Cash-flow period selectors.
const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
)

const (
	cashFlowMonths   = 6
	cashFlowQuarters = 4
)

// ReportsService computes derived figures from the live transaction set at
// read time. Nothing here is persisted; a report is always consistent with
// the rows as of the query.
type ReportsService struct {
	repo *storage.SQLiteRepository
}

func NewReportsService(repo *storage.SQLiteRepository) *ReportsService {
	return &ReportsService{repo: repo}
}

// BudgetsWithSpent joins every budget with the current calendar month's
// expense total for its category.
func (s *ReportsService) BudgetsWithSpent(ctx context.Context, userID string, now time.Time) ([]core.BudgetStatus, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	start, end := core.MonthWindow(now)

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.repo.SumExpensesForCategory(ctx, userID, b.CategoryID, start, end)
		if err != nil {
			return nil, err
		}

		name := ""
		if cat, err := s.repo.GetCategory(ctx, userID, b.CategoryID); err == nil {
			name = cat.Name
		}

		statuses = append(statuses, buildBudgetStatus(b, name, spent))
	}
	return statuses, nil
}

// BudgetStatusForCategory computes the status of the single budget covering
// categoryID, ErrNotFound when the category has none.
func (s *ReportsService) BudgetStatusForCategory(ctx context.Context, userID, categoryID string, now time.Time) (*core.BudgetStatus, error) {
	b, err := s.repo.GetBudgetForCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	start, end := core.MonthWindow(now)
	spent, err := s.repo.SumExpensesForCategory(ctx, userID, categoryID, start, end)
	if err != nil {
		return nil, err
	}

	name := ""
	if cat, err := s.repo.GetCategory(ctx, userID, categoryID); err == nil {
		name = cat.Name
	}

	status := buildBudgetStatus(*b, name, spent)
	return &status, nil
}

func buildBudgetStatus(b core.Budget, categoryName string, spent decimal.Decimal) core.BudgetStatus {
	threshold := core.DefaultAlertThreshold
	if b.AlertThreshold != nil {
		threshold = *b.AlertThreshold
	}

	percentage := 0.0
	if b.MonthlyLimit.IsPositive() {
		percentage, _ = spent.Div(b.MonthlyLimit).Mul(decimal.NewFromInt(100)).Float64()
	}

	over := spent.GreaterThan(b.MonthlyLimit)
	return core.BudgetStatus{
		BudgetID:       b.ID,
		CategoryID:     b.CategoryID,
		CategoryName:   categoryName,
		MonthlyLimit:   b.MonthlyLimit,
		Spent:          spent,
		Remaining:      b.MonthlyLimit.Sub(spent),
		Percentage:     percentage,
		AlertThreshold: threshold,
		IsOverBudget:   over,
		IsNearLimit:    !over && percentage >= float64(threshold),
	}
}

// CashFlow returns the income/expense series for the last 6 calendar months
// or the last 4 calendar quarters, oldest first, current window last. Every
// window appears even when empty.
func (s *ReportsService) CashFlow(ctx context.Context, userID, period string, now time.Time) ([]core.CashFlowPoint, error) {
	switch period {
	case PeriodQuarter:
		return s.cashFlowSeries(ctx, userID, now, cashFlowQuarters, quarterStep)
	case PeriodMonth, "":
		return s.cashFlowSeries(ctx, userID, now, cashFlowMonths, monthStep)
	default:
		return nil, fmt.Errorf("unknown cash flow period %q", period)
	}
}

type windowFunc func(t time.Time, back int) (name string, start, end time.Time)

func monthStep(t time.Time, back int) (string, time.Time, time.Time) {
	anchor := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -back, 0)
	start, end := core.MonthWindow(anchor)
	return anchor.Format("Jan 2006"), start, end
}

func quarterStep(t time.Time, back int) (string, time.Time, time.Time) {
	qStart, _ := core.QuarterWindow(t)
	anchor := qStart.AddDate(0, -3*back, 0)
	start, end := core.QuarterWindow(anchor)
	q := (int(start.Month())-1)/3 + 1
	return fmt.Sprintf("Q%d %d", q, start.Year()), start, end
}

func (s *ReportsService) cashFlowSeries(ctx context.Context, userID string, now time.Time, points int, window windowFunc) ([]core.CashFlowPoint, error) {
	series := make([]core.CashFlowPoint, 0, points)
	for back := points - 1; back >= 0; back-- {
		name, start, end := window(now, back)
		income, err := s.repo.SumAmountsByType(ctx, userID, core.Income, start, end)
		if err != nil {
			return nil, err
		}
		expense, err := s.repo.SumAmountsByType(ctx, userID, core.Expense, start, end)
		if err != nil {
			return nil, err
		}
		series = append(series, core.CashFlowPoint{Name: name, Income: income, Expense: expense})
	}
	return series, nil
}

// SpendByCategory returns the current calendar month's expense totals per
// category, largest first.
func (s *ReportsService) SpendByCategory(ctx context.Context, userID string, now time.Time) ([]core.CategorySpend, error) {
	start, end := core.MonthWindow(now)
	return s.repo.ExpenseSumsByCategory(ctx, userID, start, end)
}

// FixedVariable splits the current month's expenses into the fixed portion
// committed by active recurring expense templates and the variable rest.
// When fixed commitments exceed actual spend the variable share is zero,
// never negative.
func (s *ReportsService) FixedVariable(ctx context.Context, userID string, now time.Time) (*core.FixedVariableSplit, error) {
	start, end := core.MonthWindow(now)
	total, err := s.repo.SumAmountsByType(ctx, userID, core.Expense, start, end)
	if err != nil {
		return nil, err
	}
	fixed, err := s.repo.SumActiveRecurring(ctx, userID, core.Expense)
	if err != nil {
		return nil, err
	}

	variable := total.Sub(fixed)
	if variable.IsNegative() {
		variable = decimal.Zero
	}
	return &core.FixedVariableSplit{Fixed: fixed, Variable: variable, Total: total}, nil
}
