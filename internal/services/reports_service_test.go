package services

import (
	"context"
	"testing"
	"time"

	"conti/internal/core"
)

func TestBudgetsWithSpent(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	portfolio := NewPortfolioService(repo)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "5000.00")
	groceries := seedCategory(t, repo, "u1", "Groceries")
	travel := seedCategory(t, repo, "u1", "Travel")

	if _, err := portfolio.CreateBudget(ctx, "u1", groceries.ID, dec(t, "400.00"), nil); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	threshold := 50
	if _, err := portfolio.CreateBudget(ctx, "u1", travel.ID, dec(t, "200.00"), &threshold); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	now := date(2026, time.August, 20)
	spend := func(categoryID, amount string, day int) {
		t.Helper()
		if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
			Type:       core.Expense,
			Amount:     dec(t, amount),
			Date:       date(2026, time.August, day),
			CategoryID: &categoryID,
			AccountID:  &acc.ID,
		}); err != nil {
			t.Fatalf("spend: %v", err)
		}
	}
	spend(groceries.ID, "150.00", 3)
	spend(groceries.ID, "190.00", 12)
	spend(travel.ID, "250.00", 15)

	// Last month's spend must not count.
	if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:       core.Expense,
		Amount:     dec(t, "999.00"),
		Date:       date(2026, time.July, 30),
		CategoryID: &groceries.ID,
		AccountID:  &acc.ID,
	}); err != nil {
		t.Fatalf("prior month spend: %v", err)
	}

	statuses, err := reports.BudgetsWithSpent(ctx, "u1", now)
	if err != nil {
		t.Fatalf("BudgetsWithSpent: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}

	byCategory := map[string]core.BudgetStatus{}
	for _, st := range statuses {
		byCategory[st.CategoryID] = st
	}

	g := byCategory[groceries.ID]
	if g.Spent.String() != "340" {
		t.Errorf("groceries spent = %s, want 340", g.Spent)
	}
	if g.Remaining.String() != "60" {
		t.Errorf("groceries remaining = %s, want 60", g.Remaining)
	}
	if g.AlertThreshold != core.DefaultAlertThreshold {
		t.Errorf("groceries threshold = %d, want default %d", g.AlertThreshold, core.DefaultAlertThreshold)
	}
	if !g.IsNearLimit || g.IsOverBudget {
		t.Errorf("groceries flags = (near=%v over=%v), want (true false)", g.IsNearLimit, g.IsOverBudget)
	}
	if g.CategoryName != "Groceries" {
		t.Errorf("groceries name = %q", g.CategoryName)
	}

	tr := byCategory[travel.ID]
	if !tr.IsOverBudget {
		t.Errorf("travel over budget = false, want true")
	}
	if tr.IsNearLimit {
		t.Errorf("travel near limit = true, want false once over")
	}
	if tr.Remaining.String() != "-50" {
		t.Errorf("travel remaining = %s, want -50", tr.Remaining)
	}
}

func TestCashFlowMonthly(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	add := func(typ core.TransactionType, amount string, d time.Time) {
		t.Helper()
		if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
			Type: typ, Amount: dec(t, amount), Date: d, AccountID: &acc.ID,
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	add(core.Income, "2000.00", date(2026, time.August, 1))
	add(core.Expense, "750.00", date(2026, time.August, 14))
	add(core.Income, "2000.00", date(2026, time.July, 1))
	add(core.Expense, "100.00", date(2026, time.February, 10)) // outside the 6-month window

	series, err := reports.CashFlow(ctx, "u1", PeriodMonth, date(2026, time.August, 20))
	if err != nil {
		t.Fatalf("CashFlow: %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("got %d points, want 6", len(series))
	}

	if series[0].Name != "Mar 2026" {
		t.Errorf("first window = %q, want Mar 2026", series[0].Name)
	}
	last := series[5]
	if last.Name != "Aug 2026" {
		t.Errorf("last window = %q, want Aug 2026", last.Name)
	}
	if last.Income.String() != "2000" || last.Expense.String() != "750" {
		t.Errorf("Aug = (%s, %s), want (2000, 750)", last.Income, last.Expense)
	}
	if series[4].Income.String() != "2000" {
		t.Errorf("Jul income = %s, want 2000", series[4].Income)
	}
	// Empty windows still appear with zero figures.
	if !series[1].Income.IsZero() || !series[1].Expense.IsZero() {
		t.Errorf("Apr = (%s, %s), want zeros", series[1].Income, series[1].Expense)
	}
}

func TestCashFlowQuarterly(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type: core.Expense, Amount: dec(t, "500.00"), Date: date(2025, time.December, 20), AccountID: &acc.ID,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	series, err := reports.CashFlow(ctx, "u1", PeriodQuarter, date(2026, time.August, 20))
	if err != nil {
		t.Fatalf("CashFlow: %v", err)
	}
	if len(series) != 4 {
		t.Fatalf("got %d points, want 4", len(series))
	}

	wantNames := []string{"Q4 2025", "Q1 2026", "Q2 2026", "Q3 2026"}
	for i, want := range wantNames {
		if series[i].Name != want {
			t.Errorf("series[%d].Name = %q, want %q", i, series[i].Name, want)
		}
	}
	if series[0].Expense.String() != "500" {
		t.Errorf("Q4 2025 expense = %s, want 500", series[0].Expense)
	}
}

func TestCashFlowUnknownPeriod(t *testing.T) {
	reports := NewReportsService(newTestRepo(t))
	if _, err := reports.CashFlow(context.Background(), "u1", "decade", time.Now()); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestSpendByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	rent := seedCategory(t, repo, "u1", "Rent")
	food := seedCategory(t, repo, "u1", "Food")

	spend := func(categoryID *string, amount string) {
		t.Helper()
		if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
			Type: core.Expense, Amount: dec(t, amount), Date: date(2026, time.August, 10),
			CategoryID: categoryID, AccountID: &acc.ID,
		}); err != nil {
			t.Fatalf("spend: %v", err)
		}
	}
	spend(&rent.ID, "900.00")
	spend(&food.ID, "120.00")
	spend(&food.ID, "80.00")
	spend(nil, "55.00") // uncategorized, excluded from the breakdown

	got, err := reports.SpendByCategory(ctx, "u1", date(2026, time.August, 20))
	if err != nil {
		t.Fatalf("SpendByCategory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].CategoryName != "Rent" || got[0].Amount.String() != "900" {
		t.Errorf("first row = %s %s, want Rent 900", got[0].CategoryName, got[0].Amount)
	}
	if got[1].CategoryName != "Food" || got[1].Amount.String() != "200" {
		t.Errorf("second row = %s %s, want Food 200", got[1].CategoryName, got[1].Amount)
	}
}

func TestFixedVariableSplit(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	recurring := NewRecurringService(repo)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type: core.Expense, Amount: dec(t, "1000.00"), Date: date(2026, time.August, 10), AccountID: &acc.ID,
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if _, err := recurring.Create(ctx, "u1", CreateRecurringInput{
		Type: core.Expense, Amount: dec(t, "600.00"), Frequency: core.Monthly,
		StartDate: date(2026, time.January, 1), Active: true,
	}); err != nil {
		t.Fatalf("create recurring: %v", err)
	}
	// Inactive templates do not count as fixed commitments.
	if _, err := recurring.Create(ctx, "u1", CreateRecurringInput{
		Type: core.Expense, Amount: dec(t, "300.00"), Frequency: core.Monthly,
		StartDate: date(2026, time.January, 1), Active: false,
	}); err != nil {
		t.Fatalf("create inactive recurring: %v", err)
	}

	split, err := reports.FixedVariable(ctx, "u1", date(2026, time.August, 20))
	if err != nil {
		t.Fatalf("FixedVariable: %v", err)
	}
	if split.Fixed.String() != "600" {
		t.Errorf("fixed = %s, want 600", split.Fixed)
	}
	if split.Variable.String() != "400" {
		t.Errorf("variable = %s, want 400", split.Variable)
	}
	if split.Total.String() != "1000" {
		t.Errorf("total = %s, want 1000", split.Total)
	}
}

func TestFixedVariableNeverNegative(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedgerService(repo, nil)
	recurring := NewRecurringService(repo)
	reports := NewReportsService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type: core.Expense, Amount: dec(t, "100.00"), Date: date(2026, time.August, 10), AccountID: &acc.ID,
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if _, err := recurring.Create(ctx, "u1", CreateRecurringInput{
		Type: core.Expense, Amount: dec(t, "500.00"), Frequency: core.Monthly,
		StartDate: date(2026, time.January, 1), Active: true,
	}); err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	split, err := reports.FixedVariable(ctx, "u1", date(2026, time.August, 20))
	if err != nil {
		t.Fatalf("FixedVariable: %v", err)
	}
	if !split.Variable.IsZero() {
		t.Errorf("variable = %s, want 0 when fixed exceeds total", split.Variable)
	}
}
