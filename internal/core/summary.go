package core

import "github.com/shopspring/decimal"

// DefaultAlertThreshold is the percentage used for display when a budget
// has no explicit alert threshold.
const DefaultAlertThreshold = 80

// BudgetStatus is a budget joined with figures derived from the current
// month's transactions. Never persisted.
type BudgetStatus struct {
	BudgetID       string
	CategoryID     string
	CategoryName   string
	MonthlyLimit   decimal.Decimal
	Spent          decimal.Decimal
	Remaining      decimal.Decimal
	Percentage     float64
	AlertThreshold int
	IsOverBudget   bool
	IsNearLimit    bool
}

// CashFlowPoint is one calendar window (month or quarter) of a cash-flow
// series.
type CashFlowPoint struct {
	Name    string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// CategorySpend is an expense total aggregated by category.
type CategorySpend struct {
	CategoryID   string
	CategoryName string
	Amount       decimal.Decimal
}

// FixedVariableSplit partitions a month's expenses into the portion covered
// by active recurring templates and the rest.
type FixedVariableSplit struct {
	Fixed    decimal.Decimal
	Variable decimal.Decimal
	Total    decimal.Decimal
}
