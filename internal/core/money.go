// Package core holds the domain model of the ledger: monetary amounts,
// accounts, credit cards, transactions, recurring templates and budgets.
//
// This file contains the monetary amount handling. All balances and
// transaction amounts are decimal.Decimal values so that repeated
// increments and decrements stay exact; binary floating point never
// touches a balance.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-supplied amount string into an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// The amount must be strictly positive and must not carry more than two
// significant fraction digits: anything that cannot be represented on the
// cent grid fails fast instead of being truncated.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("12.340") -> 12.34, nil (trailing zero, still exact)
//	ParseAmount("12.345") -> error (not representable in cents)
//	ParseAmount("-3")     -> error (only positive amounts)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that an already-parsed amount is usable as a
// transaction amount or budget limit: strictly positive and exactly
// representable with two fraction digits.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// Delta returns the signed effect of a transaction on an account balance:
// +amount for income, -amount for expense.
func Delta(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}
