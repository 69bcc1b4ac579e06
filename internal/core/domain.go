package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
	Custom    Frequency = "custom"
)

type (
	TransactionType string

	Frequency string

	// Account is a funding source with a materialized running balance.
	// The balance is mutated only through the ledger service; income
	// increases it, expense decreases it.
	Account struct {
		ID        string
		UserID    string
		Name      string
		Currency  string
		Balance   decimal.Decimal
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CreditCard is a funding source tracking the amount currently drawn.
	// Expense transactions increase Used; income transactions charged to a
	// card never decrease it.
	CreditCard struct {
		ID              string
		UserID          string
		Name            string
		Limit           decimal.Decimal
		Used            decimal.Decimal
		LinkedAccountID *string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	Category struct {
		ID     string
		UserID string
		Name   string
	}

	// Transaction is the atomic ledger event. Exactly one of AccountID and
	// CreditCardID is set at all times.
	Transaction struct {
		ID           string
		UserID       string
		Type         TransactionType
		Amount       decimal.Decimal
		Date         time.Time
		CategoryID   *string
		AccountID    *string
		CreditCardID *string
		Notes        string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// RecurringTransaction is a template for repeating transactions. It
	// never mutates balances itself; NextDate is derived from the schedule
	// parameters and recomputed whenever they change.
	RecurringTransaction struct {
		ID         string
		UserID     string
		Type       TransactionType
		Amount     decimal.Decimal
		CategoryID *string
		Frequency  Frequency
		CustomDays *int
		StartDate  time.Time
		NextDate   time.Time
		Active     bool
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Budget is a per-category monthly spending limit, unique per
	// (user, category). Spent is never stored; it is always recomputed
	// from the live transaction set.
	Budget struct {
		ID             string
		UserID         string
		CategoryID     string
		MonthlyLimit   decimal.Decimal
		AlertThreshold *int
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidReference    = errors.New("transaction must reference exactly one funding source")
	ErrConstraintViolation = errors.New("record still referenced by other records")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidDate         = errors.New("invalid date")
	ErrEmptyName           = errors.New("empty name")

	// ErrValidation wraps field-level validation failures that have no
	// dedicated sentinel.
	ErrValidation = errors.New("validation failed")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Monthly, Quarterly, Yearly, Custom:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrValidation)
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrValidation)
	}
	if !c.Limit.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	// Exactly one funding source: zero or two are both rejected, never
	// silently resolved.
	if (t.AccountID == nil) == (t.CreditCardID == nil) {
		return ErrInvalidReference
	}
	if len(t.Notes) > 500 {
		return fmt.Errorf("%w: notes too long (max 500 characters)", ErrValidation)
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if err := rt.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(rt.Amount); err != nil {
		return err
	}
	if err := rt.Frequency.Validate(); err != nil {
		return err
	}
	if rt.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if rt.CustomDays != nil && *rt.CustomDays < 1 {
		return fmt.Errorf("%w: custom days must be at least 1", ErrValidation)
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID == "" {
		return fmt.Errorf("%w: budget requires a category", ErrValidation)
	}
	if err := ValidateAmount(b.MonthlyLimit); err != nil {
		return err
	}
	if b.AlertThreshold != nil && (*b.AlertThreshold < 1 || *b.AlertThreshold > 100) {
		return fmt.Errorf("%w: alert threshold must be between 1 and 100", ErrValidation)
	}
	return nil
}
