package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func validTransaction() Transaction {
	return Transaction{
		ID:        "tx-1",
		UserID:    "user-1",
		Type:      Expense,
		Amount:    decimal.RequireFromString("42.50"),
		Date:      time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		AccountID: strPtr("acc-1"),
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{
			name:   "valid account funded",
			mutate: func(tx *Transaction) {},
		},
		{
			name: "valid card funded",
			mutate: func(tx *Transaction) {
				tx.AccountID = nil
				tx.CreditCardID = strPtr("card-1")
			},
		},
		{
			name: "no funding source",
			mutate: func(tx *Transaction) {
				tx.AccountID = nil
			},
			wantErr: ErrInvalidReference,
		},
		{
			name: "both funding sources",
			mutate: func(tx *Transaction) {
				tx.CreditCardID = strPtr("card-1")
			},
			wantErr: ErrInvalidReference,
		},
		{
			name: "zero amount",
			mutate: func(tx *Transaction) {
				tx.Amount = decimal.Zero
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			mutate: func(tx *Transaction) {
				tx.Amount = decimal.RequireFromString("-5")
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "unknown type",
			mutate: func(tx *Transaction) {
				tx.Type = "transfer"
			},
			wantErr: ErrInvalidType,
		},
		{
			name: "zero date",
			mutate: func(tx *Transaction) {
				tx.Date = time.Time{}
			},
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	days := 45
	badDays := 0
	base := RecurringTransaction{
		Type:      Expense,
		Amount:    decimal.RequireFromString("15.99"),
		Frequency: Monthly,
		StartDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	t.Run("valid monthly", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Fatalf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("valid custom with days", func(t *testing.T) {
		rt := base
		rt.Frequency = Custom
		rt.CustomDays = &days
		if err := rt.Validate(); err != nil {
			t.Fatalf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("bad frequency", func(t *testing.T) {
		rt := base
		rt.Frequency = "weekly"
		if !errors.Is(rt.Validate(), ErrInvalidFrequency) {
			t.Error("expected ErrInvalidFrequency")
		}
	})

	t.Run("non-positive custom days", func(t *testing.T) {
		rt := base
		rt.Frequency = Custom
		rt.CustomDays = &badDays
		if rt.Validate() == nil {
			t.Error("expected error for customDays=0")
		}
	})
}

func TestBudgetValidate(t *testing.T) {
	threshold := 80
	badThreshold := 150
	base := Budget{
		CategoryID:   "cat-1",
		MonthlyLimit: decimal.RequireFromString("2000"),
	}

	t.Run("valid without threshold", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Fatalf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("valid with threshold", func(t *testing.T) {
		b := base
		b.AlertThreshold = &threshold
		if err := b.Validate(); err != nil {
			t.Fatalf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		b := base
		b.AlertThreshold = &badThreshold
		if b.Validate() == nil {
			t.Error("expected error for threshold 150")
		}
	})

	t.Run("missing category", func(t *testing.T) {
		b := base
		b.CategoryID = ""
		if b.Validate() == nil {
			t.Error("expected error for empty category")
		}
	})
}
