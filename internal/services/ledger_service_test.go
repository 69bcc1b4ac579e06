package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "conti_test.db"))
	if err != nil {
		t.Fatalf("create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, repo *storage.SQLiteRepository, userID, balance string) *core.Account {
	t.Helper()
	svc := NewPortfolioService(repo)
	a, err := svc.CreateAccount(context.Background(), userID, "Checking", "EUR", dec(t, balance))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func seedCard(t *testing.T, repo *storage.SQLiteRepository, userID, limit string) *core.CreditCard {
	t.Helper()
	svc := NewPortfolioService(repo)
	c, err := svc.CreateCreditCard(context.Background(), userID, "Visa", dec(t, limit), nil)
	if err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return c
}

func seedCategory(t *testing.T, repo *storage.SQLiteRepository, userID, name string) *core.Category {
	t.Helper()
	svc := NewPortfolioService(repo)
	c, err := svc.CreateCategory(context.Background(), userID, name)
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func TestCreateTransactionAdjustsAccountBalance(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")

	tests := []struct {
		name    string
		typ     core.TransactionType
		amount  string
		balance string
	}{
		{"expense decreases balance", core.Expense, "250.50", "749.5"},
		{"income increases balance", core.Income, "100.25", "849.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
				Type:      tt.typ,
				Amount:    dec(t, tt.amount),
				Date:      date(2026, time.August, 15),
				AccountID: &acc.ID,
			})
			if err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}

			got, err := repo.GetAccount(ctx, "u1", acc.ID)
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if got.Balance.String() != tt.balance {
				t.Errorf("balance = %s, want %s", got.Balance, tt.balance)
			}
		})
	}
}

func TestCreateTransactionCardAsymmetry(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	card := seedCard(t, repo, "u1", "5000.00")

	if _, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:         core.Expense,
		Amount:       dec(t, "300.00"),
		Date:         date(2026, time.August, 10),
		CreditCardID: &card.ID,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	got, err := repo.GetCreditCard(ctx, "u1", card.ID)
	if err != nil {
		t.Fatalf("GetCreditCard: %v", err)
	}
	if got.Used.String() != "300" {
		t.Errorf("used after expense = %s, want 300", got.Used)
	}

	// Income charged to a card never reduces the drawn amount.
	if _, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:         core.Income,
		Amount:       dec(t, "200.00"),
		Date:         date(2026, time.August, 11),
		CreditCardID: &card.ID,
	}); err != nil {
		t.Fatalf("create income on card: %v", err)
	}

	got, err = repo.GetCreditCard(ctx, "u1", card.ID)
	if err != nil {
		t.Fatalf("GetCreditCard: %v", err)
	}
	if got.Used.String() != "300" {
		t.Errorf("used after income = %s, want 300 (unchanged)", got.Used)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "100.00")
	card := seedCard(t, repo, "u1", "1000.00")
	missing := "00000000-0000-0000-0000-000000000000"

	tests := []struct {
		name    string
		in      CreateTransactionInput
		wantErr error
	}{
		{
			"no funding source",
			CreateTransactionInput{Type: core.Expense, Amount: dec(t, "10.00"), Date: date(2026, time.August, 1)},
			core.ErrInvalidReference,
		},
		{
			"both funding sources",
			CreateTransactionInput{Type: core.Expense, Amount: dec(t, "10.00"), Date: date(2026, time.August, 1), AccountID: &acc.ID, CreditCardID: &card.ID},
			core.ErrInvalidReference,
		},
		{
			"unknown account",
			CreateTransactionInput{Type: core.Expense, Amount: dec(t, "10.00"), Date: date(2026, time.August, 1), AccountID: &missing},
			core.ErrNotFound,
		},
		{
			"unknown category",
			CreateTransactionInput{Type: core.Expense, Amount: dec(t, "10.00"), Date: date(2026, time.August, 1), AccountID: &acc.ID, CategoryID: &missing},
			core.ErrNotFound,
		},
		{
			"zero amount",
			CreateTransactionInput{Type: core.Expense, Amount: decimal.Zero, Date: date(2026, time.August, 1), AccountID: &acc.ID},
			core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, "u1", tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A rejected write must not move the balance.
	got, err := repo.GetAccount(ctx, "u1", acc.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Balance.String() != "100" {
		t.Errorf("balance after rejected writes = %s, want 100", got.Balance)
	}
}

func TestUpdateTransactionRevertsAndReapplies(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")

	tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "200.00"),
		Date:      date(2026, time.August, 5),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Amount change: balance reflects only the new amount.
	newAmount := dec(t, "350.00")
	if _, err := svc.UpdateTransaction(ctx, "u1", tx.ID, UpdateTransactionInput{Amount: &newAmount}); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	got, _ := repo.GetAccount(ctx, "u1", acc.ID)
	if got.Balance.String() != "650" {
		t.Errorf("balance after amount change = %s, want 650", got.Balance)
	}

	// Type flip: expense becomes income, effect swings both ways.
	income := core.Income
	if _, err := svc.UpdateTransaction(ctx, "u1", tx.ID, UpdateTransactionInput{Type: &income}); err != nil {
		t.Fatalf("update type: %v", err)
	}
	got, _ = repo.GetAccount(ctx, "u1", acc.ID)
	if got.Balance.String() != "1350" {
		t.Errorf("balance after type flip = %s, want 1350", got.Balance)
	}
}

func TestUpdateTransactionSwitchesFundingSource(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")
	card := seedCard(t, repo, "u1", "5000.00")

	tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "150.00"),
		Date:      date(2026, time.August, 5),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateTransaction(ctx, "u1", tx.ID, UpdateTransactionInput{CreditCardID: &card.ID}); err != nil {
		t.Fatalf("switch to card: %v", err)
	}

	gotAcc, _ := repo.GetAccount(ctx, "u1", acc.ID)
	if gotAcc.Balance.String() != "1000" {
		t.Errorf("account balance = %s, want 1000 (effect moved off the account)", gotAcc.Balance)
	}
	gotCard, _ := repo.GetCreditCard(ctx, "u1", card.ID)
	if gotCard.Used.String() != "150" {
		t.Errorf("card used = %s, want 150", gotCard.Used)
	}

	gotTx, err := repo.GetTransaction(ctx, "u1", tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if gotTx.AccountID != nil || gotTx.CreditCardID == nil {
		t.Errorf("funding refs = (%v, %v), want (nil, card)", gotTx.AccountID, gotTx.CreditCardID)
	}
}

func TestUpdateTransactionRejectsBothFundingSources(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")
	card := seedCard(t, repo, "u1", "5000.00")

	tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "50.00"),
		Date:      date(2026, time.August, 5),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.UpdateTransaction(ctx, "u1", tx.ID, UpdateTransactionInput{
		AccountID:    &acc.ID,
		CreditCardID: &card.ID,
	})
	if !errors.Is(err, core.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}

	got, _ := repo.GetAccount(ctx, "u1", acc.ID)
	if got.Balance.String() != "950" {
		t.Errorf("balance after rejected update = %s, want 950", got.Balance)
	}
}

func TestDeleteTransactionRevertsEffectOnce(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "500.00")

	tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "120.00"),
		Date:      date(2026, time.August, 5),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := repo.GetAccount(ctx, "u1", acc.ID)
	if got.Balance.String() != "500" {
		t.Errorf("balance after delete = %s, want 500", got.Balance)
	}

	// The second delete finds no row, so the revert cannot run twice.
	err = svc.DeleteTransaction(ctx, "u1", tx.ID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	got, _ = repo.GetAccount(ctx, "u1", acc.ID)
	if got.Balance.String() != "500" {
		t.Errorf("balance after double delete = %s, want 500", got.Balance)
	}
}

func TestApplyRevertRoundTripIsExact(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")

	// 0.10 has no exact binary representation; a float-backed balance
	// would drift over repeated apply/revert cycles.
	for i := 0; i < 50; i++ {
		tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
			Type:      core.Expense,
			Amount:    dec(t, "0.10"),
			Date:      date(2026, time.August, 5),
			AccountID: &acc.ID,
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if err := svc.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}

	got, _ := repo.GetAccount(ctx, "u1", acc.ID)
	if !got.Balance.Equal(dec(t, "1000.00")) {
		t.Errorf("balance after 50 round trips = %s, want 1000", got.Balance)
	}
}

func TestTransactionsScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "100.00")
	tx, err := svc.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "10.00"),
		Date:      date(2026, time.August, 5),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetTransaction(ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user get err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteTransaction(ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user delete err = %v, want ErrNotFound", err)
	}
}
