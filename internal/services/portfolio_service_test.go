package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

func TestDeleteAccountBlockedByTransactions(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ledger := NewLedgerService(repo, nil)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "1000.00")
	tx, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:      core.Expense,
		Amount:    dec(t, "10.00"),
		Date:      date(2026, time.August, 1),
		AccountID: &acc.ID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := portfolio.DeleteAccount(ctx, "u1", acc.ID); !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("delete err = %v, want ErrConstraintViolation", err)
	}

	// Once the ledger history is gone the account can go too.
	if err := ledger.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := portfolio.DeleteAccount(ctx, "u1", acc.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
}

func TestDeleteAccountBlockedByLinkedCard(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "0.00")
	card, err := portfolio.CreateCreditCard(ctx, "u1", "Visa", dec(t, "3000.00"), &acc.ID)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	if err := portfolio.DeleteAccount(ctx, "u1", acc.ID); !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("delete err = %v, want ErrConstraintViolation", err)
	}

	if err := portfolio.DeleteCreditCard(ctx, "u1", card.ID); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if err := portfolio.DeleteAccount(ctx, "u1", acc.ID); err != nil {
		t.Fatalf("delete account after card removed: %v", err)
	}
}

func TestDeleteCreditCardBlockedByTransactions(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ledger := NewLedgerService(repo, nil)
	ctx := context.Background()

	card := seedCard(t, repo, "u1", "3000.00")
	if _, err := ledger.CreateTransaction(ctx, "u1", CreateTransactionInput{
		Type:         core.Expense,
		Amount:       dec(t, "10.00"),
		Date:         date(2026, time.August, 1),
		CreditCardID: &card.ID,
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := portfolio.DeleteCreditCard(ctx, "u1", card.ID); !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("delete err = %v, want ErrConstraintViolation", err)
	}
}

func TestCreateCreditCardStartsUnused(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	card, err := portfolio.CreateCreditCard(ctx, "u1", "Visa", dec(t, "3000.00"), nil)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if !card.Used.IsZero() {
		t.Errorf("new card used = %s, want 0", card.Used)
	}
}

func TestCreateCreditCardRejectsUnknownLinkedAccount(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	missing := "00000000-0000-0000-0000-000000000000"
	if _, err := portfolio.CreateCreditCard(ctx, "u1", "Visa", dec(t, "3000.00"), &missing); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOverrideAccountBalance(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	acc := seedAccount(t, repo, "u1", "100.00")
	if err := portfolio.OverrideAccountBalance(ctx, "u1", acc.ID, dec(t, "987.65")); err != nil {
		t.Fatalf("override: %v", err)
	}

	got, err := repo.GetAccount(ctx, "u1", acc.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Balance.String() != "987.65" {
		t.Errorf("balance = %s, want 987.65", got.Balance)
	}
}

func TestOverrideCardUsedRejectsNegative(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	card := seedCard(t, repo, "u1", "3000.00")
	if err := portfolio.OverrideCardUsed(ctx, "u1", card.ID, dec(t, "-1.00")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestDuplicateBudgetRejected(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	cat := seedCategory(t, repo, "u1", "Groceries")
	if _, err := portfolio.CreateBudget(ctx, "u1", cat.ID, dec(t, "400.00"), nil); err != nil {
		t.Fatalf("first budget: %v", err)
	}
	if _, err := portfolio.CreateBudget(ctx, "u1", cat.ID, dec(t, "500.00"), nil); !errors.Is(err, storage.ErrDuplicateBudget) {
		t.Fatalf("second budget err = %v, want ErrDuplicateBudget", err)
	}
}

func TestCreateBudgetRejectsUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)
	portfolio := NewPortfolioService(repo)
	ctx := context.Background()

	missing := "00000000-0000-0000-0000-000000000000"
	if _, err := portfolio.CreateBudget(ctx, "u1", missing, dec(t, "400.00"), nil); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
