// Package services contains the business logic on top of the ledger store:
// transaction writes with balance maintenance, recurring schedule upkeep,
// account/card lifecycle and derived reporting.
//
// This file is the single writer path for balance-affecting state. Every
// create, update and delete of a transaction runs its row write and the
// matching balance adjustment inside one store transaction, so a balance
// can never reflect half of an edit.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/storage"
)

// LedgerEventPublisher publishes post-commit ledger events. The AMQP client
// satisfies it; a nil publisher disables events.
type LedgerEventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event amqp.LedgerEvent) error
}

// LedgerService owns every balance-affecting write. No other code path may
// increment or decrement Account.Balance or CreditCard.Used, except the
// explicit override escape hatch on PortfolioService.
type LedgerService struct {
	repo   *storage.SQLiteRepository
	events LedgerEventPublisher
}

func NewLedgerService(repo *storage.SQLiteRepository, events LedgerEventPublisher) *LedgerService {
	return &LedgerService{repo: repo, events: events}
}

// CreateTransactionInput carries the caller-supplied fields for a new
// transaction. Exactly one of AccountID and CreditCardID must be set.
type CreateTransactionInput struct {
	Type         core.TransactionType
	Amount       decimal.Decimal
	Date         time.Time
	CategoryID   *string
	AccountID    *string
	CreditCardID *string
	Notes        string
}

// UpdateTransactionInput carries partial updates. Nil means "leave as is";
// for the reference fields an empty string clears the reference.
type UpdateTransactionInput struct {
	Type         *core.TransactionType
	Amount       *decimal.Decimal
	Date         *time.Time
	CategoryID   *string
	AccountID    *string
	CreditCardID *string
	Notes        *string
}

// CreateTransaction validates the referenced entities, persists the row and
// applies its balance effect, all in one committed unit.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*core.Transaction, error) {
	t := &core.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         in.Type,
		Amount:       in.Amount,
		Date:         in.Date,
		CategoryID:   in.CategoryID,
		AccountID:    in.AccountID,
		CreditCardID: in.CreditCardID,
		Notes:        in.Notes,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(lt *storage.LedgerTx) error {
		if err := validateReferences(ctx, lt, t); err != nil {
			return err
		}
		if err := lt.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return applyEffect(ctx, lt, t)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"funded_by_account", t.AccountID != nil)

	s.publish(ctx, amqp.OpCreated, t)
	return t, nil
}

// UpdateTransaction edits a transaction with the revert/reapply protocol:
// the old balance effect is fully undone, then the effect of the merged
// state is fully applied. This avoids per-field delta math when amount,
// type and funding source change together, and the whole sequence commits
// as one store transaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, in UpdateTransactionInput) (*core.Transaction, error) {
	// Supplying both funding sources is rejected up front; merging would
	// otherwise silently keep whichever was applied last.
	if refSet(in.AccountID) && refSet(in.CreditCardID) {
		return nil, core.ErrInvalidReference
	}

	var updated *core.Transaction
	err := s.repo.WithTx(ctx, func(lt *storage.LedgerTx) error {
		t, err := lt.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}

		if err := revertEffect(ctx, lt, t); err != nil {
			return err
		}

		mergeUpdate(t, in)
		if err := t.Validate(); err != nil {
			return err
		}
		if err := validateReferences(ctx, lt, t); err != nil {
			return err
		}

		if err := lt.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		if err := applyEffect(ctx, lt, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", updated.ID,
		"type", updated.Type,
		"amount", updated.Amount.String())

	s.publish(ctx, amqp.OpUpdated, updated)
	return updated, nil
}

// DeleteTransaction removes the row and reverts its balance effect in one
// committed unit. A second delete finds no row and fails ErrNotFound, so an
// effect can never be reverted twice.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	var deleted *core.Transaction
	err := s.repo.WithTx(ctx, func(lt *storage.LedgerTx) error {
		t, err := lt.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := lt.DeleteTransaction(ctx, userID, id); err != nil {
			return err
		}
		if err := revertEffect(ctx, lt, t); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", deleted.ID,
		"type", deleted.Type,
		"amount", deleted.Amount.String())

	s.publish(ctx, amqp.OpDeleted, deleted)
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]core.Transaction, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// applyEffect applies the transaction's balance effect to its funding
// source. Income on a credit card deliberately has no effect: expenses
// increase Used, income never decreases it.
func applyEffect(ctx context.Context, lt *storage.LedgerTx, t *core.Transaction) error {
	return adjustEffect(ctx, lt, t, false)
}

// revertEffect undoes the transaction's balance effect with the inverted
// sign rules of applyEffect.
func revertEffect(ctx context.Context, lt *storage.LedgerTx, t *core.Transaction) error {
	return adjustEffect(ctx, lt, t, true)
}

func adjustEffect(ctx context.Context, lt *storage.LedgerTx, t *core.Transaction, invert bool) error {
	if t.AccountID != nil {
		acc, err := lt.GetAccount(ctx, t.UserID, *t.AccountID)
		if err != nil {
			return fmt.Errorf("load funding account: %w", err)
		}
		delta := core.Delta(t.Type, t.Amount)
		if invert {
			delta = delta.Neg()
		}
		return lt.SetAccountBalance(ctx, acc.ID, acc.Balance.Add(delta))
	}

	// Card funded: only expenses touch Used.
	if t.Type != core.Expense {
		return nil
	}
	card, err := lt.GetCreditCard(ctx, t.UserID, *t.CreditCardID)
	if err != nil {
		return fmt.Errorf("load funding card: %w", err)
	}
	used := card.Used.Add(t.Amount)
	if invert {
		used = card.Used.Sub(t.Amount)
	}
	return lt.SetCardUsed(ctx, card.ID, used)
}

// validateReferences checks that every referenced entity exists and belongs
// to the transaction's owner. Unowned references fail ErrNotFound rather
// than leaking existence.
func validateReferences(ctx context.Context, lt *storage.LedgerTx, t *core.Transaction) error {
	if t.CategoryID != nil {
		ok, err := lt.CategoryExists(ctx, t.UserID, *t.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("category %s: %w", *t.CategoryID, core.ErrNotFound)
		}
	}
	if t.AccountID != nil {
		if _, err := lt.GetAccount(ctx, t.UserID, *t.AccountID); err != nil {
			return fmt.Errorf("account %s: %w", *t.AccountID, err)
		}
	}
	if t.CreditCardID != nil {
		if _, err := lt.GetCreditCard(ctx, t.UserID, *t.CreditCardID); err != nil {
			return fmt.Errorf("credit card %s: %w", *t.CreditCardID, err)
		}
	}
	return nil
}

func mergeUpdate(t *core.Transaction, in UpdateTransactionInput) {
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	if in.Date != nil {
		t.Date = *in.Date
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			t.CategoryID = nil
		} else {
			t.CategoryID = in.CategoryID
		}
	}
	if in.AccountID != nil {
		if *in.AccountID == "" {
			t.AccountID = nil
		} else {
			t.AccountID = in.AccountID
			t.CreditCardID = nil
		}
	}
	if in.CreditCardID != nil {
		if *in.CreditCardID == "" {
			t.CreditCardID = nil
		} else {
			t.CreditCardID = in.CreditCardID
			t.AccountID = nil
		}
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
}

func refSet(ref *string) bool {
	return ref != nil && *ref != ""
}

// publish sends a ledger event after commit. Event delivery is best-effort:
// the write already succeeded, so a broker failure is logged and swallowed.
func (s *LedgerService) publish(ctx context.Context, op string, t *core.Transaction) {
	if s.events == nil {
		return
	}
	event := amqp.LedgerEvent{
		Op:            op,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		Date:          t.Date,
		CategoryID:    t.CategoryID,
		AccountID:     t.AccountID,
		CreditCardID:  t.CreditCardID,
	}
	if err := s.events.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "transaction_id", t.ID, "error", err)
	}
}
