package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

// PortfolioService manages the entities transactions hang off: accounts,
// credit cards, categories and budgets. It never adjusts balances as a side
// effect of ledger activity; the two Override methods below are explicit
// corrections and say so in the log.
type PortfolioService struct {
	repo *storage.SQLiteRepository
}

func NewPortfolioService(repo *storage.SQLiteRepository) *PortfolioService {
	return &PortfolioService{repo: repo}
}

// --- accounts ---

func (s *PortfolioService) CreateAccount(ctx context.Context, userID, name, currency string, openingBalance decimal.Decimal) (*core.Account, error) {
	a := &core.Account{
		ID:       uuid.NewString(),
		UserID:   userID,
		Name:     name,
		Currency: currency,
		Balance:  openingBalance,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "name", a.Name)
	return a, nil
}

func (s *PortfolioService) GetAccount(ctx context.Context, userID, id string) (*core.Account, error) {
	return s.repo.GetAccount(ctx, userID, id)
}

func (s *PortfolioService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx, userID)
}

// UpdateAccount edits name and currency. The balance is not editable here;
// it moves with ledger writes or through OverrideAccountBalance.
func (s *PortfolioService) UpdateAccount(ctx context.Context, userID, id, name, currency string) (*core.Account, error) {
	a, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		a.Name = name
	}
	if currency != "" {
		a.Currency = currency
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAccountProfile(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount refuses to delete an account that still funds transactions
// or backs a linked credit card. Deleting it would orphan ledger history
// whose balance effects could no longer be reverted.
func (s *PortfolioService) DeleteAccount(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetAccount(ctx, userID, id); err != nil {
		return err
	}
	n, err := s.repo.CountAccountTransactions(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("account funds %d transactions: %w", n, core.ErrConstraintViolation)
	}
	n, err = s.repo.CountLinkedCards(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("account backs %d credit cards: %w", n, core.ErrConstraintViolation)
	}
	if err := s.repo.DeleteAccount(ctx, userID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted", "account_id", id)
	return nil
}

// OverrideAccountBalance force-sets a balance outside the ledger flow, for
// reconciling against a bank statement. The jump is logged because it is
// invisible to the transaction history.
func (s *PortfolioService) OverrideAccountBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error {
	a, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAccountBalance(ctx, userID, id, balance); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Account balance overridden outside ledger flow",
		"account_id", id,
		"old_balance", a.Balance.String(),
		"new_balance", balance.String())
	return nil
}

// --- credit cards ---

func (s *PortfolioService) CreateCreditCard(ctx context.Context, userID, name string, limit decimal.Decimal, linkedAccountID *string) (*core.CreditCard, error) {
	c := &core.CreditCard{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		Limit:           limit,
		Used:            decimal.Zero, // Used only ever grows through ledger writes
		LinkedAccountID: linkedAccountID,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if linkedAccountID != nil {
		if _, err := s.repo.GetAccount(ctx, userID, *linkedAccountID); err != nil {
			return nil, fmt.Errorf("linked account %s: %w", *linkedAccountID, err)
		}
	}
	if err := s.repo.CreateCreditCard(ctx, c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Credit card created", "card_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *PortfolioService) GetCreditCard(ctx context.Context, userID, id string) (*core.CreditCard, error) {
	return s.repo.GetCreditCard(ctx, userID, id)
}

func (s *PortfolioService) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	return s.repo.ListCreditCards(ctx, userID)
}

func (s *PortfolioService) UpdateCreditCard(ctx context.Context, userID, id, name string, limit *decimal.Decimal, linkedAccountID *string) (*core.CreditCard, error) {
	c, err := s.repo.GetCreditCard(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		c.Name = name
	}
	if limit != nil {
		c.Limit = *limit
	}
	if linkedAccountID != nil {
		if *linkedAccountID == "" {
			c.LinkedAccountID = nil
		} else {
			if _, err := s.repo.GetAccount(ctx, userID, *linkedAccountID); err != nil {
				return nil, fmt.Errorf("linked account %s: %w", *linkedAccountID, err)
			}
			c.LinkedAccountID = linkedAccountID
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCreditCardProfile(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCreditCard refuses to delete a card that still funds transactions.
func (s *PortfolioService) DeleteCreditCard(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetCreditCard(ctx, userID, id); err != nil {
		return err
	}
	n, err := s.repo.CountCardTransactions(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("card funds %d transactions: %w", n, core.ErrConstraintViolation)
	}
	if err := s.repo.DeleteCreditCard(ctx, userID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Credit card deleted", "card_id", id)
	return nil
}

// OverrideCardUsed force-sets the drawn amount, for reconciling after a
// card statement payment. Logged for the same reason as the account
// override.
func (s *PortfolioService) OverrideCardUsed(ctx context.Context, userID, id string, used decimal.Decimal) error {
	c, err := s.repo.GetCreditCard(ctx, userID, id)
	if err != nil {
		return err
	}
	if used.IsNegative() {
		return core.ErrInvalidAmount
	}
	if err := s.repo.SetCardUsed(ctx, userID, id, used); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Card used amount overridden outside ledger flow",
		"card_id", id,
		"old_used", c.Used.String(),
		"new_used", used.String())
	return nil
}

// --- categories ---

func (s *PortfolioService) CreateCategory(ctx context.Context, userID, name string) (*core.Category, error) {
	c := &core.Category{ID: uuid.NewString(), UserID: userID, Name: name}
	if name == "" {
		return nil, core.ErrEmptyName
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PortfolioService) GetCategory(ctx context.Context, userID, id string) (*core.Category, error) {
	return s.repo.GetCategory(ctx, userID, id)
}

func (s *PortfolioService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

func (s *PortfolioService) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.repo.DeleteCategory(ctx, userID, id)
}

// --- budgets ---

func (s *PortfolioService) CreateBudget(ctx context.Context, userID, categoryID string, monthlyLimit decimal.Decimal, alertThreshold *int) (*core.Budget, error) {
	b := &core.Budget{
		ID:             uuid.NewString(),
		UserID:         userID,
		CategoryID:     categoryID,
		MonthlyLimit:   monthlyLimit,
		AlertThreshold: alertThreshold,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCategory(ctx, userID, categoryID); err != nil {
		return nil, fmt.Errorf("category %s: %w", categoryID, err)
	}
	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Budget created",
		"budget_id", b.ID,
		"category_id", b.CategoryID,
		"monthly_limit", b.MonthlyLimit.String())
	return b, nil
}

func (s *PortfolioService) GetBudget(ctx context.Context, userID, id string) (*core.Budget, error) {
	return s.repo.GetBudget(ctx, userID, id)
}

func (s *PortfolioService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID)
}

func (s *PortfolioService) UpdateBudget(ctx context.Context, userID, id string, monthlyLimit *decimal.Decimal, alertThreshold *int) (*core.Budget, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if monthlyLimit != nil {
		b.MonthlyLimit = *monthlyLimit
	}
	if alertThreshold != nil {
		b.AlertThreshold = alertThreshold
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PortfolioService) DeleteBudget(ctx context.Context, userID, id string) error {
	return s.repo.DeleteBudget(ctx, userID, id)
}
