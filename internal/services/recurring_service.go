package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

// RecurringService manages recurring transaction templates. Templates never
// touch balances; they only describe a schedule. NextDate is recomputed
// whenever any schedule parameter changes, and advanced past due dates by
// the sweep in Advance.
type RecurringService struct {
	repo *storage.SQLiteRepository
}

func NewRecurringService(repo *storage.SQLiteRepository) *RecurringService {
	return &RecurringService{repo: repo}
}

type CreateRecurringInput struct {
	Type       core.TransactionType
	Amount     decimal.Decimal
	CategoryID *string
	Frequency  core.Frequency
	CustomDays *int
	StartDate  time.Time
	Active     bool
}

type UpdateRecurringInput struct {
	Type       *core.TransactionType
	Amount     *decimal.Decimal
	CategoryID *string
	Frequency  *core.Frequency
	CustomDays *int
	StartDate  *time.Time
	Active     *bool
}

func (s *RecurringService) Create(ctx context.Context, userID string, in CreateRecurringInput) (*core.RecurringTransaction, error) {
	rt := &core.RecurringTransaction{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       in.Type,
		Amount:     in.Amount,
		CategoryID: in.CategoryID,
		Frequency:  in.Frequency,
		CustomDays: in.CustomDays,
		StartDate:  in.StartDate,
		Active:     in.Active,
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	warnCustomFallback(ctx, rt)

	rt.NextDate = core.NextOccurrence(rt.StartDate, rt.Frequency, customDays(rt))
	if err := s.repo.CreateRecurring(ctx, rt); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring transaction created",
		"recurring_id", rt.ID,
		"frequency", rt.Frequency,
		"next_date", rt.NextDate.Format("2006-01-02"))
	return rt, nil
}

func (s *RecurringService) Get(ctx context.Context, userID, id string) (*core.RecurringTransaction, error) {
	return s.repo.GetRecurring(ctx, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	return s.repo.ListRecurring(ctx, userID)
}

// Update applies a partial edit. When frequency, start date or custom days
// change, NextDate is recomputed from the new start date so the template
// re-anchors on the edited schedule rather than drifting from the old one.
func (s *RecurringService) Update(ctx context.Context, userID, id string, in UpdateRecurringInput) (*core.RecurringTransaction, error) {
	rt, err := s.repo.GetRecurring(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := false
	if in.Type != nil {
		rt.Type = *in.Type
	}
	if in.Amount != nil {
		rt.Amount = *in.Amount
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			rt.CategoryID = nil
		} else {
			rt.CategoryID = in.CategoryID
		}
	}
	if in.Frequency != nil {
		rt.Frequency = *in.Frequency
		scheduleChanged = true
	}
	if in.CustomDays != nil {
		rt.CustomDays = in.CustomDays
		scheduleChanged = true
	}
	if in.StartDate != nil {
		rt.StartDate = *in.StartDate
		scheduleChanged = true
	}
	if in.Active != nil {
		rt.Active = *in.Active
	}

	if err := rt.Validate(); err != nil {
		return nil, err
	}
	warnCustomFallback(ctx, rt)

	if scheduleChanged {
		rt.NextDate = core.NextOccurrence(rt.StartDate, rt.Frequency, customDays(rt))
	}
	if err := s.repo.UpdateRecurring(ctx, rt); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring transaction updated",
		"recurring_id", rt.ID,
		"schedule_changed", scheduleChanged,
		"next_date", rt.NextDate.Format("2006-01-02"))
	return rt, nil
}

func (s *RecurringService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteRecurring(ctx, userID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring transaction deleted", "recurring_id", id)
	return nil
}

// Advance steps every active template whose NextDate is not after now
// forward until it passes now. A sweep that was down for two months steps
// a monthly template twice, so the schedule never lags behind the clock.
func (s *RecurringService) Advance(ctx context.Context, now time.Time) (int, error) {
	templates, err := s.repo.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for i := range templates {
		rt := &templates[i]
		for !rt.NextDate.After(now) {
			rt.NextDate = core.NextOccurrence(rt.NextDate, rt.Frequency, customDays(rt))
			advanced++
		}
		if err := s.repo.UpdateRecurring(ctx, rt); err != nil {
			return advanced, err
		}
	}

	if advanced > 0 {
		slog.InfoContext(ctx, "Advanced recurring schedules", "occurrences", advanced)
	}
	return advanced, nil
}

func customDays(rt *core.RecurringTransaction) int {
	if rt.CustomDays == nil {
		return 0
	}
	return *rt.CustomDays
}

func warnCustomFallback(ctx context.Context, rt *core.RecurringTransaction) {
	if rt.Frequency == core.Custom && rt.CustomDays == nil {
		slog.WarnContext(ctx, "Custom frequency without custom days, falling back to monthly",
			"recurring_id", rt.ID)
	}
}
