// Package worker consumes committed ledger events off the queue and does
// the slow follow-up work outside the request path: budget alerting,
// statement export and the recurring schedule sweep.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/services"
)

// StatementAppender mirrors a committed event to an external statement.
// The Sheets export client satisfies it; nil disables export.
type StatementAppender interface {
	AppendStatementRow(ctx context.Context, event *amqp.LedgerEvent) error
}

type AlertWorker struct {
	reports   *services.ReportsService
	recurring *services.RecurringService
	exporter  StatementAppender
}

func NewAlertWorker(reports *services.ReportsService, recurring *services.RecurringService, exporter StatementAppender) *AlertWorker {
	return &AlertWorker{
		reports:   reports,
		recurring: recurring,
		exporter:  exporter,
	}
}

// HandleLedgerEvent processes one committed write. Budget evaluation
// failures are returned so the delivery is retried; export failures are
// returned for the same reason, the append is idempotent enough to repeat.
func (w *AlertWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", event.Op,
		"transaction_id", event.TransactionID,
		"type", event.Type)

	if err := w.checkBudget(ctx, event); err != nil {
		return fmt.Errorf("check budget: %w", err)
	}

	if w.exporter != nil && event.Op == amqp.OpCreated {
		if err := w.exporter.AppendStatementRow(ctx, event); err != nil {
			return fmt.Errorf("export statement row: %w", err)
		}
	}

	return nil
}

// checkBudget re-evaluates the budget of the event's category and logs a
// warning when the month's spend crosses the alert threshold or the limit.
// Deletes and income never push a budget up, so they are skipped.
func (w *AlertWorker) checkBudget(ctx context.Context, event *amqp.LedgerEvent) error {
	if event.Op == amqp.OpDeleted || event.Type != string(core.Expense) || event.CategoryID == nil {
		return nil
	}

	status, err := w.reports.BudgetStatusForCategory(ctx, event.UserID, *event.CategoryID, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil // category has no budget
		}
		return err
	}

	switch {
	case status.IsOverBudget:
		slog.WarnContext(ctx, "Budget exceeded",
			"category", status.CategoryName,
			"limit", status.MonthlyLimit.String(),
			"spent", status.Spent.String(),
			"over_by", status.Spent.Sub(status.MonthlyLimit).String())
	case status.IsNearLimit:
		slog.WarnContext(ctx, "Budget near limit",
			"category", status.CategoryName,
			"limit", status.MonthlyLimit.String(),
			"spent", status.Spent.String(),
			"percentage", fmt.Sprintf("%.0f%%", status.Percentage))
	}
	return nil
}

// RunScheduleSweep advances overdue recurring templates on a fixed
// interval until ctx is done. One sweep runs immediately on start so a
// worker restart never delays overdue templates a full interval.
func (w *AlertWorker) RunScheduleSweep(ctx context.Context, interval time.Duration) error {
	if _, err := w.recurring.Advance(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial schedule sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.recurring.Advance(ctx, time.Now()); err != nil {
				slog.ErrorContext(ctx, "Schedule sweep failed", "error", err)
			}
		}
	}
}
