package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

const dateLayout = "2006-01-02"

// userID extracts the caller identity from the X-User-ID header. An empty
// header is rejected; authentication happens upstream, but an anonymous
// request has no ledger to act on.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors to HTTP statuses: missing or unowned
// records are 404, rejected input is 422, referential conflicts are 409.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidReference),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrConstraintViolation),
		errors.Is(err, storage.ErrDuplicateBudget):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// --- wire representations ---

type transactionDTO struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Amount       string  `json:"amount"`
	Date         string  `json:"date"`
	CategoryID   *string `json:"category_id,omitempty"`
	AccountID    *string `json:"account_id,omitempty"`
	CreditCardID *string `json:"credit_card_id,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toTransactionDTO(t *core.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		Type:         string(t.Type),
		Amount:       t.Amount.String(),
		Date:         formatDate(t.Date),
		CategoryID:   t.CategoryID,
		AccountID:    t.AccountID,
		CreditCardID: t.CreditCardID,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
}

type accountDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

func toAccountDTO(a *core.Account) accountDTO {
	return accountDTO{ID: a.ID, Name: a.Name, Currency: a.Currency, Balance: a.Balance.String()}
}

type cardDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Limit           string  `json:"limit"`
	Used            string  `json:"used"`
	Available       string  `json:"available"`
	LinkedAccountID *string `json:"linked_account_id,omitempty"`
}

func toCardDTO(c *core.CreditCard) cardDTO {
	return cardDTO{
		ID:              c.ID,
		Name:            c.Name,
		Limit:           c.Limit.String(),
		Used:            c.Used.String(),
		Available:       c.Limit.Sub(c.Used).String(),
		LinkedAccountID: c.LinkedAccountID,
	}
}

type recurringDTO struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Amount     string  `json:"amount"`
	CategoryID *string `json:"category_id,omitempty"`
	Frequency  string  `json:"frequency"`
	CustomDays *int    `json:"custom_days,omitempty"`
	StartDate  string  `json:"start_date"`
	NextDate   string  `json:"next_date"`
	Active     bool    `json:"active"`
}

func toRecurringDTO(rt *core.RecurringTransaction) recurringDTO {
	return recurringDTO{
		ID:         rt.ID,
		Type:       string(rt.Type),
		Amount:     rt.Amount.String(),
		CategoryID: rt.CategoryID,
		Frequency:  string(rt.Frequency),
		CustomDays: rt.CustomDays,
		StartDate:  formatDate(rt.StartDate),
		NextDate:   formatDate(rt.NextDate),
		Active:     rt.Active,
	}
}

type budgetDTO struct {
	ID             string `json:"id"`
	CategoryID     string `json:"category_id"`
	MonthlyLimit   string `json:"monthly_limit"`
	AlertThreshold *int   `json:"alert_threshold,omitempty"`
}

func toBudgetDTO(b *core.Budget) budgetDTO {
	return budgetDTO{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		MonthlyLimit:   b.MonthlyLimit.String(),
		AlertThreshold: b.AlertThreshold,
	}
}

type budgetStatusDTO struct {
	BudgetID       string  `json:"budget_id"`
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	MonthlyLimit   string  `json:"monthly_limit"`
	Spent          string  `json:"spent"`
	Remaining      string  `json:"remaining"`
	Percentage     float64 `json:"percentage"`
	AlertThreshold int     `json:"alert_threshold"`
	IsOverBudget   bool    `json:"is_over_budget"`
	IsNearLimit    bool    `json:"is_near_limit"`
}

func toBudgetStatusDTO(st core.BudgetStatus) budgetStatusDTO {
	return budgetStatusDTO{
		BudgetID:       st.BudgetID,
		CategoryID:     st.CategoryID,
		CategoryName:   st.CategoryName,
		MonthlyLimit:   st.MonthlyLimit.String(),
		Spent:          st.Spent.String(),
		Remaining:      st.Remaining.String(),
		Percentage:     st.Percentage,
		AlertThreshold: st.AlertThreshold,
		IsOverBudget:   st.IsOverBudget,
		IsNearLimit:    st.IsNearLimit,
	}
}
