package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// --- accounts ---

type createAccountRequest struct {
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"opening_balance"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	balance := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		// Opening balances may legitimately be negative (overdrafts), so
		// they skip the positive-amount rule.
		balance, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			writeError(w, r, core.ErrInvalidAmount)
			return
		}
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	a, err := s.portfolio.CreateAccount(r.Context(), uid, req.Name, req.Currency, balance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	a, err := s.portfolio.GetAccount(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	accounts, err := s.portfolio.ListAccounts(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountDTO, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountDTO(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.portfolio.UpdateAccount(r.Context(), uid, r.PathValue("id"), req.Name, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.portfolio.DeleteAccount(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideBalanceRequest struct {
	Balance string `json:"balance"`
}

func (s *Server) handleOverrideAccountBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req overrideBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		writeError(w, r, core.ErrInvalidAmount)
		return
	}
	if err := s.portfolio.OverrideAccountBalance(r.Context(), uid, r.PathValue("id"), balance); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- credit cards ---

type createCardRequest struct {
	Name            string  `json:"name"`
	Limit           string  `json:"limit"`
	LinkedAccountID *string `json:"linked_account_id"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	limit, err := core.ParseAmount(req.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.portfolio.CreateCreditCard(r.Context(), uid, req.Name, limit, req.LinkedAccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(c))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	c, err := s.portfolio.GetCreditCard(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardDTO(c))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cards, err := s.portfolio.ListCreditCards(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]cardDTO, 0, len(cards))
	for i := range cards {
		out = append(out, toCardDTO(&cards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateCardRequest struct {
	Name            string  `json:"name"`
	Limit           *string `json:"limit"`
	LinkedAccountID *string `json:"linked_account_id"`
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var limit *decimal.Decimal
	if req.Limit != nil {
		l, err := core.ParseAmount(*req.Limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit = &l
	}
	c, err := s.portfolio.UpdateCreditCard(r.Context(), uid, r.PathValue("id"), req.Name, limit, req.LinkedAccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardDTO(c))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.portfolio.DeleteCreditCard(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideUsedRequest struct {
	Used string `json:"used"`
}

func (s *Server) handleOverrideCardUsed(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req overrideUsedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	used, err := decimal.NewFromString(req.Used)
	if err != nil {
		writeError(w, r, core.ErrInvalidAmount)
		return
	}
	if err := s.portfolio.OverrideCardUsed(r.Context(), uid, r.PathValue("id"), used); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- categories ---

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.portfolio.CreateCategory(r.Context(), uid, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID, "name": c.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cats, err := s.portfolio.ListCategories(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, map[string]string{"id": c.ID, "name": c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.portfolio.DeleteCategory(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- budgets ---

type createBudgetRequest struct {
	CategoryID     string `json:"category_id"`
	MonthlyLimit   string `json:"monthly_limit"`
	AlertThreshold *int   `json:"alert_threshold"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	limit, err := core.ParseAmount(req.MonthlyLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.portfolio.CreateBudget(r.Context(), uid, req.CategoryID, limit, req.AlertThreshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	budgets, err := s.portfolio.ListBudgets(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetDTO, 0, len(budgets))
	for i := range budgets {
		out = append(out, toBudgetDTO(&budgets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateBudgetRequest struct {
	MonthlyLimit   *string `json:"monthly_limit"`
	AlertThreshold *int    `json:"alert_threshold"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var limit *decimal.Decimal
	if req.MonthlyLimit != nil {
		l, err := core.ParseAmount(*req.MonthlyLimit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit = &l
	}
	b, err := s.portfolio.UpdateBudget(r.Context(), uid, r.PathValue("id"), limit, req.AlertThreshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.portfolio.DeleteBudget(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
