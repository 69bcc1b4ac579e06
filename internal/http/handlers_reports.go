package http

import (
	"net/http"
	"time"
)

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	statuses, err := s.reports.BudgetsWithSpent(r.Context(), uid, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetStatusDTO, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toBudgetStatusDTO(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCashFlowReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")

	series, err := s.reports.CashFlow(r.Context(), uid, period, time.Now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	type point struct {
		Name    string `json:"name"`
		Income  string `json:"income"`
		Expense string `json:"expense"`
	}
	out := make([]point, 0, len(series))
	for _, p := range series {
		out = append(out, point{Name: p.Name, Income: p.Income.String(), Expense: p.Expense.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	spend, err := s.reports.SpendByCategory(r.Context(), uid, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	type row struct {
		CategoryID   string `json:"category_id"`
		CategoryName string `json:"category_name"`
		Amount       string `json:"amount"`
	}
	out := make([]row, 0, len(spend))
	for _, cs := range spend {
		out = append(out, row{CategoryID: cs.CategoryID, CategoryName: cs.CategoryName, Amount: cs.Amount.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFixedVariableReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	split, err := s.reports.FixedVariable(r.Context(), uid, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"fixed":    split.Fixed.String(),
		"variable": split.Variable.String(),
		"total":    split.Total.String(),
	})
}
