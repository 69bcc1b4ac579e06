package http

import (
	"net/http"
	"strconv"

	"conti/internal/core"
	"conti/internal/services"
)

type createTransactionRequest struct {
	Type         string  `json:"type"`
	Amount       string  `json:"amount"`
	Date         string  `json:"date"`
	CategoryID   *string `json:"category_id"`
	AccountID    *string `json:"account_id"`
	CreditCardID *string `json:"credit_card_id"`
	Notes        string  `json:"notes"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, core.ErrInvalidDate)
		return
	}

	t, err := s.ledger.CreateTransaction(r.Context(), uid, services.CreateTransactionInput{
		Type:         core.TransactionType(req.Type),
		Amount:       amount,
		Date:         date,
		CategoryID:   req.CategoryID,
		AccountID:    req.AccountID,
		CreditCardID: req.CreditCardID,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

type updateTransactionRequest struct {
	Type         *string `json:"type"`
	Amount       *string `json:"amount"`
	Date         *string `json:"date"`
	CategoryID   *string `json:"category_id"`
	AccountID    *string `json:"account_id"`
	CreditCardID *string `json:"credit_card_id"`
	Notes        *string `json:"notes"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.UpdateTransactionInput{
		CategoryID:   req.CategoryID,
		AccountID:    req.AccountID,
		CreditCardID: req.CreditCardID,
		Notes:        req.Notes,
	}
	if req.Type != nil {
		typ := core.TransactionType(*req.Type)
		in.Type = &typ
	}
	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, r, core.ErrInvalidDate)
			return
		}
		in.Date = &date
	}

	t, err := s.ledger.UpdateTransaction(r.Context(), uid, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := s.ledger.ListTransactions(r.Context(), uid, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionDTO, 0, len(txs))
	for i := range txs {
		out = append(out, toTransactionDTO(&txs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
