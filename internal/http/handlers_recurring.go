package http

import (
	"net/http"

	"conti/internal/core"
	"conti/internal/services"
)

type createRecurringRequest struct {
	Type       string  `json:"type"`
	Amount     string  `json:"amount"`
	CategoryID *string `json:"category_id"`
	Frequency  string  `json:"frequency"`
	CustomDays *int    `json:"custom_days"`
	StartDate  string  `json:"start_date"`
	Active     *bool   `json:"active"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, core.ErrInvalidDate)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rt, err := s.recurring.Create(r.Context(), uid, services.CreateRecurringInput{
		Type:       core.TransactionType(req.Type),
		Amount:     amount,
		CategoryID: req.CategoryID,
		Frequency:  core.Frequency(req.Frequency),
		CustomDays: req.CustomDays,
		StartDate:  start,
		Active:     active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringDTO(rt))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	rt, err := s.recurring.Get(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringDTO(rt))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	rts, err := s.recurring.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]recurringDTO, 0, len(rts))
	for i := range rts {
		out = append(out, toRecurringDTO(&rts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateRecurringRequest struct {
	Type       *string `json:"type"`
	Amount     *string `json:"amount"`
	CategoryID *string `json:"category_id"`
	Frequency  *string `json:"frequency"`
	CustomDays *int    `json:"custom_days"`
	StartDate  *string `json:"start_date"`
	Active     *bool   `json:"active"`
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.UpdateRecurringInput{
		CategoryID: req.CategoryID,
		CustomDays: req.CustomDays,
		Active:     req.Active,
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
	if req.Frequency != nil {
		f := core.Frequency(*req.Frequency)
		in.Frequency = &f
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			writeError(w, r, core.ErrInvalidDate)
			return
		}
		in.StartDate = &start
	}

	rt, err := s.recurring.Update(r.Context(), uid, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringDTO(rt))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.recurring.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
