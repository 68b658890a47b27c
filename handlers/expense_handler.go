package handlers

import (
	"log/slog"
	"net/http"

	"idealtransport/models"
	"idealtransport/reports"
	"idealtransport/services"
)

type ExpenseHandler struct {
	Service *services.ExpenseService
	Logger  *slog.Logger
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	var in models.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	e, err := h.Service.Create(r.Context(), p.ID, &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *ExpenseHandler) list(w http.ResponseWriter, r *http.Request) ([]*models.DailyExpense, bool) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return nil, false
	}
	start, end, err := dateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return nil, false
	}
	list, err := h.Service.List(r.Context(), p.ID, models.ExpenseFilter{StartDate: start, EndDate: end})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return nil, false
	}
	return list, true
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	if list, ok := h.list(w, r); ok {
		writeJSON(w, http.StatusOK, list)
	}
}

func (h *ExpenseHandler) Report(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	book, err := reports.ExpensesWorkbook(list)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	sendWorkbook(w, r, h.Logger, "daily_expenses", book)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	e, err := h.Service.Get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	var in models.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	e, err := h.Service.Update(r.Context(), p.ID, id, &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if err := h.Service.Delete(r.Context(), p.ID, id); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Daily expense deleted successfully"})
}
