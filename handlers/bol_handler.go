package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"idealtransport/models"
	"idealtransport/services"
)

type BOLHandler struct {
	Service *services.BOLService
	Logger  *slog.Logger
}

type bolCreated struct {
	ID          int64           `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (h *BOLHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.BOLInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	b, err := h.Service.Create(r.Context(), &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, bolCreated{ID: b.ID, TotalAmount: b.TotalAmount})
}

func bolFilter(r *http.Request) (models.BOLFilter, error) {
	q := r.URL.Query()
	var f models.BOLFilter
	var err error
	if f.StartDate, f.EndDate, err = dateRange(q); err != nil {
		return f, err
	}
	if f.Skip, err = queryInt(q, "skip"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(q, "limit"); err != nil {
		return f, err
	}
	if q.Has("limit") && f.Limit == 0 {
		return f, badRequest("limit must be between 1 and %d", models.MaxBOLLimit)
	}
	f.WorkOrder = strings.TrimSpace(q.Get("work_order"))
	f.PaymentStatus = models.PaymentStatusFilter(strings.ToLower(strings.TrimSpace(q.Get("payment_status"))))
	f.SortBy = strings.TrimSpace(q.Get("sort_by"))
	f.SortOrder = strings.ToLower(strings.TrimSpace(q.Get("sort_order")))
	return f, nil
}

func (h *BOLHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := bolFilter(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	bols, err := h.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bols)
}

func (h *BOLHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Service.ListPending(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *BOLHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	b, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BOLHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	var in models.BOLInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	b, err := h.Service.Update(r.Context(), id, &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BOLHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Bill of lading deleted successfully"})
}

func (h *BOLHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.PaymentStatus(r.Context(), chi.URLParam(r, "workOrderNo"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
