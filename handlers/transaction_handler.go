package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idealtransport/models"
	"idealtransport/reports"
	"idealtransport/services"
)

// TransactionHandler serves the payment ledger. Every route runs behind
// Authenticate and acts for the calling user.
type TransactionHandler struct {
	Ledger *services.LedgerService
	BOLs   *services.BOLService
	Logger *slog.Logger
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	var in models.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	t, err := h.Ledger.Create(r.Context(), p.ID, &in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	start, end, err := dateRange(r.URL.Query())
	return models.TransactionFilter{StartDate: start, EndDate: end}, err
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	f, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	items, err := h.Ledger.List(r.Context(), p.ID, f)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *TransactionHandler) Report(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	f, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	items, err := h.Ledger.List(r.Context(), p.ID, f)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	book, err := reports.TransactionsWorkbook(items)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	sendWorkbook(w, r, h.Logger, "transactions", book)
}

func (h *TransactionHandler) PendingWorkOrders(w http.ResponseWriter, r *http.Request) {
	pending, err := h.BOLs.ListPending(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *TransactionHandler) WorkOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Ledger.Status(r.Context(), chi.URLParam(r, "workOrderNo"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *TransactionHandler) WorkOrderTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	list, err := h.Ledger.ListByWorkOrder(r.Context(), chi.URLParam(r, "workOrderNo"), p.ID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	t, err := h.Ledger.Get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	var upd models.TransactionUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	t, err := h.Ledger.Update(r.Context(), p.ID, id, &upd)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.Logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if err := h.Ledger.Delete(r.Context(), p.ID, id); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction deleted successfully"})
}
