package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"idealtransport/repository"
	"idealtransport/services"
)

type errorResponse struct {
	Kind             string            `json:"kind"`
	Code             string            `json:"code"`
	Detail           string            `json:"detail"`
	RemainingAmount  *decimal.Decimal  `json:"remaining_amount,omitempty"`
	TransactionCount *int              `json:"transaction_count,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the JSON error body. Anything that is not a
// domain or request error is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Kind:   string(services.KindValidation),
			Code:   "invalid_input",
			Detail: reqErr.detail,
			Fields: reqErr.fields,
		})
		return
	}

	if e, ok := services.AsError(err); ok {
		body := errorResponse{
			Kind:            string(e.Kind),
			Code:            e.Code,
			Detail:          e.Detail,
			RemainingAmount: e.RemainingAmount,
		}
		if e.TransactionCount > 0 {
			count := e.TransactionCount
			body.TransactionCount = &count
		}
		status := statusOf(e.Kind)
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(w, status, body)
		return
	}

	if errors.Is(err, repository.ErrOutOfRange) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Kind:   string(services.KindValidation),
			Code:   "amount_out_of_range",
			Detail: "An amount is too large to store",
		})
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Kind:   "internal",
		Code:   "internal",
		Detail: "Internal server error",
	})
}
