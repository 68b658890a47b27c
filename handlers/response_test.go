package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"idealtransport/repository"
)

func TestWriteErrorStatuses(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"column overflow": {fmt.Errorf("insert transaction: %w", repository.ErrOutOfRange), http.StatusBadRequest, "amount_out_of_range"},
		"unexpected":      {errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodPost, "/transactions", nil), logger, tc.err)

			require.Equal(t, tc.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Code)
		})
	}
}
