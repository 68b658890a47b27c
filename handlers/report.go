package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"idealtransport/reports"
)

// sendWorkbook buffers the workbook so a rendering failure can still be
// reported as a JSON error.
func sendWorkbook(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, book *excelize.File) {
	var buf bytes.Buffer
	if err := reports.Write(&buf, book); err != nil {
		writeError(w, r, logger, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", reports.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
