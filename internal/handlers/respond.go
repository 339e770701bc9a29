// Package handlers assembles the HTTP surface: webhook intake and the
// host-facing order endpoints.
package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kevin07696/poynt-sync-service/pkg/encoding"
	"go.uber.org/zap"
)

// RespondJSON writes body as JSON with the given status. The body is
// encoded before any header is sent so an encoding failure becomes a 500.
func RespondJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, body interface{}) {
	buf := encoding.GetBuffer()
	defer encoding.PutBuffer(buf)

	if err := encoding.EncodeJSON(buf, body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"success":false,"code":"INTERNAL","error":"internal error"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(statusCode)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

// RespondError writes the standard error envelope
func RespondError(w http.ResponseWriter, logger *zap.Logger, statusCode int, code, message string) {
	RespondJSON(w, logger, statusCode, map[string]interface{}{
		"success": false,
		"code":    code,
		"error":   message,
	})
}
