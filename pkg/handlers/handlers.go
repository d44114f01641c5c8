// Package handlers provides shared HTTP response helpers for domain handlers.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/genomecurate/curia/pkg/schema"
)

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes a JSON error body and logs server-side failures.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	}
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// RespondValidation writes a structured validation failure as 422 with the
// field-path error list. Validation failures are reportable outcomes, not
// server errors, so nothing is logged.
func RespondValidation(w http.ResponseWriter, result schema.Result) {
	RespondJSON(w, http.StatusUnprocessableEntity, result)
}
