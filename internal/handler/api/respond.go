package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/freightdesk/backoffice/internal/domain"
)

// envelope is the generic JSON response body.
type envelope map[string]any

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps a domain error code to an HTTP status. Internal error
// details are logged, never sent to the client.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)

	if code == domain.EINTERNAL {
		logger.Error("request failed", "error", err)
		message = "Internal server error"
	}

	respondJSON(w, errorStatus(code), envelope{
		"success": false,
		"message": message,
	})
}

func errorStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
