// Package middleware provides HTTP middleware for the back-office API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/freightdesk/backoffice/internal/franchise"
)

const (
	// FranchiseIDHeader carries the authenticated franchise id, set by the
	// gateway after it verifies the caller's credentials.
	FranchiseIDHeader = "X-Franchise-ID"

	// FranchiseCodeHeader optionally carries the franchise's display code.
	FranchiseCodeHeader = "X-Franchise-Code"
)

// ResolveFranchise creates middleware that reads the gateway-set franchise
// headers and attaches the franchise to the request context. Requests
// without a valid franchise id are rejected with 401: this service never
// serves unscoped data.
func ResolveFranchise(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(FranchiseIDHeader)
			if raw == "" {
				unauthorized(w, "Franchise context required")
				return
			}

			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 1 {
				logger.Warn("rejected request with malformed franchise header",
					"header", raw,
					"path", r.URL.Path,
				)
				unauthorized(w, "Franchise context required")
				return
			}

			ctx := franchise.NewContext(r.Context(), &franchise.Franchise{
				ID:   id,
				Code: r.Header.Get(FranchiseCodeHeader),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultFranchise attaches a fixed franchise to every request. Intended for
// single-franchise deployments that run without a gateway; headers are
// ignored entirely.
func DefaultFranchise(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := franchise.NewContext(r.Context(), &franchise.Franchise{ID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
