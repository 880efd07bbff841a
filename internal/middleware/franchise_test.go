package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freightdesk/backoffice/internal/franchise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFranchise(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		headerID   string
		headerCode string
		wantStatus int
		wantID     int64
	}{
		{"valid id", "42", "FR-042", http.StatusOK, 42},
		{"valid id without code", "7", "", http.StatusOK, 7},
		{"missing header", "", "", http.StatusUnauthorized, 0},
		{"non-numeric", "abc", "", http.StatusUnauthorized, 0},
		{"zero", "0", "", http.StatusUnauthorized, 0},
		{"negative", "-3", "", http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *franchise.Franchise
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = franchise.FromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
			if tt.headerID != "" {
				req.Header.Set(FranchiseIDHeader, tt.headerID)
			}
			if tt.headerCode != "" {
				req.Header.Set(FranchiseCodeHeader, tt.headerCode)
			}
			rec := httptest.NewRecorder()

			ResolveFranchise(logger)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantID, got.ID)
				assert.Equal(t, tt.headerCode, got.Code)
			} else {
				assert.Nil(t, got)
				assert.Contains(t, rec.Body.String(), "Franchise context required")
			}
		})
	}
}
