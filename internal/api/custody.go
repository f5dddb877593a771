package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/store"
)

// CustodyHandler serves the current custody overview.
type CustodyHandler struct {
	DB *db.DB
}

// List handles GET /api/custody.
func (h *CustodyHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	entries, err := store.ListCustody(r.Context(), h.DB, claims.CompanyID)
	if err != nil {
		slog.Error("failed to list custody", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list custody")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(entries))
}
