package quote

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printshop/internal/common"
)

// AdminHandler exposes recorded quotes to operators.
type AdminHandler struct {
	Store  *Store
	Logger zerolog.Logger
}

// Get returns a recorded quote with its full breakdown.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote store not configured", nil)
		return
	}
	rec, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id must be a UUID", nil)
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "quote not found", nil)
		default:
			h.Logger.Error().Err(err).Msg("load quote")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load quote", nil)
		}
		return
	}
	common.JSONData(w, http.StatusOK, rec, nil)
}
