package broker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// AdminHandler exposes operator endpoints for negotiated broker terms.
type AdminHandler struct {
	Store    *Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type categoryPayload struct {
	CategoryName       string           `json:"category_name" validate:"max=200"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"required,gte=0,lte=100"`
	MinimumQuantity    *int             `json:"minimum_quantity" validate:"omitempty,gt=0,lte=2147483647"`
	VolumeMultiplier   *decimal.Decimal `json:"volume_multiplier" validate:"omitempty,gte=1"`
}

// PutCategoryDiscount creates or replaces the discount a broker receives on one category.
func (h *AdminHandler) PutCategoryDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "broker store not configured", nil)
		return
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	categoryID := strings.TrimSpace(chi.URLParam(r, "categoryID"))
	if userID == "" || categoryID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "user and category are required", nil)
		return
	}
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	v := h.Validate
	if v == nil {
		v = common.NewValidator()
	}
	if err := v.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.ValidationDetails(err))
		return
	}

	entry := pricing.CategoryDiscount{
		CategoryID:         categoryID,
		CategoryName:       payload.CategoryName,
		DiscountPercentage: *payload.DiscountPercentage,
		MinimumQuantity:    payload.MinimumQuantity,
	}
	if payload.VolumeMultiplier != nil {
		entry.VolumeMultiplier = *payload.VolumeMultiplier
	}
	saved, err := h.Store.UpsertCategoryDiscount(r.Context(), userID, entry)
	if err != nil {
		var verrs pricing.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			details := make([]common.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, common.FieldError{Field: fe.Field, Message: fe.Message})
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", details)
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "broker profile not found", nil)
		default:
			h.Logger.Error().Err(err).Str("user_id", userID).Str("category_id", categoryID).Msg("upsert category discount")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save category discount", nil)
		}
		return
	}
	common.JSONData(w, http.StatusOK, saved, nil)
}
