package pricing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/common"
)

// Handler exposes the pricing endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
	// MaxPreviewQuantities bounds the number of explicit quantities a preview may request.
	MaxPreviewQuantities int
	// Currency is the ISO code all amounts are denominated in.
	Currency string
}

type calculateRequest struct {
	CategoryID string           `json:"category_id" validate:"required"`
	ProductID  string           `json:"product_id" validate:"required"`
	Quantity   int              `json:"quantity" validate:"required,gt=0"`
	BasePrice  *decimal.Decimal `json:"base_price" validate:"required,gte=0"`
	RushOrder  bool             `json:"rush_order"`
}

type previewRequest struct {
	CategoryID         string           `json:"category_id" validate:"required"`
	ProductID          string           `json:"product_id" validate:"required"`
	BasePrice          *decimal.Decimal `json:"base_price" validate:"required,gte=0"`
	Quantities         []int            `json:"quantities" validate:"omitempty,dive,gt=0"`
	RushOrder          bool             `json:"rush_order"`
	SimulateBrokerTier string           `json:"simulate_broker_tier"`
}

// Calculate prices a single quantity for the caller.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	var req calculateRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, _ := common.UserID(r.Context())
	result, err := h.Svc.Calculate(r.Context(), userID, CalculateInput{
		CategoryID: strings.TrimSpace(req.CategoryID),
		ProductID:  strings.TrimSpace(req.ProductID),
		Quantity:   req.Quantity,
		BasePrice:  *req.BasePrice,
		RushOrder:  req.RushOrder,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSONData(w, http.StatusOK, result, h.meta())
}

// Preview prices a set of quantities for the caller.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.MaxPreviewQuantities > 0 && len(req.Quantities) > h.MaxPreviewQuantities {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "too many quantities", []common.FieldError{{
			Field:   "quantities",
			Message: "must not contain more than the configured number of entries",
		}})
		return
	}
	userID, _ := common.UserID(r.Context())
	result, err := h.Svc.Preview(r.Context(), userID, PreviewInput{
		CategoryID:         strings.TrimSpace(req.CategoryID),
		ProductID:          strings.TrimSpace(req.ProductID),
		BasePrice:          *req.BasePrice,
		Quantities:         req.Quantities,
		RushOrder:          req.RushOrder,
		SimulateBrokerTier: TierName(strings.ToLower(strings.TrimSpace(req.SimulateBrokerTier))),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSONData(w, http.StatusOK, result, h.meta())
}

// Tiers lists the broker tier table.
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	common.JSONData(w, http.StatusOK, h.Svc.Tiers(), nil)
}

func (h *Handler) meta() map[string]string {
	currency := h.Currency
	if currency == "" {
		currency = "USD"
	}
	return map[string]string{"currency": currency}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	v := h.Validate
	if v == nil {
		v = common.NewValidator()
	}
	if err := v.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", common.ValidationDetails(err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		details := make([]common.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, common.FieldError{Field: fe.Field, Message: fe.Message})
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", details)
	case errors.Is(err, ErrInvalidContext):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, ErrUnknownTier):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_TIER", err.Error(), nil)
	case errors.Is(err, ErrProfileUnavailable):
		h.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("broker profiles unavailable")
		w.Header().Set("Retry-After", "5")
		common.JSONError(w, http.StatusServiceUnavailable, "PROFILE_UNAVAILABLE", "broker pricing temporarily unavailable", nil)
	default:
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("pricing request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to calculate pricing", nil)
	}
}
