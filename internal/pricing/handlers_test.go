package pricing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/pricing"
)

type profileMap map[string]*pricing.BrokerProfile

func (m profileMap) Get(_ context.Context, userID string) (*pricing.BrokerProfile, error) {
	return m[userID], nil
}

type unavailableProfiles struct{}

func (unavailableProfiles) Get(context.Context, string) (*pricing.BrokerProfile, error) {
	return nil, fmt.Errorf("%w: breaker open", pricing.ErrProfileUnavailable)
}

type errorResponse struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details []common.FieldError `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T, userID string) http.Handler {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.CalculatorConfig{RushRate: pricing.DefaultRushRate})
	require.NoError(t, err)
	h := &pricing.Handler{
		Svc: &pricing.Service{
			Calculator: calc,
			Profiles: profileMap{"broker-1": {
				UserID: "broker-1",
				Tier:   pricing.TierSilver,
				Status: pricing.StatusActive,
			}},
			Logger: zerolog.Nop(),
		},
		Validate:             common.NewValidator(),
		Logger:               zerolog.Nop(),
		MaxPreviewQuantities: 5,
		Currency:             "EUR",
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(common.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/v1/pricing/calculate", h.Calculate)
	r.Post("/api/v1/pricing/preview", h.Preview)
	r.Get("/api/v1/pricing/tiers", h.Tiers)
	return r
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCalculateHandler(t *testing.T) {
	t.Run("broker pricing", func(t *testing.T) {
		rec := do(t, newRouter(t, "broker-1"), http.MethodPost, "/api/v1/pricing/calculate",
			`{"category_id":"business-cards","product_id":"bc","quantity":1000,"base_price":"1.00"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data pricing.CalculateResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, resp.Data.IsBroker)
		require.True(t, decimal.RequireFromString("900").Equal(resp.Data.Pricing.FinalPrice))
		require.Equal(t, "Silver", *resp.Data.DiscountSummary.TierDisplayName)
		require.Contains(t, rec.Body.String(), `"meta":{"currency":"EUR"}`)
	})

	t.Run("numeric base price accepted", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/calculate",
			`{"category_id":"flyers","product_id":"f","quantity":100,"base_price":2}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Contains(t, rec.Body.String(), `"final_price":"200"`)
	})

	t.Run("validation failures", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/calculate",
			`{"category_id":"flyers","quantity":0,"base_price":"-1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		require.ElementsMatch(t, []string{"product_id", "quantity", "base_price"}, fields)
	})

	t.Run("missing base price", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/calculate",
			`{"category_id":"flyers","product_id":"f","quantity":1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "base_price")
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/calculate", `{`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "BAD_REQUEST")
	})

	t.Run("profiles unavailable", func(t *testing.T) {
		calc, err := pricing.NewCalculator(pricing.CalculatorConfig{RushRate: pricing.DefaultRushRate})
		require.NoError(t, err)
		h := &pricing.Handler{
			Svc:      &pricing.Service{Calculator: calc, Profiles: unavailableProfiles{}, Logger: zerolog.Nop()},
			Validate: common.NewValidator(),
			Logger:   zerolog.Nop(),
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/calculate",
			strings.NewReader(`{"category_id":"flyers","product_id":"f","quantity":10,"base_price":"1"}`))
		req = req.WithContext(common.WithUserID(req.Context(), "broker-1"))
		rec := httptest.NewRecorder()
		h.Calculate(rec, req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "5", rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), "PROFILE_UNAVAILABLE")
	})
}

func TestPreviewHandler(t *testing.T) {
	t.Run("matrix with simulation", func(t *testing.T) {
		rec := do(t, newRouter(t, "user-9"), http.MethodPost, "/api/v1/pricing/preview",
			`{"category_id":"flyers","product_id":"f","base_price":"1.00","quantities":[1,25,100],"simulate_broker_tier":"Gold"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Data pricing.PreviewResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.PricingMatrix, 3)
		require.NotNil(t, resp.Data.BrokerPotential)
		require.Equal(t, pricing.TierGold, resp.Data.BrokerPotential.Tier.Name)
	})

	t.Run("too many quantities", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/preview",
			`{"category_id":"flyers","product_id":"f","base_price":"1.00","quantities":[1,2,3,4,5,6]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "quantities")
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/preview",
			`{"category_id":"flyers","product_id":"f","base_price":"1.00","quantities":[5,0]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("unknown simulated tier", func(t *testing.T) {
		rec := do(t, newRouter(t, ""), http.MethodPost, "/api/v1/pricing/preview",
			`{"category_id":"flyers","product_id":"f","base_price":"1.00","simulate_broker_tier":"diamond"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "simulate_broker_tier")
	})
}

func TestTiersHandler(t *testing.T) {
	rec := do(t, newRouter(t, ""), http.MethodGet, "/api/v1/pricing/tiers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []pricing.BrokerTier `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	require.Equal(t, pricing.TierBronze, resp.Data[0].Name)
	require.Equal(t, pricing.TierPlatinum, resp.Data[3].Name)
}
