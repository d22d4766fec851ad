package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/obs"
)

// ProfileSource resolves the broker profile of a buyer. Implementations return
// (nil, nil) when the buyer has no broker account.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*BrokerProfile, error)
}

// QuoteRecorder receives an audit copy of every priced quote.
type QuoteRecorder interface {
	Record(ctx context.Context, rec QuoteRecord) error
}

// QuoteRecord is the persisted form of a calculated quote.
type QuoteRecord struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id,omitempty"`
	ProductID   string           `json:"product_id"`
	CategoryID  string           `json:"category_id"`
	IsBroker    bool             `json:"is_broker"`
	Calculation PriceCalculation `json:"calculation"`
	Summary     DiscountSummary  `json:"discount_summary"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CalculateInput is the validated body of a calculate request.
type CalculateInput struct {
	CategoryID string
	ProductID  string
	Quantity   int
	BasePrice  decimal.Decimal
	RushOrder  bool
}

// CalculateResult is returned by Service.Calculate.
type CalculateResult struct {
	Pricing           PriceCalculation `json:"pricing"`
	DiscountSummary   DiscountSummary  `json:"discount_summary"`
	VolumeBreakpoints []int            `json:"volume_breakpoints"`
	IsBroker          bool             `json:"is_broker"`
	BrokerTier        *BrokerTier      `json:"broker_tier"`
	QuoteID           string           `json:"quote_id,omitempty"`
}

// PreviewInput is the validated body of a preview request.
type PreviewInput struct {
	CategoryID         string
	ProductID          string
	BasePrice          decimal.Decimal
	Quantities         []int
	RushOrder          bool
	SimulateBrokerTier TierName
}

// PreviewResult is returned by Service.Preview.
type PreviewResult struct {
	PricingMatrix     []PricingMatrixEntry `json:"pricing_matrix"`
	VolumeBreakpoints []int                `json:"volume_breakpoints"`
	BrokerTiers       []BrokerTier         `json:"broker_tiers"`
	IsBroker          bool                 `json:"is_broker"`
	CurrentTier       *BrokerTier          `json:"current_tier"`
	BrokerPotential   *BrokerPotential     `json:"broker_potential,omitempty"`
}

// Service resolves buyer state and runs the calculator for HTTP callers.
type Service struct {
	Calculator *Calculator
	Profiles   ProfileSource
	Quotes     QuoteRecorder
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Calculate prices a single quantity for the buyer identified by userID.
// An empty userID is an anonymous, non-broker buyer.
func (s *Service) Calculate(ctx context.Context, userID string, in CalculateInput) (CalculateResult, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		obs.RecordPricing("calculate", "unknown", "error")
		return CalculateResult{}, err
	}
	pc := PricingContext{
		UserID:        userID,
		IsBroker:      profile != nil,
		BrokerProfile: profile,
		CategoryID:    in.CategoryID,
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		BasePrice:     in.BasePrice,
		RushOrder:     in.RushOrder,
	}
	buyer := buyerLabel(profile)
	if err := pc.Validate(); err != nil {
		obs.RecordPricing("calculate", buyer, "invalid")
		return CalculateResult{}, err
	}
	calc, err := s.Calculator.Calculate(pc)
	if err != nil {
		obs.RecordPricing("calculate", buyer, "error")
		return CalculateResult{}, err
	}
	summary := s.Calculator.CalculateDiscountSummary(calc, profile)
	obs.RecordPricing("calculate", buyer, "ok")
	obs.ObserveSavings(buyer, summary.SavingsPercentage.InexactFloat64())

	result := CalculateResult{
		Pricing:           calc,
		DiscountSummary:   summary,
		VolumeBreakpoints: s.Calculator.Breakpoints().Quantities(),
		IsBroker:          profile.Active(),
		BrokerTier:        s.Calculator.EffectiveTier(profile),
	}
	if s.Quotes != nil {
		rec := QuoteRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			ProductID:   in.ProductID,
			CategoryID:  in.CategoryID,
			IsBroker:    result.IsBroker,
			Calculation: calc,
			Summary:     summary,
			CreatedAt:   s.now(),
		}
		if err := s.Quotes.Record(ctx, rec); err != nil {
			s.Logger.Error().Err(err).Str("product_id", in.ProductID).Msg("record pricing quote")
		} else {
			result.QuoteID = rec.ID
		}
	}
	return result, nil
}

// Preview builds a pricing matrix over quantities (or the configured
// breakpoints) and, for buyers without an active broker account, an optional
// simulation of a broker tier.
func (s *Service) Preview(ctx context.Context, userID string, in PreviewInput) (PreviewResult, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		obs.RecordPricing("preview", "unknown", "error")
		return PreviewResult{}, err
	}
	buyer := buyerLabel(profile)
	template := PricingContext{
		UserID:        userID,
		IsBroker:      profile != nil,
		BrokerProfile: profile,
		CategoryID:    in.CategoryID,
		ProductID:     in.ProductID,
		Quantity:      1,
		BasePrice:     in.BasePrice,
		RushOrder:     in.RushOrder,
	}
	var errs ValidationErrors
	if err := template.Validate(); err != nil {
		errors.As(err, &errs)
	}
	for i, q := range in.Quantities {
		if q < 1 {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("quantities[%d]", i), Message: "must be a positive integer"})
		}
	}
	if len(errs) > 0 {
		obs.RecordPricing("preview", buyer, "invalid")
		return PreviewResult{}, errs
	}

	matrix, err := s.Calculator.BuildPricingMatrix(template, in.Quantities)
	if err != nil {
		obs.RecordPricing("preview", buyer, "error")
		return PreviewResult{}, err
	}
	result := PreviewResult{
		PricingMatrix:     matrix,
		VolumeBreakpoints: s.Calculator.Breakpoints().Quantities(),
		BrokerTiers:       s.Calculator.Tiers().Tiers(),
		IsBroker:          profile.Active(),
		CurrentTier:       s.Calculator.EffectiveTier(profile),
	}
	if in.SimulateBrokerTier != "" && !result.IsBroker {
		potential, err := s.Calculator.SimulateTier(template, in.SimulateBrokerTier, in.Quantities)
		if err != nil {
			if errors.Is(err, ErrUnknownTier) {
				obs.RecordPricing("preview", buyer, "invalid")
				return PreviewResult{}, ValidationErrors{{Field: "simulate_broker_tier", Message: "unknown tier"}}
			}
			obs.RecordPricing("preview", buyer, "error")
			return PreviewResult{}, err
		}
		result.BrokerPotential = potential
	}
	obs.RecordPricing("preview", buyer, "ok")
	return result, nil
}

// Tiers returns the static tier table.
func (s *Service) Tiers() []BrokerTier {
	return s.Calculator.Tiers().Tiers()
}

func (s *Service) profile(ctx context.Context, userID string) (*BrokerProfile, error) {
	if userID == "" || s.Profiles == nil {
		return nil, nil
	}
	profile, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		if IsConfigurationError(err) {
			s.Logger.Error().Err(err).Str("user_id", userID).Msg("broker profile failed validation")
		}
		return nil, fmt.Errorf("resolve broker profile: %w", err)
	}
	return profile, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func buyerLabel(profile *BrokerProfile) string {
	switch {
	case profile.Active():
		return "broker"
	case profile != nil:
		return "inactive_broker"
	default:
		return "standard"
	}
}
