package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TierName identifies a broker tier.
type TierName string

const (
	TierBronze   TierName = "bronze"
	TierSilver   TierName = "silver"
	TierGold     TierName = "gold"
	TierPlatinum TierName = "platinum"
)

// AccountStatus is the lifecycle state of a broker account.
type AccountStatus string

const (
	StatusActive              AccountStatus = "active"
	StatusSuspended           AccountStatus = "suspended"
	StatusPendingVerification AccountStatus = "pending_verification"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusPendingVerification:
		return true
	}
	return false
}

// ComponentType enumerates the kinds of entries that can appear in a breakdown.
type ComponentType string

const (
	ComponentTier     ComponentType = "tier"
	ComponentCategory ComponentType = "category"
	ComponentVolume   ComponentType = "volume"
	ComponentRush     ComponentType = "rush"
)

// IsDiscount reports whether the component reduces the price.
func (c ComponentType) IsDiscount() bool {
	switch c {
	case ComponentTier, ComponentCategory, ComponentVolume:
		return true
	}
	return false
}

// DiscountComponent is one itemized line of a calculation.
type DiscountComponent struct {
	Type        ComponentType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description"`
}

// CategoryDiscount is a negotiated per-category discount owned by a broker profile.
type CategoryDiscount struct {
	CategoryID         string          `json:"category_id"`
	CategoryName       string          `json:"category_name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MinimumQuantity    *int            `json:"minimum_quantity,omitempty"`
	VolumeMultiplier   decimal.Decimal `json:"volume_multiplier"`
}

// Multiplier returns the volume multiplier, treating an unset value as 1.0.
func (c CategoryDiscount) Multiplier() decimal.Decimal {
	if c.VolumeMultiplier.IsZero() {
		return one
	}
	return c.VolumeMultiplier
}

// AppliesTo reports whether an order of the given quantity qualifies for the entry.
func (c CategoryDiscount) AppliesTo(quantity int) bool {
	if c.MinimumQuantity == nil {
		return true
	}
	return quantity >= *c.MinimumQuantity
}

func (c CategoryDiscount) label() string {
	if name := strings.TrimSpace(c.CategoryName); name != "" {
		return name
	}
	return c.CategoryID
}

// BrokerProfile is a read-only snapshot of a broker account.
type BrokerProfile struct {
	UserID                string             `json:"user_id"`
	CompanyName           string             `json:"company_name"`
	Tier                  TierName           `json:"tier"`
	CategoryDiscounts     []CategoryDiscount `json:"category_discounts"`
	CommittedAnnualVolume decimal.Decimal    `json:"committed_annual_volume"`
	CurrentAnnualVolume   decimal.Decimal    `json:"current_annual_volume"`
	Status                AccountStatus      `json:"status"`
}

// Active reports whether discounts may be applied for the profile.
func (p *BrokerProfile) Active() bool {
	return p != nil && p.Status == StatusActive
}

// QualifyingVolume is the larger of the committed and current annual volume.
func (p *BrokerProfile) QualifyingVolume() decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return decimal.Max(p.CommittedAnnualVolume, p.CurrentAnnualVolume)
}

// PricingContext is the per-call input of the calculator.
type PricingContext struct {
	UserID        string
	IsBroker      bool
	BrokerProfile *BrokerProfile
	CategoryID    string
	ProductID     string
	Quantity      int
	BasePrice     decimal.Decimal
	RushOrder     bool
}

// Validate checks the request-level preconditions of a context.
func (c PricingContext) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.CategoryID) == "" {
		errs = append(errs, &ValidationError{Field: "category_id", Message: "is required"})
	}
	if strings.TrimSpace(c.ProductID) == "" {
		errs = append(errs, &ValidationError{Field: "product_id", Message: "is required"})
	}
	if c.Quantity < 1 {
		errs = append(errs, &ValidationError{Field: "quantity", Message: "must be a positive integer"})
	}
	if c.BasePrice.Sign() < 0 {
		errs = append(errs, &ValidationError{Field: "base_price", Message: "must not be negative"})
	}
	return errs.orNil()
}

// brokerProfile returns the profile only when the context is a broker with an active account.
func (c PricingContext) brokerProfile() *BrokerProfile {
	if !c.IsBroker || !c.BrokerProfile.Active() {
		return nil
	}
	return c.BrokerProfile
}

// PriceCalculation is the itemized result of a single calculation.
type PriceCalculation struct {
	BasePrice          decimal.Decimal     `json:"base_price"`
	Quantity           int                 `json:"quantity"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	BrokerDiscount     decimal.Decimal     `json:"broker_discount"`
	VolumeDiscount     decimal.Decimal     `json:"volume_discount"`
	CategoryDiscount   decimal.Decimal     `json:"category_discount"`
	TierDiscount       decimal.Decimal     `json:"tier_discount"`
	RushOrder          bool                `json:"rush_order"`
	RushSurcharge      decimal.Decimal     `json:"rush_surcharge"`
	TotalDiscount      decimal.Decimal     `json:"total_discount"`
	FinalPrice         decimal.Decimal     `json:"final_price"`
	Savings            decimal.Decimal     `json:"savings"`
	AppliedTier        *TierName           `json:"applied_tier,omitempty"`
	DiscountBreakdown  []DiscountComponent `json:"discount_breakdown"`
	SurchargeBreakdown []DiscountComponent `json:"surcharge_breakdown"`
}
