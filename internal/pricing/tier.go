package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BrokerTier describes the commercial terms unlocked at an annual volume threshold.
type BrokerTier struct {
	ID                          string          `json:"id"`
	Name                        TierName        `json:"name"`
	DisplayName                 string          `json:"display_name"`
	MinimumAnnualVolume         decimal.Decimal `json:"minimum_annual_volume"`
	BaseDiscountPercentage      decimal.Decimal `json:"base_discount_percentage"`
	PaymentTermsDays            int             `json:"payment_terms_days"`
	RushOrderDiscountPercentage decimal.Decimal `json:"rush_order_discount_percentage"`
	FreeShippingThreshold       decimal.Decimal `json:"free_shipping_threshold"`
}

// TierTable is an immutable table of tiers ordered by ascending threshold.
type TierTable struct {
	tiers []BrokerTier
}

// NewTierTable validates the provided tiers and returns an immutable table.
// Tiers must already be ordered by strictly increasing minimum annual volume.
func NewTierTable(tiers []BrokerTier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, configErrorf("tier table", "at least one tier is required")
	}
	seen := make(map[TierName]struct{}, len(tiers))
	for i, tier := range tiers {
		if strings.TrimSpace(string(tier.Name)) == "" {
			return nil, configErrorf("tier table", "tier %d has no name", i)
		}
		if _, dup := seen[tier.Name]; dup {
			return nil, configErrorf("tier table", "duplicate tier %q", tier.Name)
		}
		seen[tier.Name] = struct{}{}
		if tier.MinimumAnnualVolume.Sign() < 0 {
			return nil, configErrorf("tier table", "tier %q has a negative threshold", tier.Name)
		}
		if i > 0 && !tier.MinimumAnnualVolume.GreaterThan(tiers[i-1].MinimumAnnualVolume) {
			return nil, configErrorf("tier table", "tier %q threshold %s does not exceed %q threshold %s",
				tier.Name, tier.MinimumAnnualVolume, tiers[i-1].Name, tiers[i-1].MinimumAnnualVolume)
		}
		if !validPercentage(tier.BaseDiscountPercentage) {
			return nil, configErrorf("tier table", "tier %q base discount %s outside [0,100]", tier.Name, tier.BaseDiscountPercentage)
		}
		if !validPercentage(tier.RushOrderDiscountPercentage) {
			return nil, configErrorf("tier table", "tier %q rush discount %s outside [0,100]", tier.Name, tier.RushOrderDiscountPercentage)
		}
		if tier.PaymentTermsDays < 0 {
			return nil, configErrorf("tier table", "tier %q has negative payment terms", tier.Name)
		}
		if tier.FreeShippingThreshold.Sign() < 0 {
			return nil, configErrorf("tier table", "tier %q has a negative free shipping threshold", tier.Name)
		}
	}
	out := make([]BrokerTier, len(tiers))
	copy(out, tiers)
	return &TierTable{tiers: out}, nil
}

// DefaultTierTable returns the platform's standard four tier table.
func DefaultTierTable() *TierTable {
	table, err := NewTierTable([]BrokerTier{
		{
			ID:                          "tier_bronze",
			Name:                        TierBronze,
			DisplayName:                 "Bronze",
			MinimumAnnualVolume:         decimal.NewFromInt(10_000),
			BaseDiscountPercentage:      decimal.NewFromInt(5),
			PaymentTermsDays:            15,
			RushOrderDiscountPercentage: decimal.NewFromInt(10),
			FreeShippingThreshold:       decimal.NewFromInt(500),
		},
		{
			ID:                          "tier_silver",
			Name:                        TierSilver,
			DisplayName:                 "Silver",
			MinimumAnnualVolume:         decimal.NewFromInt(25_000),
			BaseDiscountPercentage:      decimal.NewFromInt(10),
			PaymentTermsDays:            30,
			RushOrderDiscountPercentage: decimal.NewFromInt(25),
			FreeShippingThreshold:       decimal.NewFromInt(250),
		},
		{
			ID:                          "tier_gold",
			Name:                        TierGold,
			DisplayName:                 "Gold",
			MinimumAnnualVolume:         decimal.NewFromInt(50_000),
			BaseDiscountPercentage:      decimal.NewFromInt(15),
			PaymentTermsDays:            30,
			RushOrderDiscountPercentage: decimal.NewFromInt(50),
			FreeShippingThreshold:       decimal.NewFromInt(100),
		},
		{
			ID:                          "tier_platinum",
			Name:                        TierPlatinum,
			DisplayName:                 "Platinum",
			MinimumAnnualVolume:         decimal.NewFromInt(100_000),
			BaseDiscountPercentage:      decimal.NewFromInt(20),
			PaymentTermsDays:            45,
			RushOrderDiscountPercentage: decimal.NewFromInt(75),
			FreeShippingThreshold:       decimal.Zero,
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// Tiers returns a copy of the table in ascending order.
func (t *TierTable) Tiers() []BrokerTier {
	if t == nil {
		return nil
	}
	out := make([]BrokerTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// ByName looks up a tier by name.
func (t *TierTable) ByName(name TierName) (BrokerTier, bool) {
	if t == nil {
		return BrokerTier{}, false
	}
	for _, tier := range t.tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return BrokerTier{}, false
}

// Resolve returns the highest tier whose threshold is met by volume, or nil.
func (t *TierTable) Resolve(volume decimal.Decimal) *BrokerTier {
	if t == nil {
		return nil
	}
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if volume.GreaterThanOrEqual(t.tiers[i].MinimumAnnualVolume) {
			tier := t.tiers[i]
			return &tier
		}
	}
	return nil
}

func (t *TierTable) rank(name TierName) int {
	for i, tier := range t.tiers {
		if tier.Name == name {
			return i
		}
	}
	return -1
}

func validPercentage(d decimal.Decimal) bool {
	return d.Sign() >= 0 && d.LessThanOrEqual(hundred)
}
