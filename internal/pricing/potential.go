package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PotentialSaving compares standard and simulated broker pricing at one quantity.
type PotentialSaving struct {
	Quantity      int             `json:"quantity"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	BrokerPrice   decimal.Decimal `json:"broker_price"`
	Savings       decimal.Decimal `json:"savings"`
}

// BrokerPotential is upsell information for a buyer without a broker account.
type BrokerPotential struct {
	Tier                 BrokerTier        `json:"tier"`
	Savings              []PotentialSaving `json:"savings"`
	MaxSavings           decimal.Decimal   `json:"max_savings"`
	MaxSavingsPercentage decimal.Decimal   `json:"max_savings_percentage"`
}

// SimulateTier prices template as if the buyer held an active account on the
// named tier with no category agreements.
func (c *Calculator) SimulateTier(template PricingContext, name TierName, quantities []int) (*BrokerPotential, error) {
	tier, ok := c.tiers.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
	standard := template
	standard.IsBroker = false
	standard.BrokerProfile = nil

	simulated := template
	simulated.IsBroker = true
	simulated.BrokerProfile = &BrokerProfile{
		UserID:                template.UserID,
		Tier:                  tier.Name,
		CommittedAnnualVolume: tier.MinimumAnnualVolume,
		Status:                StatusActive,
	}

	baseline, err := c.BuildPricingMatrix(standard, quantities)
	if err != nil {
		return nil, err
	}
	withTier, err := c.BuildPricingMatrix(simulated, quantities)
	if err != nil {
		return nil, err
	}

	potential := &BrokerPotential{
		Tier:                 tier,
		Savings:              make([]PotentialSaving, 0, len(withTier)),
		MaxSavings:           decimal.Zero,
		MaxSavingsPercentage: decimal.Zero,
	}
	for i, row := range withTier {
		standardPrice := baseline[i].Calculation.FinalPrice
		saving := standardPrice.Sub(row.Calculation.FinalPrice)
		potential.Savings = append(potential.Savings, PotentialSaving{
			Quantity:      row.Quantity,
			StandardPrice: standardPrice,
			BrokerPrice:   row.Calculation.FinalPrice,
			Savings:       saving,
		})
		if saving.GreaterThan(potential.MaxSavings) {
			potential.MaxSavings = saving
		}
		if pct := percentOf(saving, standardPrice); pct.GreaterThan(potential.MaxSavingsPercentage) {
			potential.MaxSavingsPercentage = pct
		}
	}
	return potential, nil
}
