package pricing

import "github.com/shopspring/decimal"

// DiscountSummary is the display view of a calculation.
type DiscountSummary struct {
	TotalSavings      decimal.Decimal `json:"total_savings"`
	SavingsPercentage decimal.Decimal `json:"savings_percentage"`
	TierDisplayName   *string         `json:"tier_display_name"`
	// StandardPrice is what a non-broker customer would pay for the same order.
	StandardPrice decimal.Decimal `json:"standard_price"`
	YourPrice     decimal.Decimal `json:"your_price"`
}

// CalculateDiscountSummary derives the savings view of calc. A nil or inactive
// profile yields no tier name but still a valid summary.
func (c *Calculator) CalculateDiscountSummary(calc PriceCalculation, profile *BrokerProfile) DiscountSummary {
	summary := DiscountSummary{
		TotalSavings:      calc.TotalDiscount,
		SavingsPercentage: percentOf(calc.TotalDiscount, calc.Subtotal),
		StandardPrice:     calc.Subtotal,
		YourPrice:         calc.FinalPrice,
	}
	if calc.RushOrder {
		summary.StandardPrice = roundMoney(calc.Subtotal.Add(calc.Subtotal.Mul(c.rushRate)))
	}
	if profile.Active() && calc.AppliedTier != nil {
		if tier, ok := c.tiers.ByName(*calc.AppliedTier); ok {
			name := tier.DisplayName
			summary.TierDisplayName = &name
		}
	}
	return summary
}
