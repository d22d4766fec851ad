package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRushRate is the platform rush surcharge applied before tier reductions.
var DefaultRushRate = decimal.RequireFromString("0.25")

// CalculatorConfig carries the immutable tables the calculator works from.
type CalculatorConfig struct {
	Tiers       *TierTable
	Breakpoints Breakpoints
	// RushRate is the platform rush surcharge as a fraction of the discounted subtotal.
	RushRate decimal.Decimal
}

// Calculator computes itemized prices. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	tiers       *TierTable
	breakpoints Breakpoints
	rushRate    decimal.Decimal
}

// NewCalculator validates cfg and fills unset tables with the platform defaults.
func NewCalculator(cfg CalculatorConfig) (*Calculator, error) {
	tiers := cfg.Tiers
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	breakpoints := cfg.Breakpoints
	if breakpoints.Len() == 0 {
		breakpoints = DefaultBreakpoints()
	}
	if cfg.RushRate.Sign() < 0 {
		return nil, configErrorf("rush rate", "must not be negative, got %s", cfg.RushRate)
	}
	return &Calculator{tiers: tiers, breakpoints: breakpoints, rushRate: cfg.RushRate}, nil
}

// Tiers exposes the tier table.
func (c *Calculator) Tiers() *TierTable { return c.tiers }

// Breakpoints exposes the preview breakpoints.
func (c *Calculator) Breakpoints() Breakpoints { return c.breakpoints }

// RushRate returns the platform rush rate.
func (c *Calculator) RushRate() decimal.Decimal { return c.rushRate }

// EffectiveTier returns the tier used for an active profile: the higher of the
// assigned tier and the tier earned by its qualifying volume.
func (c *Calculator) EffectiveTier(profile *BrokerProfile) *BrokerTier {
	if !profile.Active() {
		return nil
	}
	earned := c.tiers.Resolve(profile.QualifyingVolume())
	assigned, ok := c.tiers.ByName(profile.Tier)
	if !ok {
		return earned
	}
	if earned == nil || c.tiers.rank(assigned.Name) > c.tiers.rank(earned.Name) {
		return &assigned
	}
	return earned
}

// Calculate prices a single context. Tier, category and volume discounts are
// applied sequentially, each against what the previous ones left over.
func (c *Calculator) Calculate(pc PricingContext) (PriceCalculation, error) {
	if pc.Quantity < 1 || pc.BasePrice.Sign() < 0 {
		return PriceCalculation{}, fmt.Errorf("%w: quantity %d, base price %s", ErrInvalidContext, pc.Quantity, pc.BasePrice)
	}

	subtotal := pc.BasePrice.Mul(decimal.NewFromInt(int64(pc.Quantity)))
	tierAmt, categoryAmt, volumeAmt := decimal.Zero, decimal.Zero, decimal.Zero

	var (
		tier     *BrokerTier
		category CategoryDiscount
		matched  bool
	)
	if profile := pc.brokerProfile(); profile != nil {
		tier = c.EffectiveTier(profile)
		remaining := subtotal
		if tier != nil {
			tierAmt = capAt(remaining.Mul(fraction(tier.BaseDiscountPercentage)), remaining)
			remaining = remaining.Sub(tierAmt)
		}
		category, matched = MatchCategory(profile.CategoryDiscounts, pc.CategoryID)
		if matched && category.AppliesTo(pc.Quantity) {
			categoryAmt = capAt(remaining.Mul(fraction(category.DiscountPercentage)), remaining)
			remaining = remaining.Sub(categoryAmt)
			volumeAmt = capAt(remaining.Mul(category.Multiplier().Sub(one)), remaining)
		} else {
			matched = false
		}
	}

	discounted := subtotal.Sub(tierAmt).Sub(categoryAmt).Sub(volumeAmt)
	rushRate := c.rushRateFor(tier)
	rush := decimal.Zero
	if pc.RushOrder {
		rush = discounted.Mul(rushRate)
	}

	calc := PriceCalculation{
		BasePrice:        pc.BasePrice,
		Quantity:         pc.Quantity,
		Subtotal:         roundMoney(subtotal),
		TierDiscount:     roundMoney(tierAmt),
		CategoryDiscount: roundMoney(categoryAmt),
		VolumeDiscount:   roundMoney(volumeAmt),
		RushOrder:        pc.RushOrder,
		RushSurcharge:    roundMoney(rush),
	}
	// rounded components can overshoot a sub-cent subtotal; give the excess back
	// from the last applied discount first
	fitWithin(calc.Subtotal, &calc.TierDiscount, &calc.CategoryDiscount, &calc.VolumeDiscount)
	calc.TotalDiscount = calc.TierDiscount.Add(calc.CategoryDiscount).Add(calc.VolumeDiscount)
	calc.BrokerDiscount = calc.TotalDiscount
	calc.Savings = calc.TotalDiscount
	calc.FinalPrice = calc.Subtotal.Sub(calc.TotalDiscount).Add(calc.RushSurcharge)
	if calc.FinalPrice.Sign() < 0 {
		calc.FinalPrice = decimal.Zero
	}
	if tier != nil {
		name := tier.Name
		calc.AppliedTier = &name
	}

	calc.DiscountBreakdown = make([]DiscountComponent, 0, 3)
	if calc.TierDiscount.Sign() > 0 {
		calc.DiscountBreakdown = append(calc.DiscountBreakdown, DiscountComponent{
			Type:        ComponentTier,
			Amount:      calc.TierDiscount,
			Percentage:  percentOf(calc.TierDiscount, calc.Subtotal),
			Description: fmt.Sprintf("%s broker discount (%s%%)", tier.DisplayName, tier.BaseDiscountPercentage),
		})
	}
	if matched && calc.CategoryDiscount.Sign() > 0 {
		calc.DiscountBreakdown = append(calc.DiscountBreakdown, DiscountComponent{
			Type:        ComponentCategory,
			Amount:      calc.CategoryDiscount,
			Percentage:  percentOf(calc.CategoryDiscount, calc.Subtotal),
			Description: fmt.Sprintf("%s category discount (%s%%)", category.label(), category.DiscountPercentage),
		})
	}
	if matched && calc.VolumeDiscount.Sign() > 0 {
		calc.DiscountBreakdown = append(calc.DiscountBreakdown, DiscountComponent{
			Type:        ComponentVolume,
			Amount:      calc.VolumeDiscount,
			Percentage:  percentOf(calc.VolumeDiscount, calc.Subtotal),
			Description: fmt.Sprintf("%s volume multiplier (x%s)", category.label(), category.Multiplier()),
		})
	}

	calc.SurchargeBreakdown = make([]DiscountComponent, 0, 1)
	if calc.RushSurcharge.Sign() > 0 {
		desc := fmt.Sprintf("Rush order surcharge (%s%%)", rushRate.Mul(hundred).RoundBank(MoneyScale))
		if tier != nil && tier.RushOrderDiscountPercentage.Sign() > 0 {
			desc += fmt.Sprintf(", reduced %s%% for %s tier", tier.RushOrderDiscountPercentage, tier.DisplayName)
		}
		calc.SurchargeBreakdown = append(calc.SurchargeBreakdown, DiscountComponent{
			Type:        ComponentRush,
			Amount:      calc.RushSurcharge,
			Percentage:  percentOf(calc.RushSurcharge, calc.Subtotal),
			Description: desc,
		})
	}

	if err := checkConsistency(calc); err != nil {
		return PriceCalculation{}, err
	}
	return calc, nil
}

func (c *Calculator) rushRateFor(tier *BrokerTier) decimal.Decimal {
	if tier == nil {
		return c.rushRate
	}
	return c.rushRate.Mul(one.Sub(fraction(tier.RushOrderDiscountPercentage)))
}

func checkConsistency(calc PriceCalculation) error {
	for name, v := range map[string]decimal.Decimal{
		"tier_discount":     calc.TierDiscount,
		"category_discount": calc.CategoryDiscount,
		"volume_discount":   calc.VolumeDiscount,
		"rush_surcharge":    calc.RushSurcharge,
		"final_price":       calc.FinalPrice,
	} {
		if v.Sign() < 0 {
			return fmt.Errorf("%w: negative %s %s", ErrArithmetic, name, v)
		}
	}
	sum := decimal.Zero
	for _, component := range calc.DiscountBreakdown {
		if !component.Type.IsDiscount() {
			return fmt.Errorf("%w: %s entry in discount breakdown", ErrArithmetic, component.Type)
		}
		sum = sum.Add(component.Amount)
	}
	if !sum.Equal(calc.TotalDiscount) {
		return fmt.Errorf("%w: breakdown sums to %s, total discount is %s", ErrArithmetic, sum, calc.TotalDiscount)
	}
	expected := calc.Subtotal.Sub(calc.TotalDiscount).Add(calc.RushSurcharge)
	if expected.Sign() >= 0 && !expected.Equal(calc.FinalPrice) {
		return fmt.Errorf("%w: final price %s, expected %s", ErrArithmetic, calc.FinalPrice, expected)
	}
	return nil
}
