package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingMatrixEntry is one row of a multi-quantity preview.
type PricingMatrixEntry struct {
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	TotalBasePrice decimal.Decimal  `json:"total_base_price"`
	Calculation    PriceCalculation `json:"calculation"`
	UnitFinalPrice decimal.Decimal  `json:"unit_final_price"`
	SavingsPerUnit decimal.Decimal  `json:"savings_per_unit"`
}

// BuildPricingMatrix runs Calculate once per quantity, preserving the order of
// quantities. The template is copied per row with only Quantity varied. An
// empty quantities slice falls back to the configured breakpoints.
func (c *Calculator) BuildPricingMatrix(template PricingContext, quantities []int) ([]PricingMatrixEntry, error) {
	if len(quantities) == 0 {
		quantities = c.breakpoints.Quantities()
	}
	entries := make([]PricingMatrixEntry, 0, len(quantities))
	for _, qty := range quantities {
		row := template
		row.Quantity = qty
		calc, err := c.Calculate(row)
		if err != nil {
			return nil, fmt.Errorf("price quantity %d: %w", qty, err)
		}
		perUnit := decimal.NewFromInt(int64(qty))
		entries = append(entries, PricingMatrixEntry{
			Quantity:       qty,
			UnitPrice:      template.BasePrice,
			TotalBasePrice: calc.Subtotal,
			Calculation:    calc,
			UnitFinalPrice: roundUnit(calc.FinalPrice.Div(perUnit)),
			SavingsPerUnit: roundUnit(calc.Savings.Div(perUnit)),
		})
	}
	return entries, nil
}
