package pricing

import "github.com/shopspring/decimal"

const (
	// MoneyScale is the number of decimal places used for currency amounts.
	MoneyScale int32 = 2
	// UnitScale is used for per-unit figures where cents are too coarse.
	UnitScale int32 = 4
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// roundMoney applies round-half-to-even at currency precision.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}

func roundUnit(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(UnitScale)
}

// fraction converts a percentage (0-100) into a multiplier.
func fraction(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}

// percentOf expresses part as a percentage of whole, 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.Sign() <= 0 {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).RoundBank(MoneyScale)
}

func capAt(v, limit decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return decimal.Zero
	}
	if v.GreaterThan(limit) {
		return limit
	}
	return v
}

// fitWithin reduces amounts, last to first, until their sum is at most limit.
func fitWithin(limit decimal.Decimal, amounts ...*decimal.Decimal) {
	excess := decimal.Zero.Sub(limit)
	for _, a := range amounts {
		excess = excess.Add(*a)
	}
	for i := len(amounts) - 1; i >= 0 && excess.Sign() > 0; i-- {
		cut := decimal.Min(*amounts[i], excess)
		*amounts[i] = amounts[i].Sub(cut)
		excess = excess.Sub(cut)
	}
}
