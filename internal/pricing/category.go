package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ResolveCategoryDiscount returns the discount percentage configured for
// categoryID, or zero when the buyer has no entry for it.
func ResolveCategoryDiscount(discounts []CategoryDiscount, categoryID string) decimal.Decimal {
	match, ok := MatchCategory(discounts, categoryID)
	if !ok {
		return decimal.Zero
	}
	return match.DiscountPercentage
}

// MatchCategory returns the entry for categoryID. Duplicate entries should not
// exist; when they do the one with the highest percentage wins.
func MatchCategory(discounts []CategoryDiscount, categoryID string) (CategoryDiscount, bool) {
	target := strings.TrimSpace(categoryID)
	if target == "" {
		return CategoryDiscount{}, false
	}
	var (
		best  CategoryDiscount
		found bool
	)
	for _, d := range discounts {
		if strings.TrimSpace(d.CategoryID) != target {
			continue
		}
		if !found || d.DiscountPercentage.GreaterThan(best.DiscountPercentage) {
			best = d
			found = true
		}
	}
	return best, found
}

// ValidateCategoryDiscount checks a single entry as entered by an operator.
func ValidateCategoryDiscount(d CategoryDiscount) error {
	var errs ValidationErrors
	if strings.TrimSpace(d.CategoryID) == "" {
		errs = append(errs, &ValidationError{Field: "category_id", Message: "is required"})
	}
	if !validPercentage(d.DiscountPercentage) {
		errs = append(errs, &ValidationError{Field: "discount_percentage", Message: "must be between 0 and 100"})
	}
	if !d.VolumeMultiplier.IsZero() && d.VolumeMultiplier.LessThan(one) {
		errs = append(errs, &ValidationError{Field: "volume_multiplier", Message: "must be at least 1.0"})
	}
	if d.MinimumQuantity != nil && (*d.MinimumQuantity < 1 || *d.MinimumQuantity > math.MaxInt32) {
		errs = append(errs, &ValidationError{Field: "minimum_quantity", Message: "must be between 1 and 2147483647"})
	}
	return errs.orNil()
}

// ValidateProfile checks a loaded broker profile against the tier table.
// Any problem is a ConfigurationError: stored data must never be clamped at calculation time.
func ValidateProfile(table *TierTable, profile *BrokerProfile) error {
	if profile == nil {
		return nil
	}
	source := "broker profile " + profile.UserID
	if !profile.Status.Valid() {
		return configErrorf(source, "unknown status %q", profile.Status)
	}
	if _, ok := table.ByName(profile.Tier); !ok && profile.Tier != "" {
		return &ConfigurationError{Source: source, Message: "tier " + string(profile.Tier), Err: ErrUnknownTier}
	}
	if profile.CommittedAnnualVolume.Sign() < 0 || profile.CurrentAnnualVolume.Sign() < 0 {
		return configErrorf(source, "annual volume must not be negative")
	}
	for _, d := range profile.CategoryDiscounts {
		if err := ValidateCategoryDiscount(d); err != nil {
			return &ConfigurationError{Source: source, Message: "category " + d.CategoryID, Err: err}
		}
	}
	return nil
}
