package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierTableResolve(t *testing.T) {
	table := DefaultTierTable()
	cases := []struct {
		volume string
		want   TierName
	}{
		{"0", ""},
		{"9999.99", ""},
		{"10000", TierBronze},
		{"24999", TierBronze},
		{"25000", TierSilver},
		{"50000", TierGold},
		{"99999.99", TierGold},
		{"100000", TierPlatinum},
		{"5000000", TierPlatinum},
	}
	for _, tc := range cases {
		got := table.Resolve(dec(tc.volume))
		if tc.want == "" {
			require.Nil(t, got, tc.volume)
			continue
		}
		require.NotNil(t, got, tc.volume)
		require.Equal(t, tc.want, got.Name, tc.volume)
	}
}

func TestTierTableIsImmutable(t *testing.T) {
	table := DefaultTierTable()
	tiers := table.Tiers()
	tiers[0].BaseDiscountPercentage = dec("99")
	bronze, ok := table.ByName(TierBronze)
	require.True(t, ok)
	requireMoney(t, "5", bronze.BaseDiscountPercentage)
}

func TestNewTierTableRejectsBadConfig(t *testing.T) {
	cases := map[string][]BrokerTier{
		"empty":          nil,
		"unnamed":        {{Name: " "}},
		"duplicate":      {{Name: "a", MinimumAnnualVolume: dec("1")}, {Name: "a", MinimumAnnualVolume: dec("2")}},
		"not increasing": {{Name: "a", MinimumAnnualVolume: dec("10")}, {Name: "b", MinimumAnnualVolume: dec("10")}},
		"discount > 100": {{Name: "a", BaseDiscountPercentage: dec("100.01")}},
		"negative rush":  {{Name: "a", RushOrderDiscountPercentage: dec("-1")}},
		"negative terms": {{Name: "a", PaymentTermsDays: -1}},
	}
	for name, tiers := range cases {
		_, err := NewTierTable(tiers)
		require.Error(t, err, name)
		require.True(t, IsConfigurationError(err), name)
	}
}

func TestMatchCategoryPicksHighestDuplicate(t *testing.T) {
	discounts := []CategoryDiscount{
		{CategoryID: "flyers", DiscountPercentage: dec("4")},
		{CategoryID: "posters", DiscountPercentage: dec("30")},
		{CategoryID: " flyers ", DiscountPercentage: dec("9")},
		{CategoryID: "flyers", DiscountPercentage: dec("6")},
	}
	requireMoney(t, "9", ResolveCategoryDiscount(discounts, "flyers"))
	requireMoney(t, "0", ResolveCategoryDiscount(discounts, "banners"))
	requireMoney(t, "0", ResolveCategoryDiscount(discounts, ""))
	requireMoney(t, "0", ResolveCategoryDiscount(nil, "flyers"))
}

func TestValidateCategoryDiscount(t *testing.T) {
	zero := 0
	err := ValidateCategoryDiscount(CategoryDiscount{
		DiscountPercentage: dec("120"),
		VolumeMultiplier:   dec("0.9"),
		MinimumQuantity:    &zero,
	})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 4)

	require.NoError(t, ValidateCategoryDiscount(CategoryDiscount{CategoryID: "flyers", DiscountPercentage: dec("10")}))
	require.NoError(t, ValidateCategoryDiscount(CategoryDiscount{CategoryID: "flyers", VolumeMultiplier: dec("1")}))
}

func TestValidateProfile(t *testing.T) {
	table := DefaultTierTable()
	require.NoError(t, ValidateProfile(table, nil))
	require.NoError(t, ValidateProfile(table, silverBroker()))

	unknownTier := silverBroker()
	unknownTier.Tier = "diamond"
	err := ValidateProfile(table, unknownTier)
	require.True(t, IsConfigurationError(err))
	require.True(t, errors.Is(err, ErrUnknownTier))

	badStatus := silverBroker()
	badStatus.Status = "closed"
	require.True(t, IsConfigurationError(ValidateProfile(table, badStatus)))

	negative := silverBroker()
	negative.CurrentAnnualVolume = dec("-1")
	require.True(t, IsConfigurationError(ValidateProfile(table, negative)))

	badCategory := silverBroker(CategoryDiscount{CategoryID: "flyers", VolumeMultiplier: dec("0.5")})
	err = ValidateProfile(table, badCategory)
	require.True(t, IsConfigurationError(err))
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
}

func TestBreakpoints(t *testing.T) {
	require.Equal(t, []int{1, 25, 50, 100, 250, 500, 1000}, DefaultBreakpoints().Quantities())

	b, err := NewBreakpoints([]int{10, 20})
	require.NoError(t, err)
	q := b.Quantities()
	q[0] = 99
	require.Equal(t, []int{10, 20}, b.Quantities())

	for _, bad := range [][]int{nil, {0, 5}, {5, 5}, {10, 3}} {
		_, err := NewBreakpoints(bad)
		require.True(t, IsConfigurationError(err), "%v", bad)
	}
}
