package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTiers() []Tier {
	return []Tier{
		{Name: "Bronze", MinAmount: 0, MaxAmount: 499_999, Multiplier: decimal.NewFromInt(1)},
		{Name: "Gold", MinAmount: 500_000, MaxAmount: 1_000_000, Multiplier: decimal.RequireFromString("1.5")},
	}
}

func TestResolveContiguousTiers(t *testing.T) {
	tiers := sampleTiers()

	for _, amount := range []int64{0, 1, 250_000, 499_999} {
		got := Resolve(amount, tiers)
		require.NotNil(t, got, amount)
		assert.Equal(t, "Bronze", got.Name)
	}
	for _, amount := range []int64{500_000, 750_000, 1_000_000} {
		got := Resolve(amount, tiers)
		require.NotNil(t, got, amount)
		assert.Equal(t, "Gold", got.Name)
	}
	assert.Nil(t, Resolve(1_000_001, tiers))
	assert.Nil(t, Resolve(-1, tiers))
}

func TestResolveEveryBoundaryMapsToExactlyOneTier(t *testing.T) {
	tiers := []Tier{
		{Name: "A", MinAmount: 0, MaxAmount: 99, Multiplier: decimal.NewFromInt(1)},
		{Name: "B", MinAmount: 100, MaxAmount: 199, Multiplier: decimal.NewFromInt(2)},
		{Name: "C", MinAmount: 200, MaxAmount: 299, Multiplier: decimal.NewFromInt(3)},
	}
	require.NoError(t, Validate(tiers))

	for amount := int64(0); amount <= 299; amount++ {
		matches := 0
		for _, tier := range tiers {
			if tier.Contains(amount) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, amount)
		assert.Equal(t, tiers[amount/100].Name, Resolve(amount, tiers).Name)
	}
}

func TestResolveGapIsRejected(t *testing.T) {
	tiers := []Tier{
		{Name: "Low", MinAmount: 0, MaxAmount: 100, Multiplier: decimal.NewFromInt(1)},
		{Name: "High", MinAmount: 200, MaxAmount: 300, Multiplier: decimal.NewFromInt(1)},
	}
	assert.Nil(t, Resolve(150, tiers))
	_, ok := ResolveFunding(150, 10_000, tiers)
	assert.False(t, ok)
	assert.ErrorIs(t, Validate(tiers), ErrTierGap)
}

func TestResolveFundingWithoutTiers(t *testing.T) {
	tier, ok := ResolveFunding(1, 100, nil)
	assert.True(t, ok)
	assert.Nil(t, tier)
	_, ok = ResolveFunding(0, 100, nil)
	assert.False(t, ok)
	assert.True(t, Multiplier(nil).Equal(decimal.NewFromInt(1)))
	assert.Nil(t, Resolve(10, nil))
}

func TestMinimumAndMaximumInvestment(t *testing.T) {
	tiers := sampleTiers()

	assert.Equal(t, int64(1), MinimumInvestment(nil))
	assert.Equal(t, int64(1), MinimumInvestment(tiers))
	assert.Equal(t, int64(500), MinimumInvestment([]Tier{{MinAmount: 900}, {MinAmount: 500}}))

	assert.Equal(t, int64(300_000), MaximumInvestment(tiers, 300_000))
	assert.Equal(t, int64(1_000_000), MaximumInvestment(tiers, 5_000_000))
	assert.Equal(t, int64(42), MaximumInvestment(nil, 42))
	assert.Equal(t, int64(0), MaximumInvestment(tiers, -5))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		tiers []Tier
		want  error
	}{
		{name: "ok", tiers: sampleTiers(), want: nil},
		{name: "empty name", tiers: []Tier{{MinAmount: 0, MaxAmount: 1, Multiplier: decimal.NewFromInt(1)}}, want: ErrInvalidTierName},
		{name: "inverted", tiers: []Tier{{Name: "x", MinAmount: 5, MaxAmount: 1, Multiplier: decimal.NewFromInt(1)}}, want: ErrInvalidTierRange},
		{name: "zero multiplier", tiers: []Tier{{Name: "x", MinAmount: 0, MaxAmount: 1}}, want: ErrInvalidMultiplier},
		{name: "overlap", tiers: []Tier{
			{Name: "a", MinAmount: 0, MaxAmount: 10, Multiplier: decimal.NewFromInt(1)},
			{Name: "b", MinAmount: 10, MaxAmount: 20, Multiplier: decimal.NewFromInt(1)},
		}, want: ErrTierOverlap},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tiers)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNormalizeOrdersByMinimum(t *testing.T) {
	tiers := Normalize([]Tier{
		{Name: " Gold ", MinAmount: 500},
		{Name: "Bronze", MinAmount: 0},
	})
	assert.Equal(t, "Bronze", tiers[0].Name)
	assert.Equal(t, 0, tiers[0].Position)
	assert.Equal(t, "Gold", tiers[1].Name)
	assert.Equal(t, 1, tiers[1].Position)
}

func TestSnapshotWeight(t *testing.T) {
	gold := sampleTiers()[1]
	snap := SnapshotOf(&gold)
	assert.True(t, snap.Present)
	assert.True(t, snap.Weight(600_000).Equal(decimal.NewFromInt(900_000)))

	none := SnapshotOf(nil)
	assert.False(t, none.Present)
	assert.True(t, none.Weight(400).Equal(decimal.NewFromInt(400)))
}

func TestResolveFundingClosesSmallRemainder(t *testing.T) {
	tiers := []Tier{
		{Name: "Starter", MinAmount: 1_000, MaxAmount: 9_999, Multiplier: decimal.NewFromInt(1)},
		{Name: "Plus", MinAmount: 10_000, MaxAmount: 50_000, Multiplier: decimal.RequireFromString("1.2")},
	}

	tier, ok := ResolveFunding(2_000, 500, tiers)
	assert.False(t, ok, "over the remainder still has to match a tier")
	assert.Nil(t, tier)

	tier, ok = ResolveFunding(400, 500, tiers)
	assert.False(t, ok, "a partial remainder below the minimum is rejected")
	assert.Nil(t, tier)

	tier, ok = ResolveFunding(500, 500, tiers)
	require.True(t, ok)
	require.NotNil(t, tier)
	assert.Equal(t, "Starter", tier.Name)

	tier, ok = ResolveFunding(12_000, 12_000, tiers)
	require.True(t, ok)
	assert.Equal(t, "Plus", tier.Name)

	_, ok = ResolveFunding(999, 5_000, tiers)
	assert.False(t, ok)
}
