package domain

import (
	"math/rand"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateTieredExample(t *testing.T) {
	holdings := []Holding{
		{InvestorID: 1, Amount: 400_000, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 2, Amount: 600_000, Multiplier: decimal.RequireFromString("1.5")},
	}

	alloc, err := Allocate(100_000, decimal.NewFromInt(20), holdings)
	require.NoError(t, err)

	assert.Equal(t, int64(20_000), alloc.InvestorPool)
	assert.Equal(t, int64(80_000), alloc.BusinessProfit)
	assert.True(t, alloc.TotalWeighted.Equal(decimal.NewFromInt(1_300_000)))
	require.Len(t, alloc.Shares, 2)

	assert.Equal(t, snowflake.ID(1), alloc.Shares[0].InvestorID)
	assert.Equal(t, int64(6_154), alloc.Shares[0].Amount)
	assert.Equal(t, "30.77", alloc.Shares[0].Percentage.String())

	assert.Equal(t, snowflake.ID(2), alloc.Shares[1].InvestorID)
	assert.Equal(t, int64(13_846), alloc.Shares[1].Amount)
	assert.Equal(t, "69.23", alloc.Shares[1].Percentage.String())

	assert.Equal(t, alloc.InvestorPool, alloc.Distributed())
}

func TestAllocateAggregatesPerInvestor(t *testing.T) {
	holdings := []Holding{
		{InvestorID: 7, Amount: 100, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 3, Amount: 300, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 7, Amount: 200, Multiplier: decimal.NewFromInt(2)},
	}

	alloc, err := Allocate(1_000, decimal.NewFromInt(100), holdings)
	require.NoError(t, err)
	require.Len(t, alloc.Shares, 2)

	assert.Equal(t, snowflake.ID(3), alloc.Shares[0].InvestorID)
	assert.Equal(t, int64(300), alloc.Shares[0].Invested)
	assert.Equal(t, snowflake.ID(7), alloc.Shares[1].InvestorID)
	assert.Equal(t, int64(300), alloc.Shares[1].Invested)
	assert.True(t, alloc.Shares[1].Weighted.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, int64(375), alloc.Shares[0].Amount)
	assert.Equal(t, int64(625), alloc.Shares[1].Amount)
}

func TestAllocateHigherMultiplierGetsProportionallyMore(t *testing.T) {
	holdings := []Holding{
		{InvestorID: 1, Amount: 1_000, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 2, Amount: 1_000, Multiplier: decimal.NewFromInt(2)},
	}

	alloc, err := Allocate(30_000, decimal.NewFromInt(10), holdings)
	require.NoError(t, err)

	low, high := alloc.Shares[0].Amount, alloc.Shares[1].Amount
	assert.Greater(t, high, low)
	assert.Equal(t, int64(1_000), low)
	assert.Equal(t, int64(2_000), high)
}

func TestAllocateNeverOverpays(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	multipliers := []decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.RequireFromString("1.25"),
		decimal.RequireFromString("1.5"),
		decimal.RequireFromString("2.333"),
	}

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(12)
		holdings := make([]Holding, 0, n)
		for i := 0; i < n; i++ {
			holdings = append(holdings, Holding{
				InvestorID: snowflake.ID(1 + rng.Intn(8)),
				Amount:     1 + rng.Int63n(1_000_000),
				Multiplier: multipliers[rng.Intn(len(multipliers))],
			})
		}
		profit := 1 + rng.Int63n(10_000_000)
		share := decimal.NewFromInt(rng.Int63n(101))

		alloc, err := Allocate(profit, share, holdings)
		require.NoError(t, err)

		exactPool := decimal.NewFromInt(profit).Mul(share).Div(decimal.NewFromInt(100))
		assert.True(t, decimal.NewFromInt(alloc.Distributed()).LessThanOrEqual(exactPool))
		assert.True(t, exactPool.Sub(decimal.NewFromInt(alloc.Distributed())).LessThan(decimal.NewFromInt(1)))
		assert.Equal(t, profit, alloc.InvestorPool+alloc.BusinessProfit)
		for _, s := range alloc.Shares {
			assert.GreaterOrEqual(t, s.Amount, int64(0))
		}
	}
}

func TestAllocateZeroShareKeepsEverything(t *testing.T) {
	alloc, err := Allocate(5_000, decimal.Zero, []Holding{{InvestorID: 1, Amount: 10, Multiplier: decimal.NewFromInt(1)}})
	require.NoError(t, err)

	assert.Equal(t, int64(0), alloc.InvestorPool)
	assert.Equal(t, int64(5_000), alloc.BusinessProfit)
	require.Len(t, alloc.Shares, 1)
	assert.Equal(t, int64(0), alloc.Shares[0].Amount)
	assert.True(t, alloc.Shares[0].Percentage.IsZero())
}

func TestAllocateWithoutHoldings(t *testing.T) {
	alloc, err := Allocate(1_000, decimal.NewFromInt(50), nil)
	require.NoError(t, err)
	assert.Empty(t, alloc.Shares)
	assert.Equal(t, int64(500), alloc.InvestorPool)
	assert.Equal(t, int64(0), alloc.Distributed())
}

func TestAllocateRejectsBadInput(t *testing.T) {
	_, err := Allocate(0, decimal.NewFromInt(10), nil)
	assert.ErrorIs(t, err, ErrInvalidProfitAmount)

	_, err = Allocate(100, decimal.NewFromInt(101), nil)
	assert.ErrorIs(t, err, ErrInvalidProfitShare)

	_, err = Allocate(100, decimal.NewFromInt(-1), nil)
	assert.ErrorIs(t, err, ErrInvalidProfitShare)
}

func TestAllocateLeftoverTieBreaksOnInvestorID(t *testing.T) {
	holdings := []Holding{
		{InvestorID: 9, Amount: 1, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 4, Amount: 1, Multiplier: decimal.NewFromInt(1)},
		{InvestorID: 6, Amount: 1, Multiplier: decimal.NewFromInt(1)},
	}

	alloc, err := Allocate(100, decimal.NewFromInt(100), holdings)
	require.NoError(t, err)

	amounts := map[snowflake.ID]int64{}
	for _, s := range alloc.Shares {
		amounts[s.InvestorID] = s.Amount
	}
	assert.Equal(t, int64(34), amounts[4])
	assert.Equal(t, int64(33), amounts[6])
	assert.Equal(t, int64(33), amounts[9])
}
