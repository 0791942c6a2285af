package statement

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "61.54", Money(6154))
	assert.Equal(t, "0.05", Money(5))
	assert.Equal(t, "0.00", Money(0))
}

func TestRenderProducesPDF(t *testing.T) {
	doc, err := Render(Data{
		PitchTitle: "Solar kiosks",
		Detail: distributiondomain.Detail{
			Distribution: distributiondomain.ProfitDistribution{
				ID:               1,
				PitchID:          2,
				TotalProfit:      100000,
				ProfitShare:      decimal.NewFromInt(20),
				InvestorPool:     20000,
				BusinessProfit:   80000,
				DistributionDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			Payouts: []distributiondomain.InvestorPayout{
				{ID: 3, InvestorID: 10, Amount: 6154, Percentage: decimal.RequireFromString("30.77"), WeightedAmount: decimal.NewFromInt(400000)},
				{ID: 4, InvestorID: 11, Amount: 13846, Percentage: decimal.RequireFromString("69.23"), WeightedAmount: decimal.NewFromInt(900000)},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}
