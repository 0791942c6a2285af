package cache

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	portfoliodomain "github.com/smallbiznis/pitchfund/internal/portfolio/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())

	c.Delete("b", "missing")
	assert.Equal(t, 0, c.Len())
}

func TestPortfolioCacheInvalidation(t *testing.T) {
	c := NewPortfolioCache()
	investor, business, pitch := snowflake.ID(1), snowflake.ID(2), snowflake.ID(3)

	seed := func() {
		c.SetInvestor(portfoliodomain.InvestorPortfolio{UserID: investor})
		c.SetBusiness(portfoliodomain.BusinessDashboard{UserID: business})
		c.SetFunding(pitchdomain.FundingState{PitchID: pitch})
	}

	seed()
	c.InvalidateInvestment(investor, business, pitch)
	_, ok := c.Investor(investor)
	assert.False(t, ok)
	_, ok = c.Business(business)
	assert.False(t, ok)
	_, ok = c.Funding(pitch)
	assert.False(t, ok)

	seed()
	c.InvalidateDistribution(business, pitch, []snowflake.ID{investor})
	_, ok = c.Investor(investor)
	assert.False(t, ok)

	seed()
	c.InvalidateAccount(investor)
	_, ok = c.Investor(investor)
	assert.False(t, ok)
	_, ok = c.Funding(pitch)
	assert.True(t, ok)
}

func TestNilPortfolioCacheIsNoop(t *testing.T) {
	var c *PortfolioCache
	c.SetInvestor(portfoliodomain.InvestorPortfolio{UserID: 1})
	c.InvalidatePitch(1, 2, nil)
	_, ok := c.Investor(1)
	assert.False(t, ok)
}
