package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	portfoliodomain "github.com/smallbiznis/pitchfund/internal/portfolio/domain"
)

const (
	defaultPortfolioTTL = 2 * time.Minute
	defaultFundingTTL   = 30 * time.Second
)

// PortfolioCache fronts the aggregate read models. Every ledger mutation names
// the entries it invalidates; a nil *PortfolioCache is a valid no-op.
type PortfolioCache struct {
	investors  Cache[snowflake.ID, portfoliodomain.InvestorPortfolio]
	businesses Cache[snowflake.ID, portfoliodomain.BusinessDashboard]
	funding    Cache[snowflake.ID, pitchdomain.FundingState]
	ttl        time.Duration
	fundingTTL time.Duration
}

func NewPortfolioCache() *PortfolioCache {
	return &PortfolioCache{
		investors:  NewTTLCache[snowflake.ID, portfoliodomain.InvestorPortfolio](),
		businesses: NewTTLCache[snowflake.ID, portfoliodomain.BusinessDashboard](),
		funding:    NewTTLCache[snowflake.ID, pitchdomain.FundingState](),
		ttl:        defaultPortfolioTTL,
		fundingTTL: defaultFundingTTL,
	}
}

func (c *PortfolioCache) Investor(userID snowflake.ID) (portfoliodomain.InvestorPortfolio, bool) {
	if c == nil {
		return portfoliodomain.InvestorPortfolio{}, false
	}
	return c.investors.Get(userID)
}

func (c *PortfolioCache) SetInvestor(p portfoliodomain.InvestorPortfolio) {
	if c == nil || p.UserID == 0 {
		return
	}
	c.investors.Set(p.UserID, p, c.ttl)
}

func (c *PortfolioCache) Business(userID snowflake.ID) (portfoliodomain.BusinessDashboard, bool) {
	if c == nil {
		return portfoliodomain.BusinessDashboard{}, false
	}
	return c.businesses.Get(userID)
}

func (c *PortfolioCache) SetBusiness(d portfoliodomain.BusinessDashboard) {
	if c == nil || d.UserID == 0 {
		return
	}
	c.businesses.Set(d.UserID, d, c.ttl)
}

func (c *PortfolioCache) Funding(pitchID snowflake.ID) (pitchdomain.FundingState, bool) {
	if c == nil {
		return pitchdomain.FundingState{}, false
	}
	return c.funding.Get(pitchID)
}

func (c *PortfolioCache) SetFunding(state pitchdomain.FundingState) {
	if c == nil || state.PitchID == 0 {
		return
	}
	c.funding.Set(state.PitchID, state, c.fundingTTL)
}

// InvalidateInvestment drops what an accepted investment changes.
func (c *PortfolioCache) InvalidateInvestment(investorID, businessID, pitchID snowflake.ID) {
	if c == nil {
		return
	}
	c.investors.Delete(investorID)
	c.businesses.Delete(businessID)
	c.funding.Delete(pitchID)
}

// InvalidateDistribution drops what a profit declaration changes.
func (c *PortfolioCache) InvalidateDistribution(businessID, pitchID snowflake.ID, payees []snowflake.ID) {
	if c == nil {
		return
	}
	c.businesses.Delete(businessID)
	c.funding.Delete(pitchID)
	c.investors.Delete(payees...)
}

// InvalidatePitch drops what a status change, closure or refund changes.
func (c *PortfolioCache) InvalidatePitch(businessID, pitchID snowflake.ID, investors []snowflake.ID) {
	if c == nil {
		return
	}
	c.businesses.Delete(businessID)
	c.funding.Delete(pitchID)
	c.investors.Delete(investors...)
}

// InvalidateAccount drops the views showing a user's balances.
func (c *PortfolioCache) InvalidateAccount(userID snowflake.ID) {
	if c == nil {
		return
	}
	c.investors.Delete(userID)
	c.businesses.Delete(userID)
}
