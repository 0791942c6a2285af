package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ProfitDistribution is one profit declaration. Rows are append-only.
type ProfitDistribution struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	PitchID          snowflake.ID    `gorm:"not null;index:ix_profit_distributions_pitch_date,priority:1" json:"pitch_id"`
	DeclaredBy       snowflake.ID    `gorm:"not null" json:"declared_by"`
	TotalProfit      int64           `gorm:"not null" json:"total_profit"`
	ProfitShare      decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"profit_share"`
	InvestorPool     int64           `gorm:"not null" json:"investor_pool"`
	BusinessProfit   int64           `gorm:"not null" json:"business_profit"`
	DistributionDate time.Time       `gorm:"not null;index:ix_profit_distributions_pitch_date,priority:2" json:"distribution_date"`
}

func (ProfitDistribution) TableName() string { return "profit_distributions" }

// InvestorPayout aggregates every investment one investor holds in the pitch.
type InvestorPayout struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	DistributionID snowflake.ID    `gorm:"not null;uniqueIndex:ux_investor_payouts_distribution_investor,priority:1" json:"distribution_id"`
	InvestorID     snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_investor_payouts_distribution_investor,priority:2" json:"investor_id"`
	Amount         int64           `gorm:"not null" json:"amount"`
	Percentage     decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"percentage"`
	WeightedAmount decimal.Decimal `gorm:"type:numeric(24,4);not null" json:"weighted_amount"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvestorPayout) TableName() string { return "investor_payouts" }
