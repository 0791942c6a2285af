package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
)

// Investment is immutable after creation except for the refund fields.
type Investment struct {
	ID               snowflake.ID        `gorm:"primaryKey" json:"id"`
	Reference        string              `gorm:"type:text;not null;uniqueIndex:ux_investments_reference" json:"reference"`
	InvestorID       snowflake.ID        `gorm:"not null;index" json:"investor_id"`
	PitchID          snowflake.ID        `gorm:"not null;index" json:"pitch_id"`
	InvestmentAmount int64               `gorm:"not null" json:"investment_amount"`
	Tier             tierdomain.Snapshot `gorm:"embedded;embeddedPrefix:tier_" json:"tier"`
	InvestedAt       time.Time           `gorm:"not null" json:"invested_at"`
	Refunded         bool                `gorm:"not null;default:false" json:"refunded"`
	RefundedAmount   int64               `gorm:"not null;default:0" json:"refunded_amount"`
	RefundedAt       *time.Time          `json:"refunded_at,omitempty"`
}

func (Investment) TableName() string { return "investments" }

// Weighted is the amount scaled by the snapshotted tier multiplier.
func (i Investment) Weighted() decimal.Decimal {
	return i.Tier.Weight(i.InvestmentAmount)
}
