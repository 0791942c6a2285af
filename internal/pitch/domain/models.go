package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusFunded Status = "funded"
	StatusClosed Status = "closed"
)

// Pitch is a funding campaign owned by a business user.
// CurrentAmount never exceeds TargetAmount. InvestmentPool accumulates raised
// funds until they are released to the owner when the target is reached.
type Pitch struct {
	ID                         snowflake.ID      `gorm:"primaryKey" json:"id"`
	BusinessID                 snowflake.ID      `gorm:"not null;index" json:"business_id"`
	Title                      string            `gorm:"type:text;not null" json:"title"`
	Slug                       string            `gorm:"type:text;not null;uniqueIndex:ux_pitches_slug" json:"slug"`
	Summary                    string            `gorm:"type:text;not null;default:''" json:"summary"`
	TargetAmount               int64             `gorm:"not null" json:"target_amount"`
	CurrentAmount              int64             `gorm:"not null;default:0" json:"current_amount"`
	InvestmentPool             int64             `gorm:"not null;default:0" json:"investment_pool"`
	ProfitShare                decimal.Decimal   `gorm:"type:numeric(5,2);not null" json:"profit_share"`
	Status                     Status            `gorm:"type:text;not null;index" json:"status"`
	EndDate                    *time.Time        `json:"end_date,omitempty"`
	ReleasedAt                 *time.Time        `json:"released_at,omitempty"`
	DistributionIntervalMonths *int              `json:"distribution_interval_months,omitempty"`
	Analysis                   datatypes.JSONMap `gorm:"type:jsonb" json:"analysis,omitempty"`
	CreatedAt                  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Tiers []tierdomain.Tier `gorm:"-" json:"investment_tiers"`
}

func (Pitch) TableName() string { return "pitches" }

// Remaining is what is left to raise.
func (p Pitch) Remaining() int64 {
	if p.CurrentAmount >= p.TargetAmount {
		return 0
	}
	return p.TargetAmount - p.CurrentAmount
}

// FullyFunded reports whether the target has been reached.
func (p Pitch) FullyFunded() bool {
	return p.CurrentAmount >= p.TargetAmount
}

// FundingState is the investable view of a pitch.
type FundingState struct {
	PitchID           snowflake.ID `json:"pitch_id"`
	Status            Status       `json:"status"`
	TargetAmount      int64        `json:"target_amount"`
	CurrentAmount     int64        `json:"current_amount"`
	Remaining         int64        `json:"remaining"`
	MinimumInvestment int64        `json:"minimum_investment"`
	MaximumInvestment int64        `json:"maximum_investment"`
	Funded            bool         `json:"funded"`
	ReleasedAt        *time.Time   `json:"released_at,omitempty"`
}

// StateOf derives the funding state of p against tiers.
func StateOf(p Pitch, tiers []tierdomain.Tier) FundingState {
	remaining := p.Remaining()
	minimum := tierdomain.MinimumInvestment(tiers)
	if remaining > 0 && remaining < minimum {
		minimum = remaining
	}
	return FundingState{
		PitchID:           p.ID,
		Status:            p.Status,
		TargetAmount:      p.TargetAmount,
		CurrentAmount:     p.CurrentAmount,
		Remaining:         remaining,
		MinimumInvestment: minimum,
		MaximumInvestment: tierdomain.MaximumInvestment(tiers, remaining),
		Funded:            p.FullyFunded(),
		ReleasedAt:        p.ReleasedAt,
	}
}
