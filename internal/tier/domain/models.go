package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Tier is an inclusive investment bracket [MinAmount, MaxAmount] with a payout multiplier.
type Tier struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	PitchID    snowflake.ID    `json:"pitch_id" gorm:"not null;index;uniqueIndex:ux_investment_tiers_position,priority:1"`
	Position   int             `json:"position" gorm:"not null;uniqueIndex:ux_investment_tiers_position,priority:2"`
	Name       string          `json:"name" gorm:"type:text;not null"`
	MinAmount  int64           `json:"min_amount" gorm:"not null"`
	MaxAmount  int64           `json:"max_amount" gorm:"not null"`
	Multiplier decimal.Decimal `json:"multiplier" gorm:"type:numeric(10,4);not null"`
}

func (Tier) TableName() string { return "investment_tiers" }

// Contains reports whether amount falls inside the tier bounds.
func (t Tier) Contains(amount int64) bool {
	return t.MinAmount <= amount && amount <= t.MaxAmount
}

// Snapshot is the copy of a tier stored on an investment. Later tier edits never touch it.
type Snapshot struct {
	Present    bool            `json:"present" gorm:"not null;default:false"`
	Name       string          `json:"name,omitempty" gorm:"type:text"`
	MinAmount  int64           `json:"min_amount,omitempty"`
	MaxAmount  int64           `json:"max_amount,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier" gorm:"type:numeric(10,4);not null;default:1"`
}

// SnapshotOf copies t. A nil tier yields an absent snapshot with multiplier 1.
func SnapshotOf(t *Tier) Snapshot {
	if t == nil {
		return Snapshot{Multiplier: decimal.NewFromInt(1)}
	}
	return Snapshot{
		Present:    true,
		Name:       t.Name,
		MinAmount:  t.MinAmount,
		MaxAmount:  t.MaxAmount,
		Multiplier: t.Multiplier,
	}
}

// Weight returns amount scaled by the snapshot multiplier.
func (s Snapshot) Weight(amount int64) decimal.Decimal {
	m := s.Multiplier
	if !s.Present || m.IsZero() {
		m = decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(amount).Mul(m)
}
