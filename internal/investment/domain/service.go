package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"gorm.io/gorm"
)

type InvestRequest struct {
	PitchID    string       `json:"-"`
	InvestorID snowflake.ID `json:"-"`
	Amount     int64        `json:"amount"`
}

type InvestResult struct {
	Investment Investment               `json:"investment"`
	Funding    pitchdomain.FundingState `json:"funding"`
	// Released is set when this investment reached the target and released the pool.
	Released bool `json:"released"`
}

type ListInvestmentsRequest struct {
	PitchID string
	ActorID snowflake.ID
	IsAdmin bool
}

type RefundResult struct {
	PitchID       snowflake.ID   `json:"pitch_id"`
	AlreadyFunded bool           `json:"already_funded"`
	Count         int            `json:"count"`
	Amount        int64          `json:"amount"`
	InvestorIDs   []snowflake.ID `json:"investor_ids"`
}

type Service interface {
	Invest(ctx context.Context, req InvestRequest) (InvestResult, error)
	List(ctx context.Context, req ListInvestmentsRequest) ([]Investment, error)
	// RefundIfUnderfunded refunds every non-refunded investment of an underfunded pitch.
	// Calling it again is a no-op.
	RefundIfUnderfunded(ctx context.Context, pitchID snowflake.ID) (RefundResult, error)
	// RefundWithin is RefundIfUnderfunded on the caller's transaction.
	RefundWithin(ctx context.Context, tx *gorm.DB, pitchID snowflake.ID) (RefundResult, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidPitch    = errors.New("invalid_pitch")
	ErrInvalidInvestor = errors.New("invalid_investor")
	ErrOverTarget      = errors.New("over_target")
	ErrTierMismatch    = errors.New("tier_mismatch")
	ErrPitchNotActive  = errors.New("pitch_not_active")
	ErrPitchEnded      = errors.New("pitch_ended")
	ErrSelfInvestment  = errors.New("self_investment")
	ErrForbidden       = errors.New("forbidden")
)
