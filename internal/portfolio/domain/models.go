package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
)

// Holding is everything one investor put into one pitch.
type Holding struct {
	PitchID     snowflake.ID                  `json:"pitch_id"`
	PitchTitle  string                        `json:"pitch_title"`
	PitchStatus pitchdomain.Status            `json:"pitch_status"`
	Invested    int64                         `json:"invested"`
	Refunded    int64                         `json:"refunded"`
	Weighted    decimal.Decimal               `json:"weighted_amount"`
	Investments []investmentdomain.Investment `json:"investments"`
}

type InvestorPortfolio struct {
	UserID         snowflake.ID `json:"user_id"`
	AccountBalance int64        `json:"account_balance"`
	TotalInvested  int64        `json:"total_invested"`
	TotalRefunded  int64        `json:"total_refunded"`
	TotalReceived  int64        `json:"total_received"`
	Holdings       []Holding    `json:"holdings"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

type PitchSummary struct {
	pitchdomain.FundingState
	Title         string `json:"title"`
	TotalDeclared int64  `json:"total_declared"`
}

type BusinessDashboard struct {
	UserID         snowflake.ID   `json:"user_id"`
	AccountBalance int64          `json:"account_balance"`
	FundingBalance int64          `json:"funding_balance"`
	TotalRaised    int64          `json:"total_raised"`
	TotalDeclared  int64          `json:"total_declared"`
	Pitches        []PitchSummary `json:"pitches"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

type Service interface {
	Investor(ctx context.Context, userID snowflake.ID) (InvestorPortfolio, error)
	Business(ctx context.Context, userID snowflake.ID) (BusinessDashboard, error)
}

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrNotFound    = errors.New("not_found")
)
