package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
)

type TierInput struct {
	Name       string          `json:"name"`
	MinAmount  int64           `json:"min_amount"`
	MaxAmount  int64           `json:"max_amount"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type CreatePitchRequest struct {
	BusinessID                 snowflake.ID    `json:"-"`
	Title                      string          `json:"title"`
	Summary                    string          `json:"summary"`
	TargetAmount               int64           `json:"target_amount"`
	ProfitShare                decimal.Decimal `json:"profit_share"`
	EndDate                    *time.Time      `json:"end_date"`
	DistributionIntervalMonths *int            `json:"distribution_interval_months"`
	Tiers                      []TierInput     `json:"investment_tiers"`
}

type ReplaceTiersRequest struct {
	PitchID string       `json:"-"`
	ActorID snowflake.ID `json:"-"`
	Tiers   []TierInput  `json:"investment_tiers"`
}

type PitchActionRequest struct {
	PitchID string
	ActorID snowflake.ID
}

type ListPitchRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	BusinessID string `form:"business_id"`
}

type ListPitchResponse struct {
	pagination.PageInfo
	Pitches []Pitch `json:"pitches"`
}

type CloseResult struct {
	Pitch          Pitch          `json:"pitch"`
	RefundedCount  int            `json:"refunded_count"`
	RefundedAmount int64          `json:"refunded_amount"`
	AlreadyFunded  bool           `json:"already_funded"`
	InvestorIDs    []snowflake.ID `json:"refunded_investor_ids,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreatePitchRequest) (Pitch, error)
	ReplaceTiers(ctx context.Context, req ReplaceTiersRequest) (Pitch, error)
	Publish(ctx context.Context, req PitchActionRequest) (Pitch, error)
	// Close closes the pitch on behalf of its owner and refunds it when underfunded.
	Close(ctx context.Context, req PitchActionRequest) (CloseResult, error)
	// CloseExpired closes up to limit active pitches whose end date passed.
	CloseExpired(ctx context.Context, limit int) ([]CloseResult, error)
	Get(ctx context.Context, id string) (Pitch, error)
	GetBySlug(ctx context.Context, slug string) (Pitch, error)
	List(ctx context.Context, req ListPitchRequest) (ListPitchResponse, error)
	FundingState(ctx context.Context, id string) (FundingState, error)
	AttachAnalysis(ctx context.Context, req PitchActionRequest) (Pitch, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidTarget       = errors.New("invalid_target_amount")
	ErrInvalidProfitShare  = errors.New("invalid_profit_share")
	ErrInvalidEndDate      = errors.New("invalid_end_date")
	ErrInvalidInterval     = errors.New("invalid_distribution_interval")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInvalidTiers        = errors.New("invalid_tiers")
	ErrNotFound            = errors.New("not_found")
	ErrForbidden           = errors.New("forbidden")
	ErrNotDraft            = errors.New("pitch_not_draft")
	ErrAlreadyClosed       = errors.New("pitch_already_closed")
	ErrPitchFunded         = errors.New("pitch_funded")
	ErrAnalysisUnavailable = errors.New("analysis_unavailable")
)
