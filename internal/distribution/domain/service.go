package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type DeclareRequest struct {
	PitchID string       `json:"-"`
	ActorID snowflake.ID `json:"-"`
	Amount  int64        `json:"amount"`
}

// Preview is an allocation computed without touching the ledger.
type Preview struct {
	Allocation
	PitchID     snowflake.ID `json:"pitch_id"`
	Eligible    bool         `json:"eligible"`
	Reason      string       `json:"reason,omitempty"`
	NextAllowed *time.Time   `json:"next_allowed_at,omitempty"`
}

type DeclareResult struct {
	Distribution ProfitDistribution `json:"distribution"`
	Payouts      []InvestorPayout   `json:"payouts"`
	Allocation   Allocation         `json:"allocation"`
}

type Detail struct {
	Distribution ProfitDistribution `json:"distribution"`
	Payouts      []InvestorPayout   `json:"payouts"`
}

type GetRequest struct {
	ID      string
	ActorID snowflake.ID
	IsAdmin bool
}

type ListRequest struct {
	PitchID string
	ActorID snowflake.ID
	IsAdmin bool
}

type Service interface {
	// Preview runs the same allocation as Declare without persisting anything.
	Preview(ctx context.Context, req DeclareRequest) (Preview, error)
	// Declare debits the owner, records the distribution and credits every investor in one transaction.
	Declare(ctx context.Context, req DeclareRequest) (DeclareResult, error)
	Get(ctx context.Context, req GetRequest) (Detail, error)
	// ListByPitch shows the owner and admins every distribution; other callers
	// see only the distributions that paid them.
	ListByPitch(ctx context.Context, req ListRequest) ([]ProfitDistribution, error)
}
