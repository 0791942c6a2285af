package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	ActionUserCreated      = "user.created"
	ActionAccountDeposit   = "account.deposit"
	ActionAccountWithdraw  = "account.withdraw"
	ActionFundingTransfer  = "account.funding_transfer"
	ActionPitchCreated     = "pitch.created"
	ActionPitchTiersSet    = "pitch.tiers_replaced"
	ActionPitchPublished   = "pitch.published"
	ActionPitchFunded      = "pitch.funded"
	ActionPitchClosed      = "pitch.closed"
	ActionPitchRefunded    = "pitch.refunded"
	ActionPitchAnalyzed    = "pitch.analyzed"
	ActionInvestmentCreate = "investment.created"
	ActionProfitDeclared   = "profit.declared"
	ActionAccessDenied     = "authorization.denied"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorID    string `form:"actor_id"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog records action on tx, or on the service connection when tx is nil.
	AuditLog(ctx context.Context, tx *gorm.DB, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")
)
