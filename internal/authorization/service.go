package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/pitchfund/internal/actorcontext"
)

const (
	ObjectPitch        = "pitch"
	ObjectInvestment   = "investment"
	ObjectDistribution = "distribution"
	ObjectAccount      = "account"
	ObjectPortfolio    = "portfolio"
	ObjectUser         = "user"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionPitchCreate      = "pitch.create"
	ActionPitchManage      = "pitch.manage"
	ActionProfitDeclare    = "profit.declare"
	ActionProfitPreview    = "profit.preview"
	ActionInvestmentCreate = "investment.create"
	ActionAccountManage    = "account.manage"
	ActionPortfolioView    = "portfolio.view"
	ActionUserCreate       = "user.create"
	ActionAuditLogView     = "audit_log.view"
)

// Service answers whether an actor's role allows an action. Ownership of a
// specific pitch is checked by the owning service.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
