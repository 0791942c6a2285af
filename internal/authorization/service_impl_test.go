package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/pitchfund/internal/actorcontext"
	"github.com/smallbiznis/pitchfund/internal/testutil"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(testutil.DB(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRolePolicies(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	investor := actorcontext.Actor{ID: 10, Role: userdomain.RoleInvestor}
	business := actorcontext.Actor{ID: 20, Role: userdomain.RoleBusiness}
	admin := actorcontext.Actor{ID: 30, Role: userdomain.RoleAdmin}

	assert.NoError(t, svc.Authorize(ctx, investor, ObjectInvestment, ActionInvestmentCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, investor, ObjectDistribution, ActionProfitDeclare), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, business, ObjectDistribution, ActionProfitDeclare))
	assert.NoError(t, svc.Authorize(ctx, business, ObjectPitch, ActionPitchCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, business, ObjectInvestment, ActionInvestmentCreate), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, admin, ObjectUser, ActionUserCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, admin, ObjectAccount, ActionAccountManage), ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, actorcontext.Actor{ID: 7, Role: userdomain.RoleInvestor}, ObjectInvestment, ActionInvestmentCreate))

	promoted := actorcontext.Actor{ID: 7, Role: userdomain.RoleBusiness}
	assert.ErrorIs(t, svc.Authorize(ctx, promoted, ObjectInvestment, ActionInvestmentCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, promoted, ObjectPitch, ActionPitchCreate))
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.Actor{}, ObjectPitch, ActionPitchCreate), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.Actor{ID: 1, Role: "root"}, ObjectPitch, ActionPitchCreate), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.Actor{ID: 1, Role: userdomain.RoleBusiness}, " ", ActionPitchCreate), ErrInvalidObject)
}
