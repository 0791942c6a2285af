package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/pitchfund/internal/actorcontext"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error {
	if actor.ID == 0 || !actor.Role.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%s", actor.ID.String())
	if err := s.ensureGrouping(subject, roleName(actor.Role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, subject, actor.Role, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject; roles can change upstream.
func (s *ServiceImpl) ensureGrouping(subject string, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, role userdomain.Role, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	if err := s.auditSvc.AuditLog(ctx, nil, auditdomain.ActionAccessDenied, "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"role":    string(role),
		"subject": subject,
	}); err != nil {
		s.log.Warn("failed to audit denied access", zap.Error(err))
	}
}

func roleName(role userdomain.Role) string {
	return "role:" + strings.ToLower(string(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	business := roleName(userdomain.RoleBusiness)
	investor := roleName(userdomain.RoleInvestor)
	admin := roleName(userdomain.RoleAdmin)

	policies := [][]string{
		// Business: runs pitches and declares profit
		{business, ObjectPitch, ActionPitchCreate},
		{business, ObjectPitch, ActionPitchManage},
		{business, ObjectDistribution, ActionProfitDeclare},
		{business, ObjectDistribution, ActionProfitPreview},
		{business, ObjectAccount, ActionAccountManage},
		{business, ObjectPortfolio, ActionPortfolioView},

		// Investor
		{investor, ObjectInvestment, ActionInvestmentCreate},
		{investor, ObjectAccount, ActionAccountManage},
		{investor, ObjectPortfolio, ActionPortfolioView},

		// Admin: provisioning and oversight, no money movement on behalf of others
		{admin, ObjectUser, ActionUserCreate},
		{admin, ObjectAuditLog, ActionAuditLogView},
		{admin, ObjectPortfolio, ActionPortfolioView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
