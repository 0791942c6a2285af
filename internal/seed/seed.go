package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/pitchfund/internal/config"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultAdminName = "Platform Admin"

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, repo userdomain.Repository, users userdomain.Service, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				_, err := EnsureAdmin(ctx, db, repo, users, cfg.BootstrapAdmin)
				if err != nil {
					log.Error("failed to seed bootstrap admin", zap.Error(err))
				}
				return err
			},
		})
	}),
)

// EnsureAdmin creates the bootstrap admin unless a user with that email
// exists. Only the admin can provision further users over the API.
func EnsureAdmin(ctx context.Context, db *gorm.DB, repo userdomain.Repository, users userdomain.Service, admin config.BootstrapAdminConfig) (*userdomain.User, error) {
	if db == nil || repo == nil || users == nil {
		return nil, errors.New("seed dependencies are required")
	}

	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil, nil
	}

	existing, err := repo.FindByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role != userdomain.RoleAdmin {
			return nil, userdomain.ErrEmailTaken
		}
		return existing, nil
	}

	name := strings.TrimSpace(admin.Name)
	if name == "" {
		name = defaultAdminName
	}
	created, err := users.Create(ctx, userdomain.CreateUserRequest{
		Name:  name,
		Email: email,
		Role:  userdomain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
