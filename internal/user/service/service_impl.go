package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	"github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/smallbiznis/pitchfund/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Ledger ledgerdomain.Service
	Audit  auditdomain.Service
	Cache  *cache.PortfolioCache `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	ledger ledgerdomain.Service
	audit  auditdomain.Service
	cache  *cache.PortfolioCache
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("user.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
		audit:  p.Audit,
		cache:  p.Cache,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if !req.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	user := domain.User{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		targetID := user.ID.String()
		return s.audit.AuditLog(ctx, tx, auditdomain.ActionUserCreated, "user", &targetID, map[string]any{
			"role": string(user.Role),
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.User, error) {
	if id == 0 {
		return domain.User{}, domain.ErrInvalidID
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) Deposit(ctx context.Context, req domain.AmountRequest) (domain.User, error) {
	return s.move(ctx, req, auditdomain.ActionAccountDeposit, func(tx *gorm.DB, sourceID snowflake.ID) error {
		_, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     req.UserID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionCredit,
			Amount:     req.Amount,
			SourceType: ledgerdomain.SourceTypeDeposit,
			SourceID:   sourceID,
		})
		return err
	})
}

func (s *Service) Withdraw(ctx context.Context, req domain.AmountRequest) (domain.User, error) {
	return s.move(ctx, req, auditdomain.ActionAccountWithdraw, func(tx *gorm.DB, sourceID snowflake.ID) error {
		_, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     req.UserID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionDebit,
			Amount:     req.Amount,
			SourceType: ledgerdomain.SourceTypeWithdrawal,
			SourceID:   sourceID,
		})
		return err
	})
}

func (s *Service) TransferFunding(ctx context.Context, req domain.AmountRequest) (domain.User, error) {
	return s.move(ctx, req, auditdomain.ActionFundingTransfer, func(tx *gorm.DB, sourceID snowflake.ID) error {
		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     req.UserID,
			Account:    ledgerdomain.FundingBalance,
			Direction:  ledgerdomain.DirectionDebit,
			Amount:     req.Amount,
			SourceType: ledgerdomain.SourceTypeFundingTransfer,
			SourceID:   sourceID,
		}); err != nil {
			return err
		}
		_, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     req.UserID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionCredit,
			Amount:     req.Amount,
			SourceType: ledgerdomain.SourceTypeFundingTransfer,
			SourceID:   sourceID,
		})
		return ledgerdomain.Consistency("funding_transfer_credit", err)
	})
}

func (s *Service) move(ctx context.Context, req domain.AmountRequest, action string, post func(tx *gorm.DB, sourceID snowflake.ID) error) (domain.User, error) {
	if req.UserID == 0 {
		return domain.User{}, domain.ErrInvalidID
	}
	if req.Amount <= 0 {
		return domain.User{}, domain.ErrInvalidAmount
	}

	sourceID := s.genID.Generate()
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := post(tx, sourceID); err != nil {
			return err
		}
		var err error
		user, err = s.repo.FindByID(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}
		targetID := user.ID.String()
		return s.audit.AuditLog(ctx, tx, action, "user", &targetID, map[string]any{
			"amount":    req.Amount,
			"source_id": sourceID.String(),
		})
	})
	if err != nil {
		return domain.User{}, err
	}

	s.cache.InvalidateAccount(user.ID)
	s.log.Info("balance changed",
		zap.String("user_id", user.ID.String()),
		zap.String("action", action),
		zap.Int64("amount", req.Amount),
	)
	return *user, nil
}
