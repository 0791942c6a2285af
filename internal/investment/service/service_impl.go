package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/investment/domain"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	obslogger "github.com/smallbiznis/pitchfund/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const refundTriggerDirect = "direct"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	PitchRepo  pitchdomain.Repository
	TierRepo   tierdomain.Repository
	Ledger     ledgerdomain.Service
	Audit      auditdomain.Service
	Cache      *cache.PortfolioCache `optional:"true"`
	ObsMetrics *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	pitchRepo  pitchdomain.Repository
	tierRepo   tierdomain.Repository
	ledger     ledgerdomain.Service
	audit      auditdomain.Service
	cache      *cache.PortfolioCache
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("investment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		pitchRepo:  p.PitchRepo,
		tierRepo:   p.TierRepo,
		ledger:     p.Ledger,
		audit:      p.Audit,
		cache:      p.Cache,
		obsMetrics: p.ObsMetrics,
	}
}

// Invest records the investment, debits the investor and, when the target is
// reached, releases the pool to the business. All of it commits or none of it does.
func (s *Service) Invest(ctx context.Context, req domain.InvestRequest) (domain.InvestResult, error) {
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return domain.InvestResult{}, domain.ErrInvalidPitch
	}
	if req.InvestorID == 0 {
		return domain.InvestResult{}, domain.ErrInvalidInvestor
	}
	if req.Amount <= 0 {
		return domain.InvestResult{}, domain.ErrInvalidAmount
	}

	log := obslogger.WithPitch(s.log, pitchID.String())
	var (
		result     domain.InvestResult
		businessID snowflake.ID
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		pitch, err := s.pitchRepo.FindByIDForUpdate(ctx, tx, pitchID)
		if err != nil {
			return err
		}
		if pitch == nil {
			return domain.ErrInvalidPitch
		}
		businessID = pitch.BusinessID
		if pitch.Status != pitchdomain.StatusActive {
			return domain.ErrPitchNotActive
		}
		if pitch.EndDate != nil && now.After(*pitch.EndDate) {
			return domain.ErrPitchEnded
		}
		if pitch.BusinessID == req.InvestorID {
			return domain.ErrSelfInvestment
		}

		tiers, err := s.tierRepo.ListByPitch(ctx, tx, pitch.ID)
		if err != nil {
			return err
		}
		if pitch.CurrentAmount+req.Amount > pitch.TargetAmount {
			return domain.ErrOverTarget
		}
		tier, accepted := tierdomain.ResolveFunding(req.Amount, pitch.Remaining(), tiers)
		if !accepted {
			return domain.ErrTierMismatch
		}

		inv := domain.Investment{
			ID:               s.genID.Generate(),
			Reference:        ulid.Make().String(),
			InvestorID:       req.InvestorID,
			PitchID:          pitch.ID,
			InvestmentAmount: req.Amount,
			Tier:             tierdomain.SnapshotOf(tier),
			InvestedAt:       now,
		}

		ok, err := s.pitchRepo.AddFunding(ctx, tx, pitch.ID, req.Amount, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOverTarget
		}

		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     req.InvestorID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionDebit,
			Amount:     req.Amount,
			SourceType: ledgerdomain.SourceTypeInvestment,
			SourceID:   inv.ID,
		}); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &inv); err != nil {
			return ledgerdomain.Consistency("investment_insert", err)
		}

		updated, err := s.pitchRepo.FindByID(ctx, tx, pitch.ID)
		if err != nil {
			return ledgerdomain.Consistency("pitch_reload", err)
		}
		if updated == nil {
			return ledgerdomain.Consistency("pitch_reload", pitchdomain.ErrNotFound)
		}

		released, err := s.release(ctx, tx, updated, now)
		if err != nil {
			return err
		}
		if released {
			releasedAt := now
			updated.Status = pitchdomain.StatusFunded
			updated.ReleasedAt = &releasedAt
			updated.InvestmentPool = 0
		}

		targetID := inv.ID.String()
		if err := s.audit.AuditLog(ctx, tx, auditdomain.ActionInvestmentCreate, "investment", &targetID, map[string]any{
			"pitch_id":  pitch.ID.String(),
			"reference": inv.Reference,
			"amount":    inv.InvestmentAmount,
			"tier":      inv.Tier.Name,
		}); err != nil {
			return ledgerdomain.Consistency("audit", err)
		}

		result = domain.InvestResult{
			Investment: inv,
			Funding:    pitchdomain.StateOf(*updated, tiers),
			Released:   released,
		}
		return nil
	})
	if err != nil {
		s.logConsistency(ctx, log, err)
		return domain.InvestResult{}, err
	}

	tierName := result.Investment.Tier.Name
	if tierName == "" {
		tierName = "none"
	}
	s.obsMetrics.RecordInvestment(ctx, tierName, result.Investment.InvestmentAmount)
	s.cache.InvalidateInvestment(req.InvestorID, businessID, pitchID)

	log.Info("investment recorded",
		zap.String("investment_id", result.Investment.ID.String()),
		zap.String("investor_id", req.InvestorID.String()),
		zap.Int64("amount", req.Amount),
		zap.Bool("released", result.Released),
	)
	return result, nil
}

// release moves the pool to the owner's funding balance the first time the
// target is reached. Only the caller whose conditional update wins credits.
func (s *Service) release(ctx context.Context, tx *gorm.DB, pitch *pitchdomain.Pitch, now time.Time) (bool, error) {
	if !pitch.FullyFunded() || pitch.ReleasedAt != nil {
		return false, nil
	}
	pool := pitch.InvestmentPool
	ok, err := s.pitchRepo.MarkReleased(ctx, tx, pitch.ID, pool, now)
	if err != nil {
		return false, ledgerdomain.Consistency("fund_release_mark", err)
	}
	if !ok {
		return false, nil
	}
	if pool > 0 {
		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     pitch.BusinessID,
			Account:    ledgerdomain.FundingBalance,
			Direction:  ledgerdomain.DirectionCredit,
			Amount:     pool,
			SourceType: ledgerdomain.SourceTypeFundRelease,
			SourceID:   pitch.ID,
		}); err != nil {
			return false, ledgerdomain.Consistency("fund_release_credit", err)
		}
	}
	targetID := pitch.ID.String()
	if err := s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchFunded, "pitch", &targetID, map[string]any{
		"released_amount": pool,
		"business_id":     pitch.BusinessID.String(),
	}); err != nil {
		return false, ledgerdomain.Consistency("audit", err)
	}
	return true, nil
}

// List returns every investment for the pitch owner or an admin, and only the
// caller's own investments otherwise.
func (s *Service) List(ctx context.Context, req domain.ListInvestmentsRequest) ([]domain.Investment, error) {
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return nil, domain.ErrInvalidPitch
	}
	pitch, err := s.pitchRepo.FindByID(ctx, s.db, pitchID)
	if err != nil {
		return nil, err
	}
	if pitch == nil {
		return nil, domain.ErrInvalidPitch
	}

	items, err := s.repo.ListByPitch(ctx, s.db, pitchID)
	if err != nil {
		return nil, err
	}
	if req.IsAdmin || pitch.BusinessID == req.ActorID {
		return items, nil
	}
	if req.ActorID == 0 {
		return nil, domain.ErrForbidden
	}
	own := make([]domain.Investment, 0, len(items))
	for _, item := range items {
		if item.InvestorID == req.ActorID {
			own = append(own, item)
		}
	}
	return own, nil
}

func (s *Service) RefundIfUnderfunded(ctx context.Context, pitchID snowflake.ID) (domain.RefundResult, error) {
	var (
		result     domain.RefundResult
		businessID snowflake.ID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.RefundWithin(ctx, tx, pitchID)
		if err != nil {
			return err
		}
		pitch, err := s.pitchRepo.FindByID(ctx, tx, pitchID)
		if err != nil {
			return err
		}
		if pitch != nil {
			businessID = pitch.BusinessID
		}
		return nil
	})
	if err != nil {
		s.logConsistency(ctx, obslogger.WithPitch(s.log, pitchID.String()), err)
		return domain.RefundResult{}, err
	}

	if result.Count > 0 {
		s.obsMetrics.RecordRefunds(ctx, refundTriggerDirect, result.Count)
		s.cache.InvalidatePitch(businessID, pitchID, result.InvestorIDs)
	}
	return result, nil
}

// RefundWithin credits every non-refunded investor of an underfunded pitch in
// full on tx. Already refunded investments are skipped, so repeating it is a no-op.
func (s *Service) RefundWithin(ctx context.Context, tx *gorm.DB, pitchID snowflake.ID) (domain.RefundResult, error) {
	if pitchID == 0 {
		return domain.RefundResult{}, domain.ErrInvalidPitch
	}
	result := domain.RefundResult{PitchID: pitchID}

	pitch, err := s.pitchRepo.FindByIDForUpdate(ctx, tx, pitchID)
	if err != nil {
		return result, err
	}
	if pitch == nil {
		return result, domain.ErrInvalidPitch
	}
	if pitch.FullyFunded() {
		result.AlreadyFunded = true
		return result, nil
	}

	items, err := s.repo.ListActiveByPitch(ctx, tx, pitchID)
	if err != nil {
		return result, err
	}

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{}, len(items))
	for _, inv := range items {
		ok, err := s.repo.MarkRefunded(ctx, tx, inv.ID, inv.InvestmentAmount, now)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     inv.InvestorID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionCredit,
			Amount:     inv.InvestmentAmount,
			SourceType: ledgerdomain.SourceTypeRefund,
			SourceID:   inv.ID,
		}); err != nil {
			return result, ledgerdomain.Consistency("refund_credit", err)
		}
		if err := s.pitchRepo.RemoveFunding(ctx, tx, pitchID, inv.InvestmentAmount, now); err != nil {
			return result, ledgerdomain.Consistency("refund_remove_funding", err)
		}

		result.Count++
		result.Amount += inv.InvestmentAmount
		if _, dup := seen[inv.InvestorID]; !dup {
			seen[inv.InvestorID] = struct{}{}
			result.InvestorIDs = append(result.InvestorIDs, inv.InvestorID)
		}
	}

	if result.Count > 0 {
		targetID := pitchID.String()
		if err := s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchRefunded, "pitch", &targetID, map[string]any{
			"count":  result.Count,
			"amount": result.Amount,
		}); err != nil {
			return result, ledgerdomain.Consistency("audit", err)
		}
	}
	return result, nil
}

func (s *Service) logConsistency(ctx context.Context, log *zap.Logger, err error) {
	var cerr *ledgerdomain.ConsistencyError
	if !errors.As(err, &cerr) {
		return
	}
	s.obsMetrics.RecordConsistencyError(ctx, cerr.Stage)
	log.Error("ledger consistency failure, transaction rolled back",
		zap.String("stage", cerr.Stage),
		zap.Error(cerr.Err),
	)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidPitch
	}
	return id, nil
}
