package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/distribution/domain"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	"github.com/smallbiznis/pitchfund/internal/lock"
	obslogger "github.com/smallbiznis/pitchfund/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	PitchRepo      pitchdomain.Repository
	InvestmentRepo investmentdomain.Repository
	UserRepo       userdomain.Repository
	Ledger         ledgerdomain.Service
	Audit          auditdomain.Service
	Locker         lock.Locker
	Funding        *config.FundingConfigHolder
	Cache          *cache.PortfolioCache     `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
	LockMetrics    *obsmetrics.WorkerMetrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	pitchRepo      pitchdomain.Repository
	investmentRepo investmentdomain.Repository
	userRepo       userdomain.Repository
	ledger         ledgerdomain.Service
	audit          auditdomain.Service
	locker         lock.Locker
	funding        *config.FundingConfigHolder
	cache          *cache.PortfolioCache
	obsMetrics     *obsmetrics.Metrics
	lockMetrics    *obsmetrics.WorkerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("distribution.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		pitchRepo:      p.PitchRepo,
		investmentRepo: p.InvestmentRepo,
		userRepo:       p.UserRepo,
		ledger:         p.Ledger,
		audit:          p.Audit,
		locker:         p.Locker,
		funding:        p.Funding,
		cache:          p.Cache,
		obsMetrics:     p.ObsMetrics,
		lockMetrics:    p.LockMetrics,
	}
}

// plan is everything a declaration decides before it writes.
type plan struct {
	pitch       *pitchdomain.Pitch
	allocation  domain.Allocation
	nextAllowed *time.Time
	gate        error
}

// evaluate runs the declaration checks in order and computes the allocation.
// Ownership and validation failures are returned; a failed gate is kept in
// plan.gate so Preview can report it.
func (s *Service) evaluate(ctx context.Context, conn *gorm.DB, pitchID snowflake.ID, req domain.DeclareRequest, lockPitch bool) (plan, error) {
	var (
		pitch *pitchdomain.Pitch
		err   error
	)
	if lockPitch {
		pitch, err = s.pitchRepo.FindByIDForUpdate(ctx, conn, pitchID)
	} else {
		pitch, err = s.pitchRepo.FindByID(ctx, conn, pitchID)
	}
	if err != nil {
		return plan{}, err
	}
	if pitch == nil {
		return plan{}, domain.ErrNotFound
	}
	if pitch.BusinessID != req.ActorID {
		return plan{}, domain.ErrForbidden
	}
	if pitch.Status == pitchdomain.StatusDraft {
		return plan{}, domain.ErrInvalidPitch
	}

	p := plan{pitch: pitch}

	owner, err := s.userRepo.FindByID(ctx, conn, pitch.BusinessID)
	if err != nil {
		return plan{}, err
	}
	if owner == nil {
		return plan{}, userdomain.ErrNotFound
	}

	last, err := s.repo.LastDeclaredAt(ctx, conn, pitch.ID)
	if err != nil {
		return plan{}, err
	}
	interval := s.intervalFor(pitch)
	p.nextAllowed = domain.NextAllowed(pitch.EndDate, last, interval)

	switch {
	case pitch.Status == pitchdomain.StatusClosed:
		p.gate = domain.ErrPitchClosed
	case owner.AccountBalance < req.Amount:
		p.gate = &userdomain.InsufficientBalanceError{Required: req.Amount, Available: owner.AccountBalance}
	case !pitch.FullyFunded():
		p.gate = &domain.NotFullyFundedError{Target: pitch.TargetAmount, Current: pitch.CurrentAmount}
	default:
		p.gate = domain.CheckEligibility(s.clock.Now(), pitch.EndDate, last, interval)
	}

	investments, err := s.investmentRepo.ListActiveByPitch(ctx, conn, pitch.ID)
	if err != nil {
		return plan{}, err
	}
	holdings := make([]domain.Holding, 0, len(investments))
	for _, inv := range investments {
		holdings = append(holdings, domain.Holding{
			InvestorID: inv.InvestorID,
			Amount:     inv.InvestmentAmount,
			Multiplier: inv.Tier.Multiplier,
		})
	}
	p.allocation, err = domain.Allocate(req.Amount, pitch.ProfitShare, holdings)
	if err != nil {
		return plan{}, err
	}
	return p, nil
}

func (s *Service) intervalFor(pitch *pitchdomain.Pitch) int {
	if pitch.DistributionIntervalMonths != nil {
		return *pitch.DistributionIntervalMonths
	}
	if s.funding == nil {
		return 0
	}
	return s.funding.Get().DistributionIntervalMonths
}

func (s *Service) Preview(ctx context.Context, req domain.DeclareRequest) (domain.Preview, error) {
	pitchID, err := validate(req)
	if err != nil {
		return domain.Preview{}, err
	}

	p, err := s.evaluate(ctx, s.db, pitchID, req, false)
	if err != nil {
		return domain.Preview{}, err
	}

	out := domain.Preview{
		Allocation:  p.allocation,
		PitchID:     pitchID,
		Eligible:    p.gate == nil,
		NextAllowed: p.nextAllowed,
	}
	if p.gate != nil {
		out.Reason = reason(p.gate)
	}
	return out, nil
}

func (s *Service) Declare(ctx context.Context, req domain.DeclareRequest) (domain.DeclareResult, error) {
	pitchID, err := validate(req)
	if err != nil {
		return domain.DeclareResult{}, err
	}
	log := obslogger.WithPitch(s.log, pitchID.String())

	waitStarted := time.Now()
	release, err := s.locker.Acquire(ctx, lock.PitchDistributionKey(pitchID.String()))
	s.lockMetrics.ObserveLockWait("pitch_distribution", time.Since(waitStarted))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return domain.DeclareResult{}, domain.ErrDeclarationInFlight
		}
		return domain.DeclareResult{}, err
	}
	defer release()

	var result domain.DeclareResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.evaluate(ctx, tx, pitchID, req, true)
		if err != nil {
			return err
		}
		if p.gate != nil {
			return p.gate
		}

		now := s.clock.Now()
		dist := domain.ProfitDistribution{
			ID:               s.genID.Generate(),
			PitchID:          p.pitch.ID,
			DeclaredBy:       req.ActorID,
			TotalProfit:      p.allocation.TotalProfit,
			ProfitShare:      p.allocation.ProfitShare,
			InvestorPool:     p.allocation.InvestorPool,
			BusinessProfit:   p.allocation.BusinessProfit,
			DistributionDate: now,
		}

		if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:     p.pitch.BusinessID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionDebit,
			Amount:     dist.TotalProfit,
			SourceType: ledgerdomain.SourceTypeProfitDeclaration,
			SourceID:   dist.ID,
		}); err != nil {
			return err
		}

		if err := s.repo.InsertDistribution(ctx, tx, &dist); err != nil {
			return ledgerdomain.Consistency("distribution_insert", err)
		}

		payouts := make([]domain.InvestorPayout, 0, len(p.allocation.Shares))
		for _, share := range p.allocation.Shares {
			payout := domain.InvestorPayout{
				ID:             s.genID.Generate(),
				DistributionID: dist.ID,
				InvestorID:     share.InvestorID,
				Amount:         share.Amount,
				Percentage:     share.Percentage,
				WeightedAmount: share.Weighted,
				CreatedAt:      now,
			}
			if err := s.repo.InsertPayout(ctx, tx, &payout); err != nil {
				return ledgerdomain.Consistency("payout_insert", err)
			}
			if payout.Amount > 0 {
				if _, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
					UserID:     payout.InvestorID,
					Account:    ledgerdomain.AccountBalance,
					Direction:  ledgerdomain.DirectionCredit,
					Amount:     payout.Amount,
					SourceType: ledgerdomain.SourceTypeProfitPayout,
					SourceID:   payout.ID,
				}); err != nil {
					return ledgerdomain.Consistency("payout_credit", err)
				}
			}
			payouts = append(payouts, payout)
		}

		targetID := dist.ID.String()
		if err := s.audit.AuditLog(ctx, tx, auditdomain.ActionProfitDeclared, "profit_distribution", &targetID, map[string]any{
			"pitch_id":        p.pitch.ID.String(),
			"total_profit":    dist.TotalProfit,
			"investor_pool":   dist.InvestorPool,
			"business_profit": dist.BusinessProfit,
			"payouts":         len(payouts),
		}); err != nil {
			return ledgerdomain.Consistency("audit", err)
		}

		result = domain.DeclareResult{
			Distribution: dist,
			Payouts:      payouts,
			Allocation:   p.allocation,
		}
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordDistribution(ctx, reason(err))
		var cerr *ledgerdomain.ConsistencyError
		if errors.As(err, &cerr) {
			s.obsMetrics.RecordConsistencyError(ctx, cerr.Stage)
			log.Error("ledger consistency failure, declaration rolled back",
				zap.String("stage", cerr.Stage),
				zap.Error(cerr.Err),
			)
		}
		return domain.DeclareResult{}, err
	}

	s.obsMetrics.RecordDistribution(ctx, "declared")
	payees := make([]snowflake.ID, 0, len(result.Payouts))
	for _, payout := range result.Payouts {
		payees = append(payees, payout.InvestorID)
	}
	s.cache.InvalidateDistribution(req.ActorID, pitchID, payees)

	log.Info("profit declared",
		zap.String("distribution_id", result.Distribution.ID.String()),
		zap.Int64("total_profit", result.Distribution.TotalProfit),
		zap.Int64("investor_pool", result.Distribution.InvestorPool),
		zap.Int("payouts", len(result.Payouts)),
	)
	return result, nil
}

// Get returns a distribution to the pitch owner or an admin, and to an
// investor with only their own payout.
func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.Detail, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Detail{}, domain.ErrInvalidID
	}

	dist, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}
	if dist == nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	payouts, err := s.repo.ListPayouts(ctx, s.db, dist.ID)
	if err != nil {
		return domain.Detail{}, err
	}

	pitch, err := s.pitchRepo.FindByID(ctx, s.db, dist.PitchID)
	if err != nil {
		return domain.Detail{}, err
	}
	if req.IsAdmin || (pitch != nil && pitch.BusinessID == req.ActorID) {
		return domain.Detail{Distribution: *dist, Payouts: payouts}, nil
	}

	own := make([]domain.InvestorPayout, 0, 1)
	for _, payout := range payouts {
		if payout.InvestorID == req.ActorID {
			own = append(own, payout)
		}
	}
	if len(own) == 0 {
		return domain.Detail{}, domain.ErrNotFound
	}
	return domain.Detail{Distribution: *dist, Payouts: own}, nil
}

func (s *Service) ListByPitch(ctx context.Context, req domain.ListRequest) ([]domain.ProfitDistribution, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.PitchID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidPitch
	}

	pitch, err := s.pitchRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if pitch == nil {
		return nil, domain.ErrNotFound
	}
	if req.IsAdmin || pitch.BusinessID == req.ActorID {
		return s.repo.ListByPitch(ctx, s.db, id)
	}
	return s.repo.ListByPitchForInvestor(ctx, s.db, id, req.ActorID)
}

func validate(req domain.DeclareRequest) (snowflake.ID, error) {
	pitchID, err := snowflake.ParseString(strings.TrimSpace(req.PitchID))
	if err != nil || pitchID == 0 {
		return 0, domain.ErrInvalidPitch
	}
	if req.ActorID == 0 {
		return 0, domain.ErrForbidden
	}
	if req.Amount <= 0 {
		return 0, domain.ErrInvalidProfitAmount
	}
	return pitchID, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, userdomain.ErrInsufficientBalance):
		return userdomain.ErrInsufficientBalance.Error()
	case errors.Is(err, domain.ErrNotFullyFunded):
		return domain.ErrNotFullyFunded.Error()
	case errors.Is(err, domain.ErrTooEarly):
		return domain.ErrTooEarly.Error()
	case errors.Is(err, domain.ErrNotYetDue):
		return domain.ErrNotYetDue.Error()
	case errors.Is(err, domain.ErrPitchClosed):
		return domain.ErrPitchClosed.Error()
	case errors.Is(err, ledgerdomain.ErrInternalConsistency):
		return "internal_consistency"
	default:
		return "rejected"
	}
}
