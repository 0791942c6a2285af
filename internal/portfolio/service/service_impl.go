package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"github.com/smallbiznis/pitchfund/internal/portfolio/domain"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	UserRepo         userdomain.Repository
	PitchRepo        pitchdomain.Repository
	TierRepo         tierdomain.Repository
	InvestmentRepo   investmentdomain.Repository
	DistributionRepo distributiondomain.Repository
	Cache            *cache.PortfolioCache `optional:"true"`
}

// Service builds the read models behind the investor portfolio and the
// business dashboard, read-through the portfolio cache.
type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	userRepo         userdomain.Repository
	pitchRepo        pitchdomain.Repository
	tierRepo         tierdomain.Repository
	investmentRepo   investmentdomain.Repository
	distributionRepo distributiondomain.Repository
	cache            *cache.PortfolioCache
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("portfolio.service"),
		clock:            p.Clock,
		userRepo:         p.UserRepo,
		pitchRepo:        p.PitchRepo,
		tierRepo:         p.TierRepo,
		investmentRepo:   p.InvestmentRepo,
		distributionRepo: p.DistributionRepo,
		cache:            p.Cache,
	}
}

func (s *Service) Investor(ctx context.Context, userID snowflake.ID) (domain.InvestorPortfolio, error) {
	if userID == 0 {
		return domain.InvestorPortfolio{}, domain.ErrInvalidUser
	}
	if cached, ok := s.cache.Investor(userID); ok {
		return cached, nil
	}

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.InvestorPortfolio{}, err
	}
	if user == nil {
		return domain.InvestorPortfolio{}, domain.ErrNotFound
	}

	investments, err := s.investmentRepo.ListByInvestor(ctx, s.db, userID)
	if err != nil {
		return domain.InvestorPortfolio{}, err
	}
	payouts, err := s.distributionRepo.ListPayoutsByInvestor(ctx, s.db, userID)
	if err != nil {
		return domain.InvestorPortfolio{}, err
	}

	out := domain.InvestorPortfolio{
		UserID:         userID,
		AccountBalance: user.AccountBalance,
		Holdings:       []domain.Holding{},
		GeneratedAt:    s.clock.Now(),
	}

	index := make(map[snowflake.ID]int)
	for _, inv := range investments {
		i, ok := index[inv.PitchID]
		if !ok {
			pitch, err := s.pitchRepo.FindByID(ctx, s.db, inv.PitchID)
			if err != nil {
				return domain.InvestorPortfolio{}, err
			}
			h := domain.Holding{PitchID: inv.PitchID, Weighted: decimal.Zero}
			if pitch != nil {
				h.PitchTitle = pitch.Title
				h.PitchStatus = pitch.Status
			}
			i = len(out.Holdings)
			index[inv.PitchID] = i
			out.Holdings = append(out.Holdings, h)
		}

		h := &out.Holdings[i]
		h.Investments = append(h.Investments, inv)
		h.Invested += inv.InvestmentAmount
		out.TotalInvested += inv.InvestmentAmount
		if inv.Refunded {
			h.Refunded += inv.RefundedAmount
			out.TotalRefunded += inv.RefundedAmount
			continue
		}
		h.Weighted = h.Weighted.Add(inv.Weighted())
	}
	for _, p := range payouts {
		out.TotalReceived += p.Amount
	}

	sort.SliceStable(out.Holdings, func(a, b int) bool {
		return out.Holdings[a].PitchID > out.Holdings[b].PitchID
	})

	s.cache.SetInvestor(out)
	return out, nil
}

func (s *Service) Business(ctx context.Context, userID snowflake.ID) (domain.BusinessDashboard, error) {
	if userID == 0 {
		return domain.BusinessDashboard{}, domain.ErrInvalidUser
	}
	if cached, ok := s.cache.Business(userID); ok {
		return cached, nil
	}

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.BusinessDashboard{}, err
	}
	if user == nil {
		return domain.BusinessDashboard{}, domain.ErrNotFound
	}

	pitches, err := s.pitchRepo.List(ctx, s.db, pitchdomain.ListFilter{BusinessID: userID})
	if err != nil {
		return domain.BusinessDashboard{}, err
	}
	ids := make([]snowflake.ID, 0, len(pitches))
	for _, p := range pitches {
		ids = append(ids, p.ID)
	}
	tiers, err := s.tierRepo.ListByPitches(ctx, s.db, ids)
	if err != nil {
		return domain.BusinessDashboard{}, err
	}
	declared, err := s.distributionRepo.SumDeclaredByPitches(ctx, s.db, ids)
	if err != nil {
		return domain.BusinessDashboard{}, err
	}

	out := domain.BusinessDashboard{
		UserID:         userID,
		AccountBalance: user.AccountBalance,
		FundingBalance: user.FundingBalance,
		Pitches:        make([]domain.PitchSummary, 0, len(pitches)),
		GeneratedAt:    s.clock.Now(),
	}
	for _, p := range pitches {
		summary := domain.PitchSummary{
			FundingState:  pitchdomain.StateOf(*p, tiers[p.ID]),
			Title:         p.Title,
			TotalDeclared: declared[p.ID],
		}
		out.TotalRaised += p.CurrentAmount
		out.TotalDeclared += summary.TotalDeclared
		out.Pitches = append(out.Pitches, summary)
	}

	s.cache.SetBusiness(out)
	return out, nil
}
