package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/pitchfund/internal/analysis"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/config"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	obslogger "github.com/smallbiznis/pitchfund/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	"github.com/smallbiznis/pitchfund/internal/pitch/domain"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	refundTriggerClose   = "close"
	refundTriggerExpired = "expired"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	TierRepo    tierdomain.Repository
	Investments investmentdomain.Service
	Audit       auditdomain.Service
	Funding     *config.FundingConfigHolder
	Analyzer    analysis.Analyzer     `optional:"true"`
	Cache       *cache.PortfolioCache `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	tierRepo    tierdomain.Repository
	investments investmentdomain.Service
	audit       auditdomain.Service
	funding     *config.FundingConfigHolder
	analyzer    analysis.Analyzer
	cache       *cache.PortfolioCache
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pitch.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		tierRepo:    p.TierRepo,
		investments: p.Investments,
		audit:       p.Audit,
		funding:     p.Funding,
		analyzer:    p.Analyzer,
		cache:       p.Cache,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePitchRequest) (domain.Pitch, error) {
	if req.BusinessID == 0 {
		return domain.Pitch{}, domain.ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Pitch{}, domain.ErrInvalidTitle
	}
	if req.TargetAmount <= 0 {
		return domain.Pitch{}, domain.ErrInvalidTarget
	}
	maxShare := s.funding.Get().MaxProfitShare
	if req.ProfitShare.IsNegative() || req.ProfitShare.GreaterThan(maxShare) {
		return domain.Pitch{}, domain.ErrInvalidProfitShare
	}
	now := s.clock.Now()
	var endDate *time.Time
	if req.EndDate != nil {
		if !req.EndDate.After(now) {
			return domain.Pitch{}, domain.ErrInvalidEndDate
		}
		end := req.EndDate.UTC()
		endDate = &end
	}
	if req.DistributionIntervalMonths != nil && *req.DistributionIntervalMonths < 0 {
		return domain.Pitch{}, domain.ErrInvalidInterval
	}

	id := s.genID.Generate()
	tiers, err := s.buildTiers(id, req.Tiers)
	if err != nil {
		return domain.Pitch{}, err
	}

	pitch := domain.Pitch{
		ID:                         id,
		BusinessID:                 req.BusinessID,
		Title:                      title,
		Slug:                       makeSlug(title, id),
		Summary:                    strings.TrimSpace(req.Summary),
		TargetAmount:               req.TargetAmount,
		ProfitShare:                req.ProfitShare,
		Status:                     domain.StatusDraft,
		EndDate:                    endDate,
		DistributionIntervalMonths: req.DistributionIntervalMonths,
		CreatedAt:                  now,
		UpdatedAt:                  now,
		Tiers:                      tiers,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &pitch); err != nil {
			return err
		}
		if err := s.tierRepo.ReplaceForPitch(ctx, tx, pitch.ID, tiers); err != nil {
			return err
		}
		targetID := pitch.ID.String()
		return s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchCreated, "pitch", &targetID, map[string]any{
			"target_amount": pitch.TargetAmount,
			"profit_share":  pitch.ProfitShare.String(),
			"tiers":         len(tiers),
		})
	})
	if err != nil {
		return domain.Pitch{}, err
	}

	s.cache.InvalidatePitch(pitch.BusinessID, pitch.ID, nil)
	s.log.Info("pitch created",
		zap.String("pitch_id", pitch.ID.String()),
		zap.String("business_id", pitch.BusinessID.String()),
		zap.Int64("target_amount", pitch.TargetAmount),
	)
	return pitch, nil
}

func (s *Service) buildTiers(pitchID snowflake.ID, inputs []domain.TierInput) ([]tierdomain.Tier, error) {
	tiers := make([]tierdomain.Tier, 0, len(inputs))
	for _, in := range inputs {
		tiers = append(tiers, tierdomain.Tier{
			ID:         s.genID.Generate(),
			PitchID:    pitchID,
			Name:       in.Name,
			MinAmount:  in.MinAmount,
			MaxAmount:  in.MaxAmount,
			Multiplier: in.Multiplier,
		})
	}
	tiers = tierdomain.Normalize(tiers)
	if err := tierdomain.Validate(tiers); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTiers, err)
	}
	return tiers, nil
}

func (s *Service) ReplaceTiers(ctx context.Context, req domain.ReplaceTiersRequest) (domain.Pitch, error) {
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return domain.Pitch{}, err
	}

	var pitch *domain.Pitch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err = s.ownedForUpdate(ctx, tx, pitchID, req.ActorID)
		if err != nil {
			return err
		}
		if pitch.Status != domain.StatusDraft {
			return domain.ErrNotDraft
		}
		tiers, err := s.buildTiers(pitch.ID, req.Tiers)
		if err != nil {
			return err
		}
		if err := s.tierRepo.ReplaceForPitch(ctx, tx, pitch.ID, tiers); err != nil {
			return err
		}
		pitch.Tiers = tiers
		targetID := pitch.ID.String()
		return s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchTiersSet, "pitch", &targetID, map[string]any{
			"tiers": len(tiers),
		})
	})
	if err != nil {
		return domain.Pitch{}, err
	}
	s.cache.InvalidatePitch(pitch.BusinessID, pitch.ID, nil)
	return *pitch, nil
}

func (s *Service) Publish(ctx context.Context, req domain.PitchActionRequest) (domain.Pitch, error) {
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return domain.Pitch{}, err
	}

	var pitch *domain.Pitch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err = s.ownedForUpdate(ctx, tx, pitchID, req.ActorID)
		if err != nil {
			return err
		}
		if pitch.Status != domain.StatusDraft {
			return domain.ErrNotDraft
		}
		now := s.clock.Now()
		if pitch.EndDate != nil && !pitch.EndDate.After(now) {
			return domain.ErrInvalidEndDate
		}
		ok, err := s.repo.TransitionStatus(ctx, tx, pitch.ID, []domain.Status{domain.StatusDraft}, domain.StatusActive, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotDraft
		}
		pitch.Status = domain.StatusActive
		pitch.UpdatedAt = now
		targetID := pitch.ID.String()
		return s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchPublished, "pitch", &targetID, nil)
	})
	if err != nil {
		return domain.Pitch{}, err
	}

	if err := s.loadTiers(ctx, pitch); err != nil {
		return domain.Pitch{}, err
	}
	s.cache.InvalidatePitch(pitch.BusinessID, pitch.ID, nil)
	s.log.Info("pitch published", zap.String("pitch_id", pitch.ID.String()))
	return *pitch, nil
}

func (s *Service) Close(ctx context.Context, req domain.PitchActionRequest) (domain.CloseResult, error) {
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return domain.CloseResult{}, err
	}

	var result domain.CloseResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := s.ownedForUpdate(ctx, tx, pitchID, req.ActorID)
		if err != nil {
			return err
		}
		result, err = s.closeLocked(ctx, tx, pitch, "owner")
		return err
	})
	if err != nil {
		return domain.CloseResult{}, err
	}

	s.afterClose(ctx, result, refundTriggerClose)
	return result, nil
}

// CloseExpired closes active pitches past their end date, one transaction per
// pitch. Each transaction claims a single row so concurrent workers skip it.
func (s *Service) CloseExpired(ctx context.Context, limit int) ([]domain.CloseResult, error) {
	if limit <= 0 {
		limit = 1
	}
	results := make([]domain.CloseResult, 0)
	for len(results) < limit {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var (
			result domain.CloseResult
			found  bool
		)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := s.clock.Now()
			ids, err := s.repo.ListExpiredActive(ctx, tx, now, 1)
			if err != nil || len(ids) == 0 {
				return err
			}
			pitch, err := s.repo.FindByIDForUpdate(ctx, tx, ids[0])
			if err != nil {
				return err
			}
			if pitch == nil || pitch.Status != domain.StatusActive {
				return nil
			}
			found = true
			result, err = s.closeLocked(ctx, tx, pitch, "expired")
			return err
		})
		if err != nil {
			return results, err
		}
		if !found {
			break
		}
		s.afterClose(ctx, result, refundTriggerExpired)
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) closeLocked(ctx context.Context, tx *gorm.DB, pitch *domain.Pitch, reason string) (domain.CloseResult, error) {
	switch pitch.Status {
	case domain.StatusClosed:
		return domain.CloseResult{}, domain.ErrAlreadyClosed
	case domain.StatusFunded:
		// investors of a funded pitch are still owed profit declarations
		return domain.CloseResult{}, domain.ErrPitchFunded
	}
	now := s.clock.Now()
	ok, err := s.repo.TransitionStatus(ctx, tx, pitch.ID,
		[]domain.Status{domain.StatusDraft, domain.StatusActive},
		domain.StatusClosed, now)
	if err != nil {
		return domain.CloseResult{}, err
	}
	if !ok {
		return domain.CloseResult{}, domain.ErrAlreadyClosed
	}

	refund, err := s.investments.RefundWithin(ctx, tx, pitch.ID)
	if err != nil {
		return domain.CloseResult{}, err
	}

	closed, err := s.repo.FindByID(ctx, tx, pitch.ID)
	if err != nil {
		return domain.CloseResult{}, err
	}
	if closed == nil {
		return domain.CloseResult{}, domain.ErrNotFound
	}

	targetID := pitch.ID.String()
	if err := s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchClosed, "pitch", &targetID, map[string]any{
		"reason":          reason,
		"refunded_count":  refund.Count,
		"refunded_amount": refund.Amount,
	}); err != nil {
		return domain.CloseResult{}, err
	}

	return domain.CloseResult{
		Pitch:          *closed,
		RefundedCount:  refund.Count,
		RefundedAmount: refund.Amount,
		AlreadyFunded:  refund.AlreadyFunded,
		InvestorIDs:    refund.InvestorIDs,
	}, nil
}

func (s *Service) afterClose(ctx context.Context, result domain.CloseResult, trigger string) {
	if result.RefundedCount > 0 {
		s.obsMetrics.RecordRefunds(ctx, trigger, result.RefundedCount)
	}
	s.cache.InvalidatePitch(result.Pitch.BusinessID, result.Pitch.ID, result.InvestorIDs)
	obslogger.WithPitch(s.log, result.Pitch.ID.String()).Info("pitch closed",
		zap.String("trigger", trigger),
		zap.Int("refunded_count", result.RefundedCount),
		zap.Int64("refunded_amount", result.RefundedAmount),
	)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Pitch, error) {
	pitchID, err := parseID(id)
	if err != nil {
		return domain.Pitch{}, err
	}
	pitch, err := s.repo.FindByID(ctx, s.db, pitchID)
	if err != nil {
		return domain.Pitch{}, err
	}
	if pitch == nil {
		return domain.Pitch{}, domain.ErrNotFound
	}
	if err := s.loadTiers(ctx, pitch); err != nil {
		return domain.Pitch{}, err
	}
	return *pitch, nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (domain.Pitch, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Pitch{}, domain.ErrNotFound
	}
	pitch, err := s.repo.FindBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Pitch{}, err
	}
	if pitch == nil {
		return domain.Pitch{}, domain.ErrNotFound
	}
	if err := s.loadTiers(ctx, pitch); err != nil {
		return domain.Pitch{}, err
	}
	return *pitch, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPitchRequest) (domain.ListPitchResponse, error) {
	filter := domain.ListFilter{Limit: req.Pagination.Limit()}

	if status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status))); status != "" {
		switch status {
		case domain.StatusDraft, domain.StatusActive, domain.StatusFunded, domain.StatusClosed:
			filter.Status = status
		default:
			return domain.ListPitchResponse{}, domain.ErrInvalidStatus
		}
	}
	if businessID := strings.TrimSpace(req.BusinessID); businessID != "" {
		id, err := parseID(businessID)
		if err != nil {
			return domain.ListPitchResponse{}, err
		}
		filter.BusinessID = id
	}
	cursor, err := req.Pagination.Cursor()
	if err != nil {
		return domain.ListPitchResponse{}, domain.ErrInvalidPageToken
	}
	filter.Cursor = cursor

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListPitchResponse{}, err
	}
	items, info, err := pagination.Trim(items, filter.Limit, func(p *domain.Pitch) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.Int64(), CreatedAt: p.CreatedAt}
	})
	if err != nil {
		return domain.ListPitchResponse{}, err
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	tiers, err := s.tierRepo.ListByPitches(ctx, s.db, ids)
	if err != nil {
		return domain.ListPitchResponse{}, err
	}

	pitches := make([]domain.Pitch, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		item.Tiers = tiers[item.ID]
		if item.Tiers == nil {
			item.Tiers = []tierdomain.Tier{}
		}
		pitches = append(pitches, *item)
	}
	return domain.ListPitchResponse{PageInfo: info, Pitches: pitches}, nil
}

func (s *Service) FundingState(ctx context.Context, id string) (domain.FundingState, error) {
	pitchID, err := parseID(id)
	if err != nil {
		return domain.FundingState{}, err
	}
	if state, ok := s.cache.Funding(pitchID); ok {
		return state, nil
	}
	pitch, err := s.Get(ctx, id)
	if err != nil {
		return domain.FundingState{}, err
	}
	state := domain.StateOf(pitch, pitch.Tiers)
	s.cache.SetFunding(state)
	return state, nil
}

// AttachAnalysis scores the pitch text and stores the opaque result on it.
func (s *Service) AttachAnalysis(ctx context.Context, req domain.PitchActionRequest) (domain.Pitch, error) {
	if s.analyzer == nil {
		return domain.Pitch{}, domain.ErrAnalysisUnavailable
	}
	pitchID, err := parseID(req.PitchID)
	if err != nil {
		return domain.Pitch{}, err
	}
	pitch, err := s.repo.FindByID(ctx, s.db, pitchID)
	if err != nil {
		return domain.Pitch{}, err
	}
	if pitch == nil {
		return domain.Pitch{}, domain.ErrNotFound
	}
	if pitch.BusinessID != req.ActorID {
		return domain.Pitch{}, domain.ErrForbidden
	}

	out, err := s.analyzer.Analyze(ctx, analysis.Input{
		Title:        pitch.Title,
		Summary:      pitch.Summary,
		TargetAmount: pitch.TargetAmount,
		ProfitShare:  pitch.ProfitShare.String(),
	})
	if err != nil {
		s.log.Warn("pitch analysis failed", zap.String("pitch_id", pitch.ID.String()), zap.Error(err))
		return domain.Pitch{}, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}

	now := s.clock.Now()
	result := datatypes.JSONMap(out.Map())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SetAnalysis(ctx, tx, pitch.ID, result, now); err != nil {
			return err
		}
		targetID := pitch.ID.String()
		return s.audit.AuditLog(ctx, tx, auditdomain.ActionPitchAnalyzed, "pitch", &targetID, map[string]any{
			"score": out.Score,
		})
	})
	if err != nil {
		return domain.Pitch{}, err
	}
	pitch.Analysis = result
	pitch.UpdatedAt = now
	if err := s.loadTiers(ctx, pitch); err != nil {
		return domain.Pitch{}, err
	}
	return *pitch, nil
}

func (s *Service) ownedForUpdate(ctx context.Context, tx *gorm.DB, id, actorID snowflake.ID) (*domain.Pitch, error) {
	pitch, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if pitch == nil {
		return nil, domain.ErrNotFound
	}
	if actorID == 0 || pitch.BusinessID != actorID {
		return nil, domain.ErrForbidden
	}
	return pitch, nil
}

func (s *Service) loadTiers(ctx context.Context, pitch *domain.Pitch) error {
	tiers, err := s.tierRepo.ListByPitch(ctx, s.db, pitch.ID)
	if err != nil {
		return err
	}
	if tiers == nil {
		tiers = []tierdomain.Tier{}
	}
	pitch.Tiers = tiers
	return nil
}

func makeSlug(title string, id snowflake.ID) string {
	base := slug.Make(title)
	if base == "" {
		base = "pitch"
	}
	return base + "-" + strings.ToLower(id.Base36())
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
