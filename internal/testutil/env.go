package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pitchfund/internal/analysis"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	auditrepo "github.com/smallbiznis/pitchfund/internal/audit/repository"
	auditservice "github.com/smallbiznis/pitchfund/internal/audit/service"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/clock"
	"github.com/smallbiznis/pitchfund/internal/config"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	distributionrepo "github.com/smallbiznis/pitchfund/internal/distribution/repository"
	distributionservice "github.com/smallbiznis/pitchfund/internal/distribution/service"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	investmentrepo "github.com/smallbiznis/pitchfund/internal/investment/repository"
	investmentservice "github.com/smallbiznis/pitchfund/internal/investment/service"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/pitchfund/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/pitchfund/internal/ledger/service"
	"github.com/smallbiznis/pitchfund/internal/lock"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	pitchrepo "github.com/smallbiznis/pitchfund/internal/pitch/repository"
	pitchservice "github.com/smallbiznis/pitchfund/internal/pitch/service"
	portfoliodomain "github.com/smallbiznis/pitchfund/internal/portfolio/domain"
	portfolioservice "github.com/smallbiznis/pitchfund/internal/portfolio/service"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	tierrepo "github.com/smallbiznis/pitchfund/internal/tier/repository"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	userrepo "github.com/smallbiznis/pitchfund/internal/user/repository"
	userservice "github.com/smallbiznis/pitchfund/internal/user/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Start is the instant every Env clock begins at.
var Start = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// Env wires every service against one database, the way the fx modules do.
type Env struct {
	DB      *gorm.DB
	Clock   *clock.FakeClock
	Cache   *cache.PortfolioCache
	Funding *config.FundingConfigHolder
	Locker  lock.Locker

	UserRepo         userdomain.Repository
	LedgerRepo       ledgerdomain.Repository
	PitchRepo        pitchdomain.Repository
	TierRepo         tierdomain.Repository
	InvestmentRepo   investmentdomain.Repository
	DistributionRepo distributiondomain.Repository
	AuditRepo        auditdomain.Repository

	Audit         auditdomain.Service
	Ledger        ledgerdomain.Service
	Users         userdomain.Service
	Investments   investmentdomain.Service
	Pitches       pitchdomain.Service
	Distributions distributiondomain.Service
	Portfolio     portfoliodomain.Service
}

type Option func(*envOptions)

type envOptions struct {
	funding  config.FundingConfig
	locker   lock.Locker
	ledger   func(ledgerdomain.Service) ledgerdomain.Service
	noCache  bool
	analyzer analysis.Analyzer
}

func WithFunding(cfg config.FundingConfig) Option {
	return func(o *envOptions) { o.funding = cfg }
}

func WithLocker(l lock.Locker) Option {
	return func(o *envOptions) { o.locker = l }
}

// WithLedger lets a test wrap the ledger, e.g. to inject failures.
func WithLedger(wrap func(ledgerdomain.Service) ledgerdomain.Service) Option {
	return func(o *envOptions) { o.ledger = wrap }
}

func WithAnalyzer(a analysis.Analyzer) Option {
	return func(o *envOptions) { o.analyzer = a }
}

func WithoutCache() Option {
	return func(o *envOptions) { o.noCache = true }
}

func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	o := envOptions{funding: config.DefaultFundingConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = lock.NewKeyedMutex()
	}

	log := zap.NewNop()
	node := Node(t)
	env := &Env{
		DB:               DB(t),
		Clock:            clock.NewFakeClock(Start),
		Funding:          config.NewStaticFundingConfigHolder(o.funding),
		Locker:           o.locker,
		UserRepo:         userrepo.Provide(),
		LedgerRepo:       ledgerrepo.Provide(),
		PitchRepo:        pitchrepo.Provide(),
		TierRepo:         tierrepo.Provide(),
		InvestmentRepo:   investmentrepo.Provide(),
		DistributionRepo: distributionrepo.Provide(),
		AuditRepo:        auditrepo.Provide(),
	}
	if !o.noCache {
		env.Cache = cache.NewPortfolioCache()
	}

	env.Audit = auditservice.NewService(auditservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.AuditRepo,
	})
	env.Ledger = ledgerservice.NewService(ledgerservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.LedgerRepo,
	})
	if o.ledger != nil {
		env.Ledger = o.ledger(env.Ledger)
	}
	env.Users = userservice.New(userservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.UserRepo,
		Ledger: env.Ledger, Audit: env.Audit, Cache: env.Cache,
	})
	env.Investments = investmentservice.New(investmentservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.InvestmentRepo,
		PitchRepo: env.PitchRepo, TierRepo: env.TierRepo, Ledger: env.Ledger,
		Audit: env.Audit, Cache: env.Cache,
	})
	env.Pitches = pitchservice.New(pitchservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.PitchRepo,
		TierRepo: env.TierRepo, Investments: env.Investments, Audit: env.Audit,
		Funding: env.Funding, Analyzer: o.analyzer, Cache: env.Cache,
	})
	env.Distributions = distributionservice.New(distributionservice.Params{
		DB: env.DB, Log: log, GenID: node, Clock: env.Clock, Repo: env.DistributionRepo,
		PitchRepo: env.PitchRepo, InvestmentRepo: env.InvestmentRepo, UserRepo: env.UserRepo,
		Ledger: env.Ledger, Audit: env.Audit, Locker: env.Locker, Funding: env.Funding,
		Cache: env.Cache,
	})
	env.Portfolio = portfolioservice.New(portfolioservice.Params{
		DB: env.DB, Log: log, Clock: env.Clock, UserRepo: env.UserRepo,
		PitchRepo: env.PitchRepo, TierRepo: env.TierRepo, InvestmentRepo: env.InvestmentRepo,
		DistributionRepo: env.DistributionRepo, Cache: env.Cache,
	})
	return env
}

var userSeq atomic.Int64

// User creates a user and deposits balance when it is positive.
func (e *Env) User(t *testing.T, role userdomain.Role, balance int64) userdomain.User {
	t.Helper()
	seq := userSeq.Add(1)
	u, err := e.Users.Create(context.Background(), userdomain.CreateUserRequest{
		Name:  string(role) + " user",
		Email: fmt.Sprintf("%s-%d@example.com", role, seq),
		Role:  role,
	})
	require.NoError(t, err)
	if balance > 0 {
		u, err = e.Users.Deposit(context.Background(), userdomain.AmountRequest{UserID: u.ID, Amount: balance})
		require.NoError(t, err)
	}
	return u
}

// Reload reads a user's current balances.
func (e *Env) Reload(t *testing.T, id snowflake.ID) userdomain.User {
	t.Helper()
	u, err := e.UserRepo.FindByID(context.Background(), e.DB, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return *u
}

// StandardTiers are the Bronze/Silver/Gold brackets used across tests.
func StandardTiers() []pitchdomain.TierInput {
	return []pitchdomain.TierInput{
		{Name: "Bronze", MinAmount: 0, MaxAmount: 499_999, Multiplier: decimal.NewFromInt(1)},
		{Name: "Silver", MinAmount: 500_000, MaxAmount: 999_999, Multiplier: decimal.RequireFromString("1.5")},
		{Name: "Gold", MinAmount: 1_000_000, MaxAmount: 100_000_000, Multiplier: decimal.NewFromInt(2)},
	}
}

type PitchSpec struct {
	Target      int64
	ProfitShare int64
	EndIn       time.Duration
	Interval    *int
	Tiers       []pitchdomain.TierInput
	Draft       bool
}

// Pitch creates and, unless spec.Draft, publishes a pitch owned by business.
func (e *Env) Pitch(t *testing.T, business userdomain.User, spec PitchSpec) pitchdomain.Pitch {
	t.Helper()
	ctx := context.Background()
	if spec.Target == 0 {
		spec.Target = 1_000_000
	}
	var endDate *time.Time
	if spec.EndIn > 0 {
		end := e.Clock.Now().Add(spec.EndIn)
		endDate = &end
	}
	p, err := e.Pitches.Create(ctx, pitchdomain.CreatePitchRequest{
		BusinessID:                 business.ID,
		Title:                      "Corner Bakery",
		Summary:                    "Second oven",
		TargetAmount:               spec.Target,
		ProfitShare:                decimal.NewFromInt(spec.ProfitShare),
		EndDate:                    endDate,
		DistributionIntervalMonths: spec.Interval,
		Tiers:                      spec.Tiers,
	})
	require.NoError(t, err)
	if spec.Draft {
		return p
	}
	p, err = e.Pitches.Publish(ctx, pitchdomain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
	require.NoError(t, err)
	return p
}

func (e *Env) Invest(t *testing.T, investor userdomain.User, pitch pitchdomain.Pitch, amount int64) investmentdomain.InvestResult {
	t.Helper()
	res, err := e.Investments.Invest(context.Background(), investmentdomain.InvestRequest{
		PitchID:    pitch.ID.String(),
		InvestorID: investor.ID,
		Amount:     amount,
	})
	require.NoError(t, err)
	return res
}

// LoadPitch reads the stored pitch row.
func (e *Env) LoadPitch(t *testing.T, pitch pitchdomain.Pitch) pitchdomain.Pitch {
	t.Helper()
	p, err := e.PitchRepo.FindByID(context.Background(), e.DB, pitch.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return *p
}
