package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/pitchfund/internal/analysis"
	"github.com/smallbiznis/pitchfund/internal/audit"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/authorization"
	"github.com/smallbiznis/pitchfund/internal/cache"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/distribution"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	"github.com/smallbiznis/pitchfund/internal/investment"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	"github.com/smallbiznis/pitchfund/internal/ledger"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	"github.com/smallbiznis/pitchfund/internal/lock"
	"github.com/smallbiznis/pitchfund/internal/observability"
	obsmiddleware "github.com/smallbiznis/pitchfund/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pitchfund/internal/observability/tracing"
	"github.com/smallbiznis/pitchfund/internal/pitch"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"github.com/smallbiznis/pitchfund/internal/portfolio"
	portfoliodomain "github.com/smallbiznis/pitchfund/internal/portfolio/domain"
	"github.com/smallbiznis/pitchfund/internal/ratelimit"
	"github.com/smallbiznis/pitchfund/internal/statement"
	"github.com/smallbiznis/pitchfund/internal/tier"
	"github.com/smallbiznis/pitchfund/internal/user"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Domain wires every service the API and the worker share.
var Domain = fx.Options(
	cache.Module,
	lock.Module,
	analysis.Module,
	audit.Module,
	authorization.Module,
	ledger.Module,
	user.Module,
	tier.Module,
	pitch.Module,
	investment.Module,
	distribution.Module,
	portfolio.Module,
	statement.Module,
)

var Module = fx.Module("http.server",
	Domain,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	userSvc         userdomain.Service
	ledgerSvc       ledgerdomain.Service
	pitchSvc        pitchdomain.Service
	investmentSvc   investmentdomain.Service
	distributionSvc distributiondomain.Service
	portfolioSvc    portfoliodomain.Service
	statementSvc    *statement.Service
	limiter         *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	UserSvc         userdomain.Service
	LedgerSvc       ledgerdomain.Service
	PitchSvc        pitchdomain.Service
	InvestmentSvc   investmentdomain.Service
	DistributionSvc distributiondomain.Service
	PortfolioSvc    portfoliodomain.Service
	StatementSvc    *statement.Service
	Limiter         *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		userSvc:         p.UserSvc,
		ledgerSvc:       p.LedgerSvc,
		pitchSvc:        p.PitchSvc,
		investmentSvc:   p.InvestmentSvc,
		distributionSvc: p.DistributionSvc,
		portfolioSvc:    p.PortfolioSvc,
		statementSvc:    p.StatementSvc,
		limiter:         p.Limiter,
	}
	s.RegisterAPIRoutes()
	return s
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.Identity())

	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserCreate), s.CreateUser)
	api.GET("/me", s.Me)

	accounts := api.Group("/accounts", s.authorize(authorization.ObjectAccount, authorization.ActionAccountManage))
	{
		accounts.POST("/deposit", s.limitWrites("deposit"), s.Deposit)
		accounts.POST("/withdraw", s.limitWrites("withdraw"), s.Withdraw)
		accounts.POST("/funding/transfer", s.limitWrites("funding_transfer"), s.TransferFunding)
		accounts.GET("/entries", s.ListEntries)
	}

	pitches := api.Group("/pitches")
	{
		pitches.POST("", s.authorize(authorization.ObjectPitch, authorization.ActionPitchCreate), s.CreatePitch)
		pitches.GET("", s.ListPitches)
		pitches.GET("/:id", s.GetPitch)
		pitches.GET("/:id/funding", s.GetFundingState)

		manage := s.authorize(authorization.ObjectPitch, authorization.ActionPitchManage)
		pitches.PUT("/:id/tiers", manage, s.ReplaceTiers)
		pitches.POST("/:id/publish", manage, s.PublishPitch)
		pitches.POST("/:id/close", manage, s.ClosePitch)
		pitches.POST("/:id/analysis", manage, s.AnalyzePitch)

		pitches.POST("/:id/investments", s.authorize(authorization.ObjectInvestment, authorization.ActionInvestmentCreate), s.limitWrites("invest"), s.Invest)
		pitches.GET("/:id/investments", s.ListInvestments)

		pitches.POST("/:id/distributions/preview", s.authorize(authorization.ObjectDistribution, authorization.ActionProfitPreview), s.PreviewDistribution)
		pitches.POST("/:id/distributions", s.authorize(authorization.ObjectDistribution, authorization.ActionProfitDeclare), s.limitWrites("declare"), s.DeclareDistribution)
		pitches.GET("/:id/distributions", s.ListDistributions)
	}

	api.GET("/distributions/:id", s.GetDistribution)
	api.GET("/distributions/:id/statement", s.GetDistributionStatement)

	portfolio := api.Group("/portfolio", s.authorize(authorization.ObjectPortfolio, authorization.ActionPortfolioView))
	{
		portfolio.GET("/investor", s.InvestorPortfolio)
		portfolio.GET("/business", s.BusinessDashboard)
	}

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
