package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pitchfund/internal/analysis"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"github.com/smallbiznis/pitchfund/internal/testutil"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest(businessID userdomain.User) domain.CreatePitchRequest {
	return domain.CreatePitchRequest{
		BusinessID:   businessID.ID,
		Title:        "Harbour Coffee Roasters",
		Summary:      "A second roaster",
		TargetAmount: 2_000_000,
		ProfitShare:  decimal.NewFromInt(15),
		Tiers:        testutil.StandardTiers(),
	}
}

func TestCreatePitch(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)

	p, err := env.Pitches.Create(ctx, validRequest(business))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Equal(t, int64(0), p.CurrentAmount)
	assert.Contains(t, p.Slug, "harbour-coffee-roasters-")
	require.Len(t, p.Tiers, 3)
	assert.Equal(t, "Bronze", p.Tiers[0].Name)
	assert.Equal(t, 2, p.Tiers[2].Position)

	got, err := env.Pitches.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Len(t, got.Tiers, 3)

	again, err := env.Pitches.Create(ctx, validRequest(business))
	require.NoError(t, err)
	assert.NotEqual(t, p.Slug, again.Slug)

	_, err = env.Pitches.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePitchValidation(t *testing.T) {
	cfg := config.DefaultFundingConfig()
	cfg.MaxProfitShare = decimal.NewFromInt(50)
	cfg.MaxProfitShareRaw = 50
	env := testutil.NewEnv(t, testutil.WithFunding(cfg))
	business := env.User(t, userdomain.RoleBusiness, 0)
	past := testutil.Start.Add(-time.Hour)
	negative := -1

	tests := []struct {
		name   string
		mutate func(*domain.CreatePitchRequest)
		want   error
	}{
		{"no owner", func(r *domain.CreatePitchRequest) { r.BusinessID = 0 }, domain.ErrForbidden},
		{"title", func(r *domain.CreatePitchRequest) { r.Title = "  " }, domain.ErrInvalidTitle},
		{"target", func(r *domain.CreatePitchRequest) { r.TargetAmount = 0 }, domain.ErrInvalidTarget},
		{"share above platform cap", func(r *domain.CreatePitchRequest) { r.ProfitShare = decimal.NewFromInt(51) }, domain.ErrInvalidProfitShare},
		{"negative share", func(r *domain.CreatePitchRequest) { r.ProfitShare = decimal.NewFromInt(-1) }, domain.ErrInvalidProfitShare},
		{"end date in past", func(r *domain.CreatePitchRequest) { r.EndDate = &past }, domain.ErrInvalidEndDate},
		{"interval", func(r *domain.CreatePitchRequest) { r.DistributionIntervalMonths = &negative }, domain.ErrInvalidInterval},
		{"overlapping tiers", func(r *domain.CreatePitchRequest) {
			r.Tiers = []domain.TierInput{
				{Name: "A", MinAmount: 0, MaxAmount: 100, Multiplier: decimal.NewFromInt(1)},
				{Name: "B", MinAmount: 100, MaxAmount: 200, Multiplier: decimal.NewFromInt(2)},
			}
		}, tierdomain.ErrTierOverlap},
		{"gap between tiers", func(r *domain.CreatePitchRequest) {
			r.Tiers = []domain.TierInput{
				{Name: "A", MinAmount: 0, MaxAmount: 100, Multiplier: decimal.NewFromInt(1)},
				{Name: "B", MinAmount: 150, MaxAmount: 200, Multiplier: decimal.NewFromInt(2)},
			}
		}, tierdomain.ErrTierGap},
		{"zero multiplier", func(r *domain.CreatePitchRequest) {
			r.Tiers = []domain.TierInput{{Name: "A", MinAmount: 0, MaxAmount: 100, Multiplier: decimal.Zero}}
		}, tierdomain.ErrInvalidMultiplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(business)
			tt.mutate(&req)
			_, err := env.Pitches.Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	req := validRequest(business)
	req.Tiers[1].MinAmount = 400_000
	_, err := env.Pitches.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidTiers)
}

func TestPublishAndReplaceTiers(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)
	other := env.User(t, userdomain.RoleBusiness, 0)
	p := env.Pitch(t, business, testutil.PitchSpec{Draft: true, EndIn: 48 * time.Hour})
	action := domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID}

	updated, err := env.Pitches.ReplaceTiers(ctx, domain.ReplaceTiersRequest{
		PitchID: p.ID.String(),
		ActorID: business.ID,
		Tiers:   []domain.TierInput{{Name: "Only", MinAmount: 1, MaxAmount: 1_000_000, Multiplier: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Tiers, 1)

	_, err = env.Pitches.Publish(ctx, domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: other.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	published, err := env.Pitches.Publish(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, published.Status)
	assert.Len(t, published.Tiers, 1)

	_, err = env.Pitches.Publish(ctx, action)
	assert.ErrorIs(t, err, domain.ErrNotDraft)
	_, err = env.Pitches.ReplaceTiers(ctx, domain.ReplaceTiersRequest{PitchID: p.ID.String(), ActorID: business.ID})
	assert.ErrorIs(t, err, domain.ErrNotDraft)
}

func TestPublishRejectsLapsedEndDate(t *testing.T) {
	env := testutil.NewEnv(t)
	business := env.User(t, userdomain.RoleBusiness, 0)
	p := env.Pitch(t, business, testutil.PitchSpec{Draft: true, EndIn: time.Hour})

	env.Clock.Advance(2 * time.Hour)
	_, err := env.Pitches.Publish(context.Background(), domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidEndDate)
}

func TestCloseRefundsUnderfundedPitch(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)
	investor := env.User(t, userdomain.RoleInvestor, 50_000)
	p := env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10})
	env.Invest(t, investor, p, 30_000)
	action := domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID}

	_, err := env.Pitches.Close(ctx, domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: investor.ID})
	require.ErrorIs(t, err, domain.ErrForbidden)

	res, err := env.Pitches.Close(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, res.Pitch.Status)
	assert.Equal(t, 1, res.RefundedCount)
	assert.Equal(t, int64(30_000), res.RefundedAmount)
	assert.Zero(t, res.Pitch.CurrentAmount)
	assert.Equal(t, int64(50_000), env.Reload(t, investor.ID).AccountBalance)

	_, err = env.Pitches.Close(ctx, action)
	assert.ErrorIs(t, err, domain.ErrAlreadyClosed)
	assert.Equal(t, int64(50_000), env.Reload(t, investor.ID).AccountBalance)

	logs, err := env.Audit.List(ctx, auditdomain.ListAuditLogRequest{Action: auditdomain.ActionPitchRefunded})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 1)
}

func TestCloseRejectsFundedPitch(t *testing.T) {
	env := testutil.NewEnv(t)
	business := env.User(t, userdomain.RoleBusiness, 0)
	investor := env.User(t, userdomain.RoleInvestor, 10_000)
	p := env.Pitch(t, business, testutil.PitchSpec{Target: 10_000, ProfitShare: 10})
	env.Invest(t, investor, p, 10_000)

	_, err := env.Pitches.Close(context.Background(), domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
	require.ErrorIs(t, err, domain.ErrPitchFunded)

	stored := env.LoadPitch(t, p)
	assert.Equal(t, domain.StatusFunded, stored.Status)
	assert.Equal(t, int64(10_000), stored.CurrentAmount)
	assert.Equal(t, int64(10_000), env.Reload(t, business.ID).FundingBalance)
	assert.Zero(t, env.Reload(t, investor.ID).AccountBalance)
}

func TestCloseExpired(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)
	investor := env.User(t, userdomain.RoleInvestor, 100_000)

	soon := env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10, EndIn: time.Hour})
	later := env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10, EndIn: 72 * time.Hour})
	open := env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10})
	env.Invest(t, investor, soon, 20_000)
	env.Invest(t, investor, later, 5_000)

	none, err := env.Pitches.CloseExpired(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	env.Clock.Advance(2 * time.Hour)
	results, err := env.Pitches.CloseExpired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, soon.ID, results[0].Pitch.ID)
	assert.Equal(t, 1, results[0].RefundedCount)
	assert.Equal(t, int64(95_000), env.Reload(t, investor.ID).AccountBalance)

	assert.Equal(t, domain.StatusActive, env.LoadPitch(t, later).Status)
	assert.Equal(t, domain.StatusActive, env.LoadPitch(t, open).Status)

	env.Clock.Advance(96 * time.Hour)
	results, err = env.Pitches.CloseExpired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, later.ID, results[0].Pitch.ID)
	assert.Equal(t, int64(100_000), env.Reload(t, investor.ID).AccountBalance)
}

func TestListPitches(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)
	other := env.User(t, userdomain.RoleBusiness, 0)
	for i := 0; i < 3; i++ {
		env.Pitch(t, business, testutil.PitchSpec{ProfitShare: 10, Tiers: testutil.StandardTiers()})
		env.Clock.Advance(time.Minute)
	}
	env.Pitch(t, business, testutil.PitchSpec{ProfitShare: 10, Draft: true})
	env.Pitch(t, other, testutil.PitchSpec{ProfitShare: 10})

	page, err := env.Pitches.List(ctx, domain.ListPitchRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Status:     "active",
		BusinessID: business.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, page.Pitches, 2)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Pitches[0].Tiers, 3)
	assert.True(t, page.Pitches[0].CreatedAt.After(page.Pitches[1].CreatedAt))

	rest, err := env.Pitches.List(ctx, domain.ListPitchRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
		Status:     "active",
		BusinessID: business.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, rest.Pitches, 1)
	assert.False(t, rest.HasMore)

	all, err := env.Pitches.List(ctx, domain.ListPitchRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Pitches, 5)

	_, err = env.Pitches.List(ctx, domain.ListPitchRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestFundingStateFollowsInvestments(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	business := env.User(t, userdomain.RoleBusiness, 0)
	investor := env.User(t, userdomain.RoleInvestor, 1_000_000)
	p := env.Pitch(t, business, testutil.PitchSpec{Target: 1_000_000, ProfitShare: 10, Tiers: testutil.StandardTiers()})

	state, err := env.Pitches.FundingState(ctx, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), state.Remaining)
	assert.Equal(t, int64(1), state.MinimumInvestment)
	assert.Equal(t, int64(1_000_000), state.MaximumInvestment)

	env.Invest(t, investor, p, 250_000)

	state, err = env.Pitches.FundingState(ctx, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), state.CurrentAmount)
	assert.Equal(t, int64(750_000), state.Remaining)
	assert.False(t, state.Funded)
}

type stubAnalyzer struct {
	result analysis.Result
	err    error
}

func (s stubAnalyzer) Analyze(context.Context, analysis.Input) (analysis.Result, error) {
	return s.result, s.err
}

func TestAttachAnalysis(t *testing.T) {
	ctx := context.Background()

	t.Run("stores result", func(t *testing.T) {
		env := testutil.NewEnv(t, testutil.WithAnalyzer(stubAnalyzer{result: analysis.Result{Score: 72, Strengths: []string{"clear market"}}}))
		business := env.User(t, userdomain.RoleBusiness, 0)
		p := env.Pitch(t, business, testutil.PitchSpec{Draft: true})

		got, err := env.Pitches.AttachAnalysis(ctx, domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
		require.NoError(t, err)
		assert.Equal(t, "72", fmt.Sprint(got.Analysis["score"]))

		stored := env.LoadPitch(t, p)
		assert.Equal(t, "72", fmt.Sprint(stored.Analysis["score"]))
		assert.Equal(t, "[clear market]", fmt.Sprint(stored.Analysis["strengths"]))
	})

	t.Run("analyzer failure", func(t *testing.T) {
		env := testutil.NewEnv(t, testutil.WithAnalyzer(stubAnalyzer{err: errors.New("timeout")}))
		business := env.User(t, userdomain.RoleBusiness, 0)
		p := env.Pitch(t, business, testutil.PitchSpec{Draft: true})

		_, err := env.Pitches.AttachAnalysis(ctx, domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
		assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		env := testutil.NewEnv(t)
		business := env.User(t, userdomain.RoleBusiness, 0)
		p := env.Pitch(t, business, testutil.PitchSpec{Draft: true})

		_, err := env.Pitches.AttachAnalysis(ctx, domain.PitchActionRequest{PitchID: p.ID.String(), ActorID: business.ID})
		assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	})
}
