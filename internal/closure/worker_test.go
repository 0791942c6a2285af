package closure

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/smallbiznis/pitchfund/internal/testutil"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideConfigDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{})
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 50, cfg.BatchSize)

	var c config.Config
	c.Closure.Interval = 5 * time.Second
	c.Closure.BatchSize = 3
	cfg = ProvideConfig(c)
	assert.Equal(t, 5*time.Second, cfg.RunInterval)
	assert.Equal(t, 3, cfg.BatchSize)
}

func TestRunOnceDrainsInBatches(t *testing.T) {
	env := testutil.NewEnv(t)
	business := env.User(t, userdomain.RoleBusiness, 0)
	investor := env.User(t, userdomain.RoleInvestor, 50_000)

	for i := 0; i < 5; i++ {
		p := env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10, EndIn: time.Hour})
		env.Invest(t, investor, p, 1_000)
	}
	env.Pitch(t, business, testutil.PitchSpec{Target: 100_000, ProfitShare: 10, EndIn: 48 * time.Hour})

	w := New(Params{Cfg: Config{BatchSize: 2}, Log: zap.NewNop(), Pitches: env.Pitches})

	closed, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)

	env.Clock.Advance(2 * time.Hour)
	closed, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, closed)
	assert.Equal(t, int64(50_000), env.Reload(t, investor.ID).AccountBalance)

	closed, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	env := testutil.NewEnv(t)
	w := New(Params{Cfg: Config{RunInterval: time.Millisecond}, Log: zap.NewNop(), Pitches: env.Pitches})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunForever(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
