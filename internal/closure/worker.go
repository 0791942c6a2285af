// Package closure closes active pitches whose end date has passed and refunds
// the ones that did not reach their target.
package closure

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/pitchfund/internal/config"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	RunInterval time.Duration
	BatchSize   int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Closure.Interval,
		BatchSize:   cfg.Closure.BatchSize,
	}.withDefaults()
}

type Params struct {
	fx.In

	Cfg     Config
	Log     *zap.Logger
	Pitches pitchdomain.Service
	Metrics *obsmetrics.WorkerMetrics `optional:"true"`
}

type Worker struct {
	cfg     Config
	log     *zap.Logger
	pitches pitchdomain.Service
	metrics *obsmetrics.WorkerMetrics
}

func New(p Params) *Worker {
	return &Worker{
		cfg:     p.Cfg.withDefaults(),
		log:     p.Log.Named("closure.worker"),
		pitches: p.Pitches,
		metrics: p.Metrics,
	}
}

// RunOnce drains expired pitches batch by batch and reports how many it closed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	runID := ulid.Make().String()
	log := w.log.With(zap.String("run_id", runID))
	started := time.Now()

	total := 0
	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		results, err := w.pitches.CloseExpired(ctx, w.cfg.BatchSize)
		for _, r := range results {
			w.metrics.AddBatchProcessed(obsmetrics.JobRefundPitch, "investment", r.RefundedCount)
			log.Info("expired pitch closed",
				zap.String("pitch_id", r.Pitch.ID.String()),
				zap.Bool("funded", r.AlreadyFunded),
				zap.Int("refunded_count", r.RefundedCount),
				zap.Int64("refunded_amount", r.RefundedAmount),
			)
		}
		total += len(results)
		w.metrics.AddBatchProcessed(obsmetrics.JobClosePitches, "pitch", len(results))
		if err != nil {
			runErr = err
			break
		}
		if len(results) < w.cfg.BatchSize {
			break
		}
	}

	w.metrics.ObserveJob(obsmetrics.JobClosePitches, started, runErr)
	if runErr != nil {
		log.Warn("closure run failed", zap.Int("closed", total), zap.Error(runErr))
		return total, runErr
	}
	if total > 0 {
		log.Info("closure run finished", zap.Int("closed", total), zap.Duration("took", time.Since(started)))
	}
	return total, nil
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RunInterval)
	defer ticker.Stop()

	for {
		_, _ = w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
