package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyWorkerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: WorkerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: WorkerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40001"}), want: WorkerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: WorkerJobReasonUniqueViolation},
		{name: "not_found", err: gorm.ErrRecordNotFound, want: WorkerJobReasonNotFound},
		{name: "unknown", err: errors.New("boom"), want: WorkerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyWorkerJobReason(tc.err))
		})
	}
}

func TestObserveJobCountsErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newWorkerMetrics(registry, Config{ServiceName: "pitchfund", Environment: "test"})

	m.ObserveJob(JobClosePitches, time.Now(), nil)
	m.ObserveJob(JobClosePitches, time.Now(), context.DeadlineExceeded)
	m.AddBatchProcessed(JobClosePitches, "pitches", 3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobRuns.WithLabelValues(JobClosePitches)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues(JobClosePitches, WorkerJobReasonDeadlineExceeded)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchProcessed.WithLabelValues(JobClosePitches, "pitches")))

	families, err := registry.Gather()
	require.NoError(t, err)
	var duration *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "pitchfund_worker_job_duration_seconds" {
			duration = family
		}
	}
	require.NotNil(t, duration)
	require.Len(t, duration.GetMetric(), 1)
	assert.Equal(t, uint64(2), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := newHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	second, err := newHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	assert.Same(t, first.requests, second.requests)
}
