package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	WorkerJobReasonDeadlineExceeded     = "deadline_exceeded"
	WorkerJobReasonDBLockTimeout        = "db_lock_timeout"
	WorkerJobReasonSerializationFailure = "serialization_failure"
	WorkerJobReasonUniqueViolation      = "unique_violation"
	WorkerJobReasonNotFound             = "not_found"
	WorkerJobReasonUnknown              = "unknown"
)

const (
	JobClosePitches = "close_pitches"
	JobRefundPitch  = "refund_pitch"
)

// WorkerMetrics captures background worker health signals.
type WorkerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobErrors      *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
	lockWait       *prometheus.HistogramVec
}

var (
	workerMetricsOnce sync.Once
	workerMetrics     *WorkerMetrics
)

// Worker returns the process-wide worker metrics.
func Worker() *WorkerMetrics {
	return WorkerWithConfig(Config{})
}

// WorkerWithConfig returns the process-wide worker metrics using config labels.
func WorkerWithConfig(cfg Config) *WorkerMetrics {
	workerMetricsOnce.Do(func() {
		workerMetrics = newWorkerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return workerMetrics
}

func newWorkerMetrics(registerer prometheus.Registerer, cfg Config) *WorkerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := serviceLabels(cfg)

	m := &WorkerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pitchfund_worker_job_runs_total",
			Help:        "Worker job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pitchfund_worker_job_duration_seconds",
			Help:        "Worker job latency.",
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pitchfund_worker_job_errors_total",
			Help:        "Worker job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		batchProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pitchfund_worker_batch_processed_total",
			Help:        "Worker batch items processed.",
			ConstLabels: constLabels,
		}, []string{"job", "resource"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pitchfund_worker_lock_wait_seconds",
			Help:        "Time spent waiting for pitch locks.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"resource"}),
	}

	m.jobRuns, _ = registerCounterVec(registerer, m.jobRuns)
	m.jobDuration, _ = registerHistogramVec(registerer, m.jobDuration)
	m.jobErrors, _ = registerCounterVec(registerer, m.jobErrors)
	m.batchProcessed, _ = registerCounterVec(registerer, m.batchProcessed)
	m.lockWait, _ = registerHistogramVec(registerer, m.lockWait)

	return m
}

// ObserveJob records a run, its duration and the classified error, if any.
func (m *WorkerMetrics) ObserveJob(job string, started time.Time, err error) {
	if m == nil {
		return
	}
	job = strings.TrimSpace(job)
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job, ClassifyWorkerJobReason(err)).Inc()
	}
}

// AddBatchProcessed counts the items a job handled.
func (m *WorkerMetrics) AddBatchProcessed(job, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.batchProcessed.WithLabelValues(strings.TrimSpace(job), strings.TrimSpace(resource)).Add(float64(count))
}

// ObserveLockWait records how long a lock acquisition blocked.
func (m *WorkerMetrics) ObserveLockWait(resource string, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(strings.TrimSpace(resource)).Observe(wait.Seconds())
}

// ClassifyWorkerJobReason maps errors to a bounded label set.
func ClassifyWorkerJobReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return WorkerJobReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return WorkerJobReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return WorkerJobReasonSerializationFailure
	case hasPGCode(err, "23505"), errors.Is(err, gorm.ErrDuplicatedKey):
		return WorkerJobReasonUniqueViolation
	case errors.Is(err, gorm.ErrRecordNotFound):
		return WorkerJobReasonNotFound
	default:
		return WorkerJobReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
