package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes marketplace instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	investments       metric.Int64Counter
	investedAmount    metric.Int64Counter
	distributions     metric.Int64Counter
	refunds           metric.Int64Counter
	ledgerPostings    metric.Int64Counter
	consistencyErrors metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pitchfund"
	}
	meter := provider.Meter(name)

	investments, err := meter.Int64Counter("pitchfund_investments_total")
	if err != nil {
		return nil, err
	}
	investedAmount, err := meter.Int64Counter("pitchfund_invested_amount_total",
		metric.WithUnit("{cent}"))
	if err != nil {
		return nil, err
	}
	distributions, err := meter.Int64Counter("pitchfund_distributions_total")
	if err != nil {
		return nil, err
	}
	refunds, err := meter.Int64Counter("pitchfund_refunds_total")
	if err != nil {
		return nil, err
	}
	ledgerPostings, err := meter.Int64Counter("pitchfund_ledger_postings_total")
	if err != nil {
		return nil, err
	}
	consistencyErrors, err := meter.Int64Counter("pitchfund_consistency_errors_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		investments:       investments,
		investedAmount:    investedAmount,
		distributions:     distributions,
		refunds:           refunds,
		ledgerPostings:    ledgerPostings,
		consistencyErrors: consistencyErrors,
	}, nil
}

// NewNoop returns instruments backed by the noop provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordInvestment counts an accepted investment and its amount.
func (m *Metrics) RecordInvestment(ctx context.Context, tier string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tier", strings.TrimSpace(tier)))
	m.investments.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.investedAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

// RecordDistribution counts a profit declaration.
func (m *Metrics) RecordDistribution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.distributions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRefunds counts refunded investments for a closure run.
func (m *Metrics) RecordRefunds(ctx context.Context, trigger string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("trigger", strings.TrimSpace(trigger)))
	m.refunds.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordLedgerPosting counts balance postings by source type.
func (m *Metrics) RecordLedgerPosting(ctx context.Context, sourceType, account string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source_type", strings.TrimSpace(sourceType)),
		attribute.String("account", strings.TrimSpace(account)),
	)
	m.ledgerPostings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConsistencyError counts aborted multi-step operations by stage.
func (m *Metrics) RecordConsistencyError(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("stage", strings.TrimSpace(stage)))
	m.consistencyErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tier":        {},
	"outcome":     {},
	"trigger":     {},
	"source_type": {},
	"account":     {},
	"stage":       {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
