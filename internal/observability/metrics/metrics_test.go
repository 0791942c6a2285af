package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tier", "gold"),
		attribute.String("investor_id", "456"),
		attribute.String("source_type", "refund"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("tier"))
	assert.Contains(t, keys, attribute.Key("source_type"))
}

func TestRecordInvestmentAddsCountAndAmount(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "pitchfund-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordInvestment(ctx, "Gold", 5000)
	m.RecordInvestment(ctx, "Gold", 2500)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, item := range scope.Metrics {
			sum, ok := item.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[item.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["pitchfund_investments_total"])
	assert.Equal(t, int64(7500), totals["pitchfund_invested_amount_total"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvestment(context.Background(), "", 1)
		m.RecordDistribution(context.Background(), "declared")
		m.RecordRefunds(context.Background(), "close", 2)
		m.RecordLedgerPosting(context.Background(), "deposit", "account")
		m.RecordConsistencyError(context.Background(), "payout")
	})
}
