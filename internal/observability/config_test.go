package observability

import (
	"testing"

	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "not-a-number")
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("DEPLOYMENT_ENV", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "test", OTLPEndpoint: "collector:4317"})

	assert.Equal(t, "pitchfund", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.True(t, cfg.Debug())
}
