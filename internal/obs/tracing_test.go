package obs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerNone(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "fruit-api", Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg := TracingConfig{}
	require.Equal(t, "otlp", cfg.exporter())
	require.Contains(t, cfg.sampler().Description(), "ParentBased")
	require.Equal(t, "none", TracingConfig{Exporter: " NONE "}.exporter())
}

func TestInitTracerUnsupported(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}

func TestSQLOperation(t *testing.T) {
	require.Equal(t, "SELECT", sqlOperation("  select id from products"))
	require.Equal(t, "query", sqlOperation(""))
	require.Len(t, truncateSQL(strings.Repeat("x", 400)), 303)
}
