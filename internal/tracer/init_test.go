package tracer

import (
	"context"
	"testing"

	"locus/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestInitDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Init(context.Background(), config.TracingConfig{Enabled: false, Endpoint: "collector:4318"}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  int
	}{
		{name: "all", ratio: 1, want: 3},
		{name: "above one", ratio: 7, want: 3},
		{name: "none", ratio: 0, want: 0},
		{name: "negative", ratio: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			cfg := config.TracingConfig{Enabled: true, ServiceName: "locus-test", SampleRatio: tt.ratio}
			tp := NewProvider(cfg, "test", exporter)

			tr := tp.Tracer("tracer_test")
			for i := 0; i < 3; i++ {
				_, span := tr.Start(context.Background(), "sync")
				span.End()
			}
			defer tp.Shutdown(context.Background())
			require.NoError(t, tp.ForceFlush(context.Background()))

			spans := exporter.GetSpans()
			require.Len(t, spans, tt.want)
			for _, s := range spans {
				assert.Contains(t, s.Resource.Attributes(), semconv.ServiceNameKey.String("locus-test"))
				assert.Contains(t, s.Resource.Attributes(), semconv.DeploymentEnvironmentKey.String("test"))
			}
		})
	}
}
