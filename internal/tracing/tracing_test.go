package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"mediavault/internal/config"
)

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled leaves the global provider alone", func(t *testing.T) {
		before := otel.GetTracerProvider()

		shutdown, err := Init(ctx, config.TracingConfig{Enabled: false}, "test")
		if err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := shutdown(ctx); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
		if otel.GetTracerProvider() != before {
			t.Error("global tracer provider was replaced")
		}
	})

	t.Run("enabled requires an endpoint", func(t *testing.T) {
		if _, err := Init(ctx, config.TracingConfig{Enabled: true}, "test"); err == nil {
			t.Error("Init() expected error for missing endpoint")
		}
	})

	t.Run("enabled installs an SDK provider", func(t *testing.T) {
		before := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(before) })

		cfg := config.TracingConfig{Enabled: true, Endpoint: "localhost:4318", Insecure: true}
		shutdown, err := Init(ctx, cfg, "test")
		if err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Errorf("global provider = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
		}
		if err := shutdown(ctx); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})
}
