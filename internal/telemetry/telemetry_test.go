package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	prev := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), "orderdesk-test", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Error("no provider should be registered without an endpoint")
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "orderdesk-test", "http://localhost:4318", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupRegistersProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// Non-routable address: nothing is exported because no spans are started.
	shutdown, err := Setup(context.Background(), "orderdesk-test", "http://192.0.2.1:4318", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otel.GetTracerProvider() == prev {
		t.Error("expected a new global provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
