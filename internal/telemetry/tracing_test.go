package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSetupDisabledInstallsPropagatorOnly(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "barbershop-test"})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	carrier := propagation.MapCarrier{}
	for _, f := range fields {
		carrier[f] = ""
	}
	if _, ok := carrier["traceparent"]; !ok {
		t.Fatalf("fields = %v, want traceparent", fields)
	}
}
