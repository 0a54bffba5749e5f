package otel

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("TEAMTALLY_OTEL_ENDPOINT", "")
	t.Setenv("TEAMTALLY_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "scoring")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("shutdown func should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned error: %v", err)
	}
}

func TestSetupExplicitlyDisabled(t *testing.T) {
	t.Setenv("TEAMTALLY_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("TEAMTALLY_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "scoring")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned error: %v", err)
	}
}
