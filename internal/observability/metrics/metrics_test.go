package metrics

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("metric", "mrr"),
		attribute.String("customer_id", "cus_123"),
		attribute.String("outcome", OutcomeOK),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "metric" && attrs[1].Key != "metric" {
		t.Fatalf("expected metric to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestOutcome(t *testing.T) {
	if got := outcome(nil); got != OutcomeOK {
		t.Fatalf("expected %q, got %q", OutcomeOK, got)
	}
	if got := outcome(errors.New("boom")); got != OutcomeError {
		t.Fatalf("expected %q, got %q", OutcomeError, got)
	}
}

func TestRecordersTolerateNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordComputation(ctx, "mrr", nil)
	m.RecordMixedCurrency(ctx, "mrr")
	m.RecordSourceFetch(ctx, "stripe", "subscriptions", nil)
	m.RecordSnapshotCache(ctx, "subscriptions", CacheResultHit)
	m.RecordRateLimit(ctx, "/api/metrics/mrr", RateLimitDenied, "client-rate")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "revenuemetrics"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordComputation(context.Background(), "churn", errors.New("boom"))
	m.RecordRateLimit(context.Background(), "/api/metrics/churn", RateLimitAllowed, "")
}
