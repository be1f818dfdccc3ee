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

// Metrics exposes application-level instruments.
type Metrics struct {
	computations  metric.Int64Counter
	mixedCurrency metric.Int64Counter
	sourceFetches metric.Int64Counter
	snapshotCache metric.Int64Counter
	rateLimit     metric.Int64Counter
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"

	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultError = "error"

	RateLimitAllowed = "allowed"
	RateLimitDenied  = "denied"
)

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
		name = "revenuemetrics"
	}
	meter := provider.Meter(name)

	computations, err := meter.Int64Counter("revenuemetrics_computations_total",
		metric.WithDescription("Metric computations by metric and outcome."))
	if err != nil {
		return nil, err
	}
	mixedCurrency, err := meter.Int64Counter("revenuemetrics_mixed_currency_total",
		metric.WithDescription("Computations rejected because the subscription set spans currencies."))
	if err != nil {
		return nil, err
	}
	sourceFetches, err := meter.Int64Counter("revenuemetrics_source_fetch_total")
	if err != nil {
		return nil, err
	}
	snapshotCache, err := meter.Int64Counter("revenuemetrics_snapshot_cache_total")
	if err != nil {
		return nil, err
	}

	rateLimit, err := meter.Int64Counter("revenuemetrics_rate_limit_total",
		metric.WithDescription("API rate limit decisions by endpoint."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		computations:  computations,
		mixedCurrency: mixedCurrency,
		sourceFetches: sourceFetches,
		snapshotCache: snapshotCache,
		rateLimit:     rateLimit,
	}, nil
}

// RecordComputation increments computation counts.
func (m *Metrics) RecordComputation(ctx context.Context, name string, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("metric", strings.TrimSpace(name)),
		attribute.String("outcome", outcome(err)),
	)
	m.computations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMixedCurrency increments rejected computations for a metric.
func (m *Metrics) RecordMixedCurrency(ctx context.Context, name string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("metric", strings.TrimSpace(name)))
	m.mixedCurrency.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSourceFetch increments billing source list calls.
func (m *Metrics) RecordSourceFetch(ctx context.Context, source, resource string, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("resource", strings.TrimSpace(resource)),
		attribute.String("outcome", outcome(err)),
	)
	m.sourceFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSnapshotCache increments cache lookups by result.
func (m *Metrics) RecordSnapshotCache(ctx context.Context, resource, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("resource", strings.TrimSpace(resource)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.snapshotCache.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimit counts a limiter decision; reason is empty for allowed requests.
func (m *Metrics) RecordRateLimit(ctx context.Context, endpoint, result, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("result", result),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimit.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
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
	"metric":      {},
	"outcome":     {},
	"source":      {},
	"resource":    {},
	"result":      {},
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
