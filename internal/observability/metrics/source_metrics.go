package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
)

const (
	SourceReasonUnauthorized     = "unauthorized"
	SourceReasonUnavailable      = "unavailable"
	SourceReasonDeadlineExceeded = "deadline_exceeded"
	SourceReasonInvalidRecord    = "invalid_record"
	SourceReasonUnknown          = "unknown"
)

const (
	ResourceSubscriptions  = "subscriptions"
	ResourceEvents         = "events"
	ResourceFailedPayments = "failed_payments"
	ResourceProducts       = "products"
)

// SourceMetrics captures billing provider fetch health.
type SourceMetrics struct {
	fetchDuration  *prometheus.HistogramVec
	fetchErrors    *prometheus.CounterVec
	recordsFetched *prometheus.CounterVec
	recordsSkipped *prometheus.CounterVec
}

var (
	sourceMetricsOnce sync.Once
	sourceMetrics     *SourceMetrics
)

// Source returns the singleton source metrics registry.
func Source() *SourceMetrics {
	return SourceWithConfig(Config{})
}

// SourceWithConfig returns the singleton source metrics registry using config labels.
func SourceWithConfig(cfg Config) *SourceMetrics {
	sourceMetricsOnce.Do(func() {
		sourceMetrics = newSourceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sourceMetrics
}

func newSourceMetrics(registerer prometheus.Registerer, cfg Config) *SourceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "revenuemetrics"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "revenuemetrics_source_fetch_duration_seconds",
		Help:        "Billing source list latency including pagination.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"source", "resource"})
	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "revenuemetrics_source_fetch_errors_total",
		Help:        "Billing source list errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"source", "resource", "reason"})
	recordsFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "revenuemetrics_source_records_total",
		Help:        "Records returned by the billing source after normalization.",
		ConstLabels: constLabels,
	}, []string{"source", "resource"})
	recordsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "revenuemetrics_source_records_skipped_total",
		Help:        "Provider records dropped during normalization.",
		ConstLabels: constLabels,
	}, []string{"source", "resource"})

	registerer.MustRegister(fetchDuration, fetchErrors, recordsFetched, recordsSkipped)

	return &SourceMetrics{
		fetchDuration:  fetchDuration,
		fetchErrors:    fetchErrors,
		recordsFetched: recordsFetched,
		recordsSkipped: recordsSkipped,
	}
}

// ObserveFetch records one completed list call.
func (m *SourceMetrics) ObserveFetch(source, resource string, duration time.Duration, records int, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(source, resource).Observe(duration.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(source, resource, ClassifySourceReason(err)).Inc()
		return
	}
	if records > 0 {
		m.recordsFetched.WithLabelValues(source, resource).Add(float64(records))
	}
}

// AddSkipped counts provider records that could not be normalized.
func (m *SourceMetrics) AddSkipped(source, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsSkipped.WithLabelValues(source, resource).Add(float64(count))
}

// ClassifySourceReason maps source errors to low-cardinality reasons.
func ClassifySourceReason(err error) string {
	switch {
	case err == nil:
		return SourceReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SourceReasonDeadlineExceeded
	case errors.Is(err, sourcedomain.ErrUnauthorized):
		return SourceReasonUnauthorized
	case errors.Is(err, sourcedomain.ErrUnavailable):
		return SourceReasonUnavailable
	case errors.Is(err, sourcedomain.ErrInvalidRecord):
		return SourceReasonInvalidRecord
	default:
		return SourceReasonUnknown
	}
}
