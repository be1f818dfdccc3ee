// Package revenueexport publishes computed dashboard figures as Prometheus gauges
// and optionally pushes them to a Pushgateway.
package revenueexport

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/smallbiznis/revenuemetrics/internal/clock"
	"go.uber.org/zap"
)

const defaultPushTimeout = 5 * time.Second

type Exporter struct {
	registry *prometheus.Registry
	gauges   *gauges
	pusher   Pusher
	clock    clock.Clock
	log      *zap.Logger
}

// newExporter registers the gauges on a private registry, and on extra when given
// so they also show up on the process /metrics endpoint.
func newExporter(extra prometheus.Registerer, pusher Pusher, clk clock.Clock, log *zap.Logger) (*Exporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}

	registry := prometheus.NewRegistry()
	g := newGauges()
	for _, c := range g.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
		if extra == nil {
			continue
		}
		if err := extra.Register(c); err != nil {
			return nil, err
		}
	}

	return &Exporter{
		registry: registry,
		gauges:   g,
		pusher:   pusher,
		clock:    clk,
		log:      log.Named("revenue.export"),
	}, nil
}

// Publish updates the gauges from d and pushes them when a gateway is configured.
func (e *Exporter) Publish(ctx context.Context, d overviewdomain.Dashboard) error {
	if e == nil {
		return nil
	}
	e.gauges.observe(d, e.clock.Now())

	if e.pusher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()

	if err := e.pusher.Push(ctx, e.registry); err != nil {
		return fmt.Errorf("push revenue gauges: %w", err)
	}
	e.log.Debug("revenue gauges pushed",
		zap.Int64("mrr", d.MRR.Total),
		zap.String("currency", d.MRR.Currency),
	)
	return nil
}

// Registry exposes the exporter's private registry.
func (e *Exporter) Registry() *prometheus.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}
