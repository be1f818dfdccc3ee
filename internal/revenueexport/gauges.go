package revenueexport

import (
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
)

const (
	movementNew         = "new"
	movementExpansion   = "expansion"
	movementContraction = "contraction"
	movementChurned     = "churned"
	movementNet         = "net"
)

type gauges struct {
	mrr            *prometheus.GaugeVec
	subscriptions  *prometheus.GaugeVec
	movement       *prometheus.GaugeVec
	quickRatio     prometheus.Gauge
	failedPayments prometheus.Gauge
	expiringTrials prometheus.Gauge
	lastPublished  prometheus.Gauge
}

func newGauges() *gauges {
	return &gauges{
		mrr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "revenuemetrics_mrr_minor_units",
			Help: "Monthly recurring revenue in minor currency units.",
		}, []string{"currency"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "revenuemetrics_subscriptions",
			Help: "Subscriptions contributing to MRR by status.",
		}, []string{"status"}),
		movement: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "revenuemetrics_mrr_movement_minor_units",
			Help: "MRR movement over the trailing period by kind.",
		}, []string{"currency", "kind"}),
		quickRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "revenuemetrics_quick_ratio",
			Help: "Growth over losses for the trailing period. +Inf when nothing churned.",
		}),
		failedPayments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "revenuemetrics_failed_payments",
			Help: "Open invoices with a failed collection attempt.",
		}),
		expiringTrials: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "revenuemetrics_expiring_trials",
			Help: "Trials ending inside the lookahead window.",
		}),
		lastPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "revenuemetrics_export_last_published_timestamp_seconds",
			Help: "Unix time of the last dashboard published to the gauges.",
		}),
	}
}

func (g *gauges) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		g.mrr,
		g.subscriptions,
		g.movement,
		g.quickRatio,
		g.failedPayments,
		g.expiringTrials,
		g.lastPublished,
	}
}

// observe replaces every gauge value with the dashboard's figures.
func (g *gauges) observe(d overviewdomain.Dashboard, at time.Time) {
	g.mrr.Reset()
	g.mrr.WithLabelValues(normalizeLabel(d.MRR.Currency)).Set(float64(d.MRR.Total))

	g.subscriptions.WithLabelValues("active").Set(float64(d.MRR.Statuses.Active))
	g.subscriptions.WithLabelValues("trialing").Set(float64(d.MRR.Statuses.Trialing))
	g.subscriptions.WithLabelValues("past_due").Set(float64(d.MRR.Statuses.PastDue))

	g.movement.Reset()
	currency := normalizeLabel(d.Movement.Currency)
	g.movement.WithLabelValues(currency, movementNew).Set(float64(d.Movement.NewRevenue))
	g.movement.WithLabelValues(currency, movementExpansion).Set(float64(d.Movement.ExpansionRevenue))
	g.movement.WithLabelValues(currency, movementContraction).Set(float64(d.Movement.ContractionRevenue))
	g.movement.WithLabelValues(currency, movementChurned).Set(float64(d.Movement.ChurnedRevenue))
	g.movement.WithLabelValues(currency, movementNet).Set(float64(d.Movement.NetNewRevenue))

	if d.QuickRatio.NoChurn {
		g.quickRatio.Set(math.Inf(1))
	} else {
		g.quickRatio.Set(d.QuickRatio.Ratio)
	}

	g.failedPayments.Set(float64(len(d.FailedPayments)))
	g.expiringTrials.Set(float64(len(d.ExpiringTrials)))
	g.lastPublished.Set(float64(at.Unix()))
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
