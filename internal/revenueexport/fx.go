package revenueexport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/revenuemetrics/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("revenue.export",
	fx.Provide(NewPusher),
	fx.Provide(New),
)

type Params struct {
	fx.In

	Pusher Pusher `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

func New(p Params) (*Exporter, error) {
	return newExporter(prometheus.DefaultRegisterer, p.Pusher, p.Clock, p.Log)
}
