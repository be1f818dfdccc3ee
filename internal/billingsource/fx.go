package billingsource

import (
	"github.com/smallbiznis/revenuemetrics/internal/billingsource/cachedsource"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
	"github.com/smallbiznis/revenuemetrics/internal/billingsource/stripesource"
	"github.com/smallbiznis/revenuemetrics/internal/cache"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	obsmetrics "github.com/smallbiznis/revenuemetrics/internal/observability/metrics"
	"github.com/smallbiznis/revenuemetrics/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billingsource",
	fx.Provide(
		stripesource.NewSource,
		NewSource,
	),
)

type Params struct {
	fx.In

	Upstream *stripesource.Source
	Store    cache.Store
	Cfg      config.Config
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Locker   *ratelimit.Locker   `optional:"true"`
}

// NewSource wraps the provider in the snapshot cache unless caching is disabled.
func NewSource(p Params) sourcedomain.Source {
	if p.Cfg.Cache.Driver == config.CacheDriverNone {
		return p.Upstream
	}
	opts := []cachedsource.Option{cachedsource.WithMetrics(p.Metrics)}
	if p.Locker != nil && p.Cfg.Cache.Driver == config.CacheDriverRedis {
		opts = append(opts, cachedsource.WithLocker(p.Locker))
	}
	return cachedsource.New(p.Upstream, p.Store, p.Cfg.Cache.TTL, p.Log, opts...)
}
