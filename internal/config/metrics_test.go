package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestValidateMetricsConfigDefaults(t *testing.T) {
	require.NoError(t, ValidateMetricsConfig(DefaultMetricsConfig()))
}

func TestValidateMetricsConfigCollectsEveryViolation(t *testing.T) {
	err := ValidateMetricsConfig(MetricsConfig{
		DefaultPeriodDays:  0,
		TrialLookaheadDays: 0,
		RecentChangesDays:  -2,
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestStaticHolderReturnsStoredConfig(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.TrialLookaheadDays = 5
	holder := NewStaticMetricsConfigHolder(cfg)
	assert.Equal(t, 5, holder.Get().TrialLookaheadDays)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SNAPSHOT_CACHE", "REDIS")
	t.Setenv("SNAPSHOT_CACHE_TTL", "not-a-duration")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("CACHE_WARM_INTERVAL", "5m")
	t.Setenv("CACHE_WARM_JOBS", " dashboard, ,plans")
	t.Setenv("METRICS_PUSHGATEWAY_URL", " http://gateway:9091 ")

	cfg := Load()
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Positive(t, cfg.Cache.TTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 5*time.Minute, cfg.Warmer.Interval)
	assert.Equal(t, []string{"dashboard", "plans"}, cfg.Warmer.Jobs)
	assert.Equal(t, "http://gateway:9091", cfg.Export.PushgatewayURL)
	assert.Equal(t, "revenuemetrics", cfg.Export.Job)
}
