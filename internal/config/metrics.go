package config

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MetricsConfig tunes request defaults for metric computations.
type MetricsConfig struct {
	DefaultPeriodDays  int `mapstructure:"defaultPeriodDays"`
	TrialLookaheadDays int `mapstructure:"trialLookaheadDays"`
	RecentChangesDays  int `mapstructure:"recentChangesDays"`
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		DefaultPeriodDays:  30,
		TrialLookaheadDays: 3,
		RecentChangesDays:  7,
	}
}

type MetricsConfigHolder struct {
	current atomic.Value // holds MetricsConfig
}

// NewStaticMetricsConfigHolder wraps a fixed config, mainly for tests.
func NewStaticMetricsConfigHolder(cfg MetricsConfig) *MetricsConfigHolder {
	holder := &MetricsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewMetricsConfigHolder(log *zap.Logger) (*MetricsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("metrics")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/revenuemetrics")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVENUEMETRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMetricsConfig()
	v.SetDefault("metrics.defaultPeriodDays", defaults.DefaultPeriodDays)
	v.SetDefault("metrics.trialLookaheadDays", defaults.TrialLookaheadDays)
	v.SetDefault("metrics.recentChangesDays", defaults.RecentChangesDays)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeMetricsConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticMetricsConfigHolder(cfg)
	log = log.Named("config.metrics")

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeMetricsConfig(v)
			if err != nil {
				log.Warn("metrics config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("metrics config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *MetricsConfigHolder) Get() MetricsConfig {
	return h.current.Load().(MetricsConfig)
}

func decodeMetricsConfig(v *viper.Viper) (MetricsConfig, error) {
	var cfg MetricsConfig
	if err := v.UnmarshalKey("metrics", &cfg); err != nil {
		return MetricsConfig{}, err
	}
	if err := ValidateMetricsConfig(cfg); err != nil {
		return MetricsConfig{}, err
	}
	return cfg, nil
}

func ValidateMetricsConfig(cfg MetricsConfig) error {
	var err error
	if cfg.DefaultPeriodDays < 1 || cfg.DefaultPeriodDays > 365 {
		err = multierr.Append(err, fmt.Errorf("metrics.defaultPeriodDays must be within 1..365, got %d", cfg.DefaultPeriodDays))
	}
	if cfg.TrialLookaheadDays < 1 {
		err = multierr.Append(err, fmt.Errorf("metrics.trialLookaheadDays must be positive, got %d", cfg.TrialLookaheadDays))
	}
	if cfg.RecentChangesDays < 1 {
		err = multierr.Append(err, fmt.Errorf("metrics.recentChangesDays must be positive, got %d", cfg.RecentChangesDays))
	}
	return err
}
