package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	Stripe    StripeConfig
	Cache     CacheConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Warmer    WarmerConfig
	Export    ExportConfig
}

type StripeConfig struct {
	SecretKey string
	APIBase   string
}

type CacheConfig struct {
	Driver string
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// WarmerConfig schedules background dashboard computations. A zero interval disables the warmer.
type WarmerConfig struct {
	Interval time.Duration
	Jobs     []string
}

// ExportConfig points the revenue gauges at a Pushgateway. An empty URL keeps them local to /metrics.
type ExportConfig struct {
	PushgatewayURL string
	Job            string
}

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
	CacheDriverNone   = "none"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "revenuemetrics"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Stripe: StripeConfig{
			SecretKey: strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			APIBase:   strings.TrimSpace(getenv("STRIPE_API_BASE", "")),
		},
		Cache: CacheConfig{
			Driver: normalizeCacheDriver(getenv("SNAPSHOT_CACHE", CacheDriverMemory)),
			TTL:    getenvDuration("SNAPSHOT_CACHE_TTL", 2*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getenvBool("RATE_LIMIT_ENABLED", false),
			RequestsPerSecond: getenvFloat("RATE_LIMIT_RPS", 2),
			Burst:             int(getenvInt64("RATE_LIMIT_BURST", 10)),
		},
		Warmer: WarmerConfig{
			Interval: getenvDuration("CACHE_WARM_INTERVAL", 0),
			Jobs:     getenvList("CACHE_WARM_JOBS"),
		},
		Export: ExportConfig{
			PushgatewayURL: strings.TrimSpace(getenv("METRICS_PUSHGATEWAY_URL", "")),
			Job:            getenv("METRICS_PUSH_JOB", "revenuemetrics"),
		},
	}
}

func normalizeCacheDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CacheDriverRedis:
		return CacheDriverRedis
	case CacheDriverNone, "off", "disabled":
		return CacheDriverNone
	default:
		return CacheDriverMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
