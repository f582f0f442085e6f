package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration

	Obs       ObsConfig
	Pricing   PricingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Worker    WorkerConfig
	Breaker   BreakerConfig
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	TracingExporter  string
	SamplingRatio    float64
	// LatencyBuckets are HTTP latency histogram bounds in seconds.
	LatencyBuckets []float64
	EnablePprof    bool
	PprofUser      string
	PprofPassword  string
}

// PricingConfig holds the placeholder tax and shipping policy values.
type PricingConfig struct {
	DefaultLocation         string
	TaxRate                 decimal.Decimal
	ShippingCost            decimal.Decimal
	ShippingDays            int
	DefaultIntegrationLevel string
}

// CacheConfig holds TTLs for Redis-backed caches.
type CacheConfig struct {
	CatalogTTL     time.Duration
	AnalyticsTTL   time.Duration
	IdempotencyTTL time.Duration
}

// RateLimitConfig selects and sizes the HTTP rate limiter.
type RateLimitConfig struct {
	Backend string
	Window  time.Duration
	Max     int
}

// SecurityConfig toggles response hardening.
type SecurityConfig struct {
	HeadersEnabled bool
	BodyLimitBytes int64
}

// WorkerConfig sizes the analytics worker.
type WorkerConfig struct {
	Queue       string
	Concurrency int
	MaxRetry    int
	MetricsAddr string
}

// BreakerConfig sizes the circuit breaker in front of Postgres reads.
type BreakerConfig struct {
	Enabled      bool
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:    parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
		HTTPWriteTimeout:   parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "15s"),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "magiccart"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING")),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlphttp"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			LatencyBuckets:   parseFloats(k.String("OBS_METRICS_BUCKETS")),
			EnablePprof:      parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("PPROF_BASIC_AUTH_USER")),
			PprofPassword:    strings.TrimSpace(k.String("PPROF_BASIC_AUTH_PASS")),
		},
		Pricing: PricingConfig{
			DefaultLocation:         valueOrDefault(k.String("TAX_DEFAULT_LOCATION"), "US_DEFAULT"),
			DefaultIntegrationLevel: valueOrDefault(k.String("VENDOR_DEFAULT_INTEGRATION_LEVEL"), "ASSISTED"),
			ShippingDays:            parseInt(k.String("SHIPPING_DEFAULT_DAYS"), 3),
		},
		Cache: CacheConfig{
			CatalogTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
			AnalyticsTTL:   parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
			IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "sliding")),
			Window:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
			Max:     parseInt(k.String("RATE_LIMIT_MAX"), 120),
		},
		Security: SecurityConfig{
			HeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
			BodyLimitBytes: int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		},
		Worker: WorkerConfig{
			Queue:       valueOrDefault(k.String("ANALYTICS_QUEUE"), "selections"),
			Concurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
			MaxRetry:    parseInt(k.String("ANALYTICS_MAX_RETRY"), 5),
			MetricsAddr: strings.TrimSpace(k.String("WORKER_METRICS_ADDR")),
		},
		Breaker: BreakerConfig{
			Enabled:      parseBoolDefault(k.String("STORE_BREAKER_ENABLED"), true),
			MinRequests:  parseInt(k.String("STORE_BREAKER_MIN_REQUESTS"), 10),
			FailureRatio: parseFloat(k.String("STORE_BREAKER_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("STORE_BREAKER_OPEN_FOR"), "10s"),
		},
	}

	var err error
	if cfg.Pricing.TaxRate, err = parseDecimal(k.String("TAX_DEFAULT_RATE"), "0.07"); err != nil {
		return nil, fmt.Errorf("TAX_DEFAULT_RATE: %w", err)
	}
	if cfg.Pricing.ShippingCost, err = parseDecimal(k.String("SHIPPING_DEFAULT_COST"), "5.00"); err != nil {
		return nil, fmt.Errorf("SHIPPING_DEFAULT_COST: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Pricing.TaxRate.IsNegative() {
		return nil, errors.New("TAX_DEFAULT_RATE must not be negative")
	}
	if cfg.Obs.EnablePprof && cfg.AppEnv == "production" && cfg.Obs.PprofUser == "" {
		return nil, errors.New("PPROF_BASIC_AUTH_USER is required to expose pprof in production")
	}
	if cfg.Breaker.FailureRatio <= 0 || cfg.Breaker.FailureRatio > 1 {
		return nil, errors.New("STORE_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	switch cfg.RateLimit.Backend {
	case "sliding", "ulule":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND %q is not supported", cfg.RateLimit.Backend)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// parseFloats reads a comma-separated list, skipping blank and non-positive entries.
func parseFloats(value string) []float64 {
	var out []float64
	for _, part := range splitAndTrim(value) {
		if f, err := strconv.ParseFloat(part, 64); err == nil && f > 0 {
			out = append(out, f)
		}
	}
	sort.Float64s(out)
	return out
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	return decimal.NewFromString(valueOrDefault(value, fallback))
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
