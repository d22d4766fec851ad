package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	MigrateOnStart     bool
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	JWTClockSkew     time.Duration
	AccessCookieName string

	RushRate             decimal.Decimal
	Breakpoints          pricing.Breakpoints
	Currency             string
	MaxPreviewQuantities int
	BrokerCacheTTL       time.Duration

	BrokerBreakerMinRequests  int
	BrokerBreakerFailureRatio float64
	BrokerBreakerOpen         time.Duration

	QuoteRecordingEnabled bool
	QuoteQueue            string
	QuoteMaxRetry         int
	WorkerConcurrency     int

	RateLimitPreviewPerMin int
	RateLimitGlobal        string
	BodyLimitBytes         int64
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
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START"), false),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		JWTSecret:        strings.TrimSpace(k.String("JWT_SECRET")),
		JWTIssuer:        strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:      strings.TrimSpace(k.String("JWT_AUDIENCE")),
		JWTClockSkew:     parseDuration(k.String("JWT_CLOCK_SKEW"), "30s"),
		AccessCookieName: strings.TrimSpace(k.String("ACCESS_COOKIE_NAME")),

		Currency:             strings.ToUpper(valueOrDefault(k.String("PRICING_CURRENCY"), "USD")),
		MaxPreviewQuantities: parseInt(k.String("PRICING_MAX_PREVIEW_QUANTITIES"), 20),
		BrokerCacheTTL:       parseDuration(k.String("BROKER_CACHE_TTL"), "5m"),

		QuoteRecordingEnabled: parseBool(k.String("QUOTE_RECORDING_ENABLED"), true),
		QuoteQueue:            valueOrDefault(k.String("QUOTE_QUEUE"), "pricing"),
		QuoteMaxRetry:         parseInt(k.String("QUOTE_MAX_RETRY"), 10),
		WorkerConcurrency:     parseInt(k.String("WORKER_CONCURRENCY"), 5),

		RateLimitPreviewPerMin: parseInt(k.String("RATE_LIMIT_PREVIEW_PER_MIN"), 60),
		RateLimitGlobal:        valueOrDefault(k.String("RATE_LIMIT_GLOBAL"), "600-M"),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 65536)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	rush, err := parseRushRate(k.String("PRICING_RUSH_RATE"))
	if err != nil {
		return nil, err
	}
	cfg.RushRate = rush

	breakpoints, err := parseBreakpoints(k.String("PRICING_BREAKPOINTS"))
	if err != nil {
		return nil, err
	}
	cfg.Breakpoints = breakpoints

	if err := cfg.loadBrokerBreaker(k); err != nil {
		return nil, err
	}

	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.MaxPreviewQuantities < 1 {
		return nil, errors.New("PRICING_MAX_PREVIEW_QUANTITIES must be positive")
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

// CalculatorConfig returns the pricing engine settings. A nil tier table
// selects the default Bronze to Platinum ladder.
func (c *Config) CalculatorConfig() pricing.CalculatorConfig {
	return pricing.CalculatorConfig{
		Breakpoints: c.Breakpoints,
		RushRate:    c.RushRate,
	}
}

// loadBrokerBreaker reads the breaker guarding broker profile reads. Unlike
// the general knobs these are rejected, not defaulted, when malformed.
func (c *Config) loadBrokerBreaker(k *koanf.Koanf) error {
	minRequests, err := strictInt(k.String("BROKER_BREAKER_MIN_REQUESTS"), 10)
	if err != nil || minRequests < 1 {
		return &pricing.ConfigurationError{Source: "BROKER_BREAKER_MIN_REQUESTS", Message: "must be a positive integer", Err: err}
	}
	ratio := 0.5
	if raw := strings.TrimSpace(k.String("BROKER_BREAKER_FAILURE_RATIO")); raw != "" {
		ratio, err = strconv.ParseFloat(raw, 64)
		if err != nil || ratio <= 0 || ratio > 1 {
			return &pricing.ConfigurationError{Source: "BROKER_BREAKER_FAILURE_RATIO", Message: "must be in (0,1]", Err: err}
		}
	}
	openMS, err := strictInt(k.String("BROKER_BREAKER_OPEN_MS"), 15000)
	if err != nil || openMS < 1 {
		return &pricing.ConfigurationError{Source: "BROKER_BREAKER_OPEN_MS", Message: "must be a positive number of milliseconds", Err: err}
	}
	c.BrokerBreakerMinRequests = minRequests
	c.BrokerBreakerFailureRatio = ratio
	c.BrokerBreakerOpen = time.Duration(openMS) * time.Millisecond
	return nil
}

func strictInt(value string, fallback int) (int, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func parseRushRate(value string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return pricing.DefaultRushRate, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &pricing.ConfigurationError{Source: "PRICING_RUSH_RATE", Message: "not a decimal", Err: err}
	}
	if rate.IsNegative() {
		return decimal.Zero, &pricing.ConfigurationError{Source: "PRICING_RUSH_RATE", Message: "must not be negative"}
	}
	return rate, nil
}

func parseBreakpoints(value string) (pricing.Breakpoints, error) {
	parts := splitAndTrim(value)
	if len(parts) == 0 {
		return pricing.DefaultBreakpoints(), nil
	}
	quantities := make([]int, 0, len(parts))
	for _, part := range parts {
		q, err := strconv.Atoi(part)
		if err != nil {
			return pricing.Breakpoints{}, &pricing.ConfigurationError{Source: "PRICING_BREAKPOINTS", Message: fmt.Sprintf("%q is not an integer", part), Err: err}
		}
		quantities = append(quantities, q)
	}
	return pricing.NewBreakpoints(quantities)
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
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
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

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
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
