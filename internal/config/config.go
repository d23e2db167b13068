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
)

// Config holds terminal configuration loaded from the environment.
type Config struct {
	AppEnv    string
	LogFormat string
	LogLevel  string

	// Backend the terminal talks to. The token is an opaque bearer
	// credential; acquiring and refreshing it is out of scope here.
	APIBaseURL string
	APIToken   string

	RequestTimeout  time.Duration
	ReadMaxAttempts int
	ReadBackoffBase time.Duration

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	// Local listener for /metrics and liveness. Empty disables it.
	MetricsAddr string

	// Receipt header lines.
	StoreName    string
	StoreAddress string
	StorePhone   string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:    valueOrDefault(k.String("APP_ENV"), "development"),
		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "console"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		APIBaseURL: strings.TrimRight(strings.TrimSpace(k.String("POS_API_BASE_URL")), "/"),
		APIToken:   strings.TrimSpace(k.String("POS_API_TOKEN")),

		RequestTimeout:  parseDuration(k.String("POS_REQUEST_TIMEOUT"), "10s"),
		ReadMaxAttempts: parseInt(k.String("POS_READ_MAX_ATTEMPTS"), 3),
		ReadBackoffBase: parseDuration(k.String("POS_READ_BACKOFF_BASE"), "200ms"),

		BreakerMinRequests:  parseInt(k.String("POS_BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("POS_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("POS_BREAKER_OPEN_FOR"), "30s"),

		MetricsAddr: strings.TrimSpace(k.String("POS_METRICS_ADDR")),

		StoreName:    valueOrDefault(k.String("STORE_NAME"), "POS Store"),
		StoreAddress: valueOrDefault(k.String("STORE_ADDRESS"), "123 Main Street"),
		StorePhone:   valueOrDefault(k.String("STORE_PHONE"), "(555) 123-4567"),
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("POS_API_BASE_URL is required")
	}

	return cfg, nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
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

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
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
