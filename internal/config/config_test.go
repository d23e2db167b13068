package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kwoolford/pos-terminal/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"POS_API_BASE_URL": "http://localhost:8000/",
		"POS_API_TOKEN":    "",
		"POS_METRICS_ADDR": "",
	})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.ReadMaxAttempts)
	require.Equal(t, 0.5, cfg.BreakerFailureRatio)
	require.Equal(t, "POS Store", cfg.StoreName)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"POS_API_BASE_URL": "",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"POS_API_BASE_URL":          "http://pos.internal",
		"POS_REQUEST_TIMEOUT":       "2s",
		"POS_READ_MAX_ATTEMPTS":     "1",
		"POS_BREAKER_OPEN_FOR":      "5s",
		"POS_BREAKER_FAILURE_RATIO": "0.75",
		"STORE_NAME":                "Corner Shop",
	})
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.RequestTimeout)
	require.Equal(t, 1, cfg.ReadMaxAttempts)
	require.Equal(t, 5*time.Second, cfg.BreakerOpenFor)
	require.Equal(t, 0.75, cfg.BreakerFailureRatio)
	require.Equal(t, "Corner Shop", cfg.StoreName)
}
