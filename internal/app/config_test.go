package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 15*time.Second, cfg.AppReadTimeout)
	require.Equal(t, 5*time.Minute, cfg.SuggestionCacheTTL)
	require.Equal(t, "0 * * * *", cfg.OverdueSyncCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("SUGGESTION_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.AppAddr)
	require.Equal(t, 30*time.Second, cfg.SuggestionCacheTTL)
	require.True(t, cfg.IsProduction())
}

func TestTestModeRefresh(t *testing.T) {
	t.Setenv("MERIDIAN_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv("MERIDIAN_TEST_MODE", "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
