package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr())
	assert.Equal(t, 3, cfg.Storage.Redis.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Storage.Redis.ConnectTimeout)
	assert.False(t, cfg.Storage.Redis.SkipConnect)
	assert.False(t, cfg.RateLimiter.Disabled)

	require.Contains(t, cfg.RateLimiter.Policies, "api")
	require.Contains(t, cfg.RateLimiter.Policies, "email")
	require.Contains(t, cfg.RateLimiter.Policies, "workflow")

	assert.Equal(t, 100, cfg.RateLimiter.Policies["api"].MaxRequests)
	assert.Equal(t, time.Hour, cfg.RateLimiter.Policies["email"].Window)
	assert.Equal(t, "ratelimit:workflow", cfg.RateLimiter.Policies["workflow"].KeyPrefix)

	assert.Zero(t, cfg.LocalGuard.RPS)
}

func TestLoad_PolicyOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_API_MAX_REQUESTS", "7")
	t.Setenv("RATE_LIMIT_API_WINDOW_MS", "2500")
	t.Setenv("RATE_LIMIT_IP_MAX_REQUESTS", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.RateLimiter.Policies["api"].MaxRequests)
	assert.Equal(t, 2500*time.Millisecond, cfg.RateLimiter.Policies["api"].Window)
	assert.Equal(t, 42, cfg.RateLimiter.IP.MaxRequests)
}

func TestLoad_BuildPhaseSkipsConnect(t *testing.T) {
	t.Setenv("BUILD_PHASE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Storage.Redis.SkipConnect)
}

func TestLoad_InvalidNumbersAreRejected(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ThrottlingKillSwitch(t *testing.T) {
	t.Setenv("RATE_LIMIT_DISABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.RateLimiter.Disabled)
}

func TestLoad_LocalGuard(t *testing.T) {
	t.Setenv("LOCAL_GUARD_RPS", "2.5")
	t.Setenv("LOCAL_GUARD_BURST", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.LocalGuard.RPS)
	assert.Equal(t, 10, cfg.LocalGuard.Burst)
}
