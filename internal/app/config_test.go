package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/gatewarden.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "127.0.0.1:6379", cfg.Cache.Redis.Address)
	require.Equal(t, time.Hour, cfg.Engine.CacheTTL)
	require.True(t, cfg.Tenancy.Enabled)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, "gatewarden", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.Schedule)
	require.Equal(t, 90*24*time.Hour, cfg.Maintenance.ActivityLogRetention)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEWARDEN_SERVER_PORT", "9100")
	t.Setenv("GATEWARDEN_DATABASE_DRIVER", "postgres")
	t.Setenv("GATEWARDEN_ENGINE_CACHE_TTL", "30m")
	t.Setenv("GATEWARDEN_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("GATEWARDEN_TENANCY_ENABLED", "false")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 30*time.Minute, cfg.Engine.CacheTTL)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
	require.False(t, cfg.Tenancy.Enabled)
}
