package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// An empty directory means no config file, so defaults win.
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)

	require.Equal(t, "trustweave-portal", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 5, cfg.Auth.Local.LockoutThreshold)

	require.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes)
	require.Contains(t, cfg.Storage.AllowedTypes, "application/pdf")

	require.Equal(t, 1500*time.Millisecond, cfg.Ledger.SubmitDelay)
	require.Equal(t, time.Second, cfg.Ledger.VerifyDelay)
	require.Equal(t, 500*time.Millisecond, cfg.Ledger.StatusDelay)
	require.InDelta(t, 0.9, cfg.Ledger.ValidityRate, 1e-9)
	require.Equal(t, "TrustWeave Identity Authority", cfg.Ledger.Issuer)

	require.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, 720*time.Hour, cfg.Maintenance.DraftTTL)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
ledger:
  submit_delay: 10ms
  validity_rate: 0.5
auth:
  jwt:
    secret: file-secret
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 10*time.Millisecond, cfg.Ledger.SubmitDelay)
	require.InDelta(t, 0.5, cfg.Ledger.ValidityRate, 1e-9)
	require.Equal(t, "file-secret", cfg.Auth.JWT.Secret)

	// Untouched keys keep their defaults.
	require.Equal(t, "TrustWeave Identity Authority", cfg.Ledger.Issuer)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRUSTWEAVE_SERVER_PORT", "9200")
	t.Setenv("TRUSTWEAVE_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
}
