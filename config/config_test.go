package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STAGING_MODE", "true")

	cfg := Load()

	assert.True(t, cfg.StagingMode)
	assert.Equal(t, "data/ledger.db", cfg.SQLitePath)
	assert.Equal(t, ":4000", cfg.APIAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "https://api.bybit.com", cfg.BybitBaseURL)
	assert.Empty(t, cfg.BybitAccounts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STAGING_MODE", "false")
	t.Setenv("BYBIT_ACCOUNTS", "account-1:Trader 1:k1:s1")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("POLL_INTERVAL_S", "60")

	cfg := Load()

	assert.False(t, cfg.StagingMode)
	assert.Equal(t, "account-1:Trader 1:k1:s1", cfg.BybitAccounts)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("STAGING_MODE", "true")
	t.Setenv("POLL_INTERVAL_S", "not-a-number")

	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
}
