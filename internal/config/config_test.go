package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules_AreValid(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Validate())

	assert.Equal(t, "0.85", rules.MaxUtilizationDecimal().String())
	assert.Equal(t, "0.1", rules.VIPReserveDecimal().String())
	assert.Equal(t, "1.2", rules.CongestionAlphaDecimal().String())
	assert.Equal(t, 60*time.Second, rules.CacheTTL())
	assert.Equal(t, 16, rules.CutoffHour)
}

func TestRules_ValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Rules)
	}{
		{"max utilization too low", func(r *Rules) { r.MaxUtilization = 0.4 }},
		{"max utilization too high", func(r *Rules) { r.MaxUtilization = 0.96 }},
		{"safety buffer too short", func(r *Rules) { r.SafetyBufferMinutes = 10 }},
		{"safety buffer too long", func(r *Rules) { r.SafetyBufferMinutes = 61 }},
		{"vip reserve too small", func(r *Rules) { r.VIPReservePercent = 0.01 }},
		{"vip reserve too large", func(r *Rules) { r.VIPReservePercent = 0.25 }},
		{"alpha too small", func(r *Rules) { r.CongestionAlpha = 0.4 }},
		{"alpha too large", func(r *Rules) { r.CongestionAlpha = 2.5 }},
		{"ttl too short", func(r *Rules) { r.DecisionCacheTTLSeconds = 5 }},
		{"ttl too long", func(r *Rules) { r.DecisionCacheTTLSeconds = 301 }},
		{"bad hour", func(r *Rules) { r.CutoffHour = 24 }},
		{"bad timezone", func(r *Rules) { r.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)
			err := rules.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid cutoff rules")
		})
	}
}

func TestLoadRules_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
maxUtilization: 0.9
safetyBufferMinutes: 45
timezone: UTC
`), 0o600))
	t.Setenv("CUTOFF_SAFETY_BUFFER_MINUTES", "20")

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, rules.MaxUtilization)
	assert.Equal(t, 20, rules.SafetyBufferMinutes)
	assert.Equal(t, 0.10, rules.VIPReservePercent)
	assert.Equal(t, time.UTC, rules.Location())
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleStore_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxUtilization: 0.8\ntimezone: UTC\n"), 0o600))

	initial, err := LoadRules(path)
	require.NoError(t, err)
	store := NewRuleStore(initial, path)

	require.NoError(t, os.WriteFile(path, []byte("maxUtilization: 0.9\ntimezone: UTC\n"), 0o600))
	reloaded, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, 0.9, reloaded.MaxUtilization)
	assert.Equal(t, 0.9, store.Rules().MaxUtilization)

	require.NoError(t, os.WriteFile(path, []byte("maxUtilization: 0.99\ntimezone: UTC\n"), 0o600))
	_, err = store.Reload()
	require.Error(t, err)
	assert.Equal(t, 0.9, store.Rules().MaxUtilization)
}

func TestRuleStore_SetValidates(t *testing.T) {
	store := NewRuleStore(DefaultRules(), "")

	bad := DefaultRules()
	bad.CongestionAlpha = 3
	assert.Error(t, store.Set(bad))
	assert.Equal(t, 1.2, store.Rules().CongestionAlpha)

	good := DefaultRules()
	good.CongestionAlpha = 0.5
	require.NoError(t, store.Set(good))
	assert.Equal(t, 0.5, store.Rules().CongestionAlpha)
}

func TestLoad(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("DATA_SOURCE", "Postgres")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("RATE_LIMIT_SIMULATE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, DataSourcePostgres, cfg.DataSource)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, 5, cfg.RateLimits.Simulate)
	assert.Equal(t, 100, cfg.RateLimits.CapacityCheck)
	assert.Equal(t, "cutoff_db", cfg.MongoDB.Database)
}

func TestLoad_RejectsUnknownDataSource(t *testing.T) {
	t.Setenv("DATA_SOURCE", "hana")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_SOURCE")
}
