package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.False(t, cfg.Storage.InMemory)
	assert.Equal(t, "default", cfg.Recommend.OrgID)
	assert.Equal(t, 5, cfg.Recommend.TopN)
	assert.True(t, cfg.Ledger.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("EVERCORE_DATA_DIR", "/var/lib/evercore")
	t.Setenv("EVERCORE_IN_MEMORY", "yes")
	t.Setenv("EVERCORE_ORG_ID", "org-42")
	t.Setenv("EVERCORE_TOP_N", "10")
	t.Setenv("EVERCORE_BLOCKED_VENDORS", "Acme, Borealis ,")
	t.Setenv("EVERCORE_LEDGER_ENABLED", "false")

	cfg := LoadFromEnv()
	assert.Equal(t, "/var/lib/evercore", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "org-42", cfg.Recommend.OrgID)
	assert.Equal(t, 10, cfg.Recommend.TopN)
	assert.Equal(t, []string{"Acme", "Borealis"}, cfg.Recommend.BlockedVendors)
	assert.False(t, cfg.Ledger.Enabled)
}

func TestLoadFromEnvMalformedFallsBack(t *testing.T) {
	t.Setenv("EVERCORE_TOP_N", "lots")
	cfg := LoadFromEnv()
	assert.Equal(t, 5, cfg.Recommend.TopN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, "EVERCORE_DATA_DIR"},
		{"empty org", func(c *Config) { c.Recommend.OrgID = "" }, "EVERCORE_ORG_ID"},
		{"zero top n", func(c *Config) { c.Recommend.TopN = 0 }, "EVERCORE_TOP_N"},
		{"ledger path", func(c *Config) { c.Ledger.Path = "" }, "EVERCORE_LEDGER_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadFromEnv()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateInMemoryNeedsNoDataDir(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Storage.InMemory = true
	cfg.Storage.DataDir = ""
	assert.NoError(t, cfg.Validate())
}
