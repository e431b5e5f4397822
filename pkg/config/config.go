// Package config handles EverCore configuration via environment variables.
//
// Configuration is loaded from environment variables using LoadFromEnv()
// and can be validated with Validate() before use. Every variable is
// prefixed EVERCORE_ and has a working default, so a bare environment
// yields a runnable (in-memory, current directory) setup.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//   - EVERCORE_DATA_DIR="./data"
//   - EVERCORE_IN_MEMORY=false
//   - EVERCORE_SYNC_WRITES=false
//   - EVERCORE_ORG_ID="default"
//   - EVERCORE_PLAYBOOK_PATH="./playbooks.yaml"
//   - EVERCORE_CATALOG_PATH="./battery_catalog.yaml"
//   - EVERCORE_LEDGER_PATH="./data/decisions.jsonl"
//   - EVERCORE_LEDGER_ENABLED=true
//   - EVERCORE_TOP_N=5
//   - EVERCORE_BLOCKED_VENDORS="VendorA,VendorB"
//   - EVERCORE_BLOCKED_CHEMISTRIES="NMC"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all EverCore configuration loaded from environment variables.
type Config struct {
	// Storage settings
	Storage StorageConfig

	// Recommendation pipeline settings
	Recommend RecommendConfig

	// Decision ledger settings
	Ledger LedgerConfig
}

// StorageConfig holds storage engine settings.
type StorageConfig struct {
	// DataDir is the directory for BadgerDB data files
	DataDir string
	// InMemory runs the store without persistence (testing, dry runs)
	InMemory bool
	// SyncWrites forces fsync after each write
	SyncWrites bool
}

// RecommendConfig holds recommendation pipeline settings.
type RecommendConfig struct {
	// OrgID scopes records and index snapshots
	OrgID string
	// PlaybookPath is the YAML playbook library file
	PlaybookPath string
	// CatalogPath is the YAML battery hardware catalog file
	CatalogPath string
	// TopN is how many similar projects to sample per run
	TopN int
	// BlockedVendors disqualifies battery candidates by vendor
	BlockedVendors []string
	// BlockedChemistries disqualifies battery candidates by chemistry
	BlockedChemistries []string
}

// LedgerConfig holds decision ledger settings.
type LedgerConfig struct {
	// Enabled controls whether decisions are mirrored to the JSONL ledger
	Enabled bool
	// Path is the ledger file location
	Path string
}

// LoadFromEnv creates a Config from environment variables, applying
// defaults for anything unset. Malformed numeric or boolean values fall
// back to their defaults rather than failing the load; Validate catches
// combinations that cannot work.
func LoadFromEnv() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:    getEnv("EVERCORE_DATA_DIR", "./data"),
			InMemory:   getEnvBool("EVERCORE_IN_MEMORY", false),
			SyncWrites: getEnvBool("EVERCORE_SYNC_WRITES", false),
		},
		Recommend: RecommendConfig{
			OrgID:              getEnv("EVERCORE_ORG_ID", "default"),
			PlaybookPath:       getEnv("EVERCORE_PLAYBOOK_PATH", "./playbooks.yaml"),
			CatalogPath:        getEnv("EVERCORE_CATALOG_PATH", "./battery_catalog.yaml"),
			TopN:               getEnvInt("EVERCORE_TOP_N", 5),
			BlockedVendors:     getEnvStringSlice("EVERCORE_BLOCKED_VENDORS", nil),
			BlockedChemistries: getEnvStringSlice("EVERCORE_BLOCKED_CHEMISTRIES", nil),
		},
		Ledger: LedgerConfig{
			Enabled: getEnvBool("EVERCORE_LEDGER_ENABLED", true),
			Path:    getEnv("EVERCORE_LEDGER_PATH", "./data/decisions.jsonl"),
		},
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("EVERCORE_DATA_DIR is required unless EVERCORE_IN_MEMORY=true")
	}
	if c.Recommend.OrgID == "" {
		return fmt.Errorf("EVERCORE_ORG_ID must not be empty")
	}
	if c.Recommend.TopN <= 0 {
		return fmt.Errorf("EVERCORE_TOP_N must be positive, got %d", c.Recommend.TopN)
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("EVERCORE_LEDGER_PATH is required when the ledger is enabled")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
