// Package config handles environment-variable configuration for crdtstore.
//
// crdtstore uses environment variables for configuration, the same way its
// storage-engine ancestor configured itself: sensible defaults so
// LoadFromEnv() works with nothing set, organized into nested structs by
// concern, validated once with Validate() before use.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//	CRDTSTORE_GC_ENABLED=true
//	CRDTSTORE_AUTO_REF=false
//	CRDTSTORE_WAL_ENABLED=true
//	CRDTSTORE_WAL_DIR=./data/wal
//	CRDTSTORE_WAL_SYNC_MODE=batch
//	CRDTSTORE_BADGER_DIR=./data/badger
//	CRDTSTORE_ADMIN_ADDRESS=127.0.0.1:8090
//	CRDTSTORE_LOG_LEVEL=INFO
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all crdtstore configuration loaded from environment variables.
//
// Configuration is organized into logical sections:
//   - Store: Store-level behavior (gc, auto-ref)
//   - Persistence: Badger + WAL durability settings
//   - Admin: the read-only inspect/health HTTP surface
//   - Logging: log level/format
//
// Use LoadFromEnv() to create a Config from environment variables.
type Config struct {
	Store       StoreConfig
	Persistence PersistenceConfig
	Admin       AdminConfig
	Logging     LoggingConfig
	Features    FeatureFlagsConfig
}

// StoreConfig controls Store-level GC and referencing behavior.
type StoreConfig struct {
	// GCEnabled controls whether deleted, non-kept items are reclaimed
	// during cleanup.
	GCEnabled bool
	// AutoRef is copied into Store.AutoRef by the serve command. Nothing in
	// pkg/crdt reads that field: inserted types are not wrapped in Refs
	// automatically, and a Ref is only created by InsertRef or SetRef.
	AutoRef bool
}

// PersistenceConfig controls the optional Badger + WAL durability layer.
type PersistenceConfig struct {
	// BadgerDir is the directory BadgerStore opens for per-block update
	// bytes. Empty means the serve command uses <data-dir>/badger.
	BadgerDir string
	// WALEnabled controls whether the serve command opens the WAL. The
	// serve command does not append transactions to it or write block
	// snapshots to Badger.
	WALEnabled bool
	// WALDir is the directory for WAL segment files.
	WALDir string
	// WALSyncMode is "batch" (fsync on an interval) or "immediate"
	// (fsync every entry).
	WALSyncMode string
	// WALBatchSyncInterval is the fsync interval when WALSyncMode is
	// "batch".
	WALBatchSyncInterval time.Duration
}

// AdminConfig controls the read-only health/stats HTTP endpoint.
type AdminConfig struct {
	Enabled bool
	Address string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// FeatureFlagsConfig mirrors the atomic runtime toggles in feature_flags.go
// so their defaults are visible alongside the rest of the config.
type FeatureFlagsConfig struct {
	GCEnabled  bool
	AutoRef    bool
	WALEnabled bool
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Store.GCEnabled = getEnvBool("CRDTSTORE_GC_ENABLED", true)
	cfg.Store.AutoRef = getEnvBool("CRDTSTORE_AUTO_REF", false)

	cfg.Persistence.BadgerDir = getEnv("CRDTSTORE_BADGER_DIR", "")
	cfg.Persistence.WALEnabled = getEnvBool("CRDTSTORE_WAL_ENABLED", true)
	cfg.Persistence.WALDir = getEnv("CRDTSTORE_WAL_DIR", "./data/wal")
	cfg.Persistence.WALSyncMode = getEnv("CRDTSTORE_WAL_SYNC_MODE", "batch")
	cfg.Persistence.WALBatchSyncInterval = getEnvDuration("CRDTSTORE_WAL_BATCH_SYNC_INTERVAL", 50*time.Millisecond)

	cfg.Admin.Enabled = getEnvBool("CRDTSTORE_ADMIN_ENABLED", true)
	cfg.Admin.Address = getEnv("CRDTSTORE_ADMIN_ADDRESS", "127.0.0.1:8090")

	cfg.Logging.Level = getEnv("CRDTSTORE_LOG_LEVEL", "INFO")
	cfg.Logging.Format = getEnv("CRDTSTORE_LOG_FORMAT", "text")

	cfg.Features.GCEnabled = cfg.Store.GCEnabled
	cfg.Features.AutoRef = cfg.Store.AutoRef
	cfg.Features.WALEnabled = cfg.Persistence.WALEnabled

	return cfg
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	switch c.Persistence.WALSyncMode {
	case "batch", "immediate":
	default:
		return fmt.Errorf("invalid WAL sync mode %q: must be \"batch\" or \"immediate\"", c.Persistence.WALSyncMode)
	}
	if c.Persistence.WALEnabled && c.Persistence.WALDir == "" {
		return fmt.Errorf("WAL enabled but no WAL directory configured")
	}
	if c.Admin.Enabled && c.Admin.Address == "" {
		return fmt.Errorf("admin endpoint enabled but no address configured")
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{gc=%v auto_ref=%v badger_dir=%q wal=%v admin=%q}",
		c.Store.GCEnabled, c.Store.AutoRef, c.Persistence.BadgerDir, c.Persistence.WALEnabled, c.Admin.Address)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
