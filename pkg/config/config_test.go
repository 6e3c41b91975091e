package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.True(t, cfg.Store.GCEnabled)
	assert.False(t, cfg.Store.AutoRef)
	assert.True(t, cfg.Persistence.WALEnabled)
	assert.Equal(t, "./data/wal", cfg.Persistence.WALDir)
	assert.Equal(t, "batch", cfg.Persistence.WALSyncMode)
	assert.Equal(t, 50*time.Millisecond, cfg.Persistence.WALBatchSyncInterval)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, "127.0.0.1:8090", cfg.Admin.Address)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadFromEnv_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("CRDTSTORE_GC_ENABLED", "false")
	t.Setenv("CRDTSTORE_WAL_SYNC_MODE", "immediate")
	t.Setenv("CRDTSTORE_ADMIN_ADDRESS", "0.0.0.0:9000")
	t.Setenv("CRDTSTORE_WAL_BATCH_SYNC_INTERVAL", "2s")

	cfg := LoadFromEnv()

	assert.False(t, cfg.Store.GCEnabled)
	assert.Equal(t, "immediate", cfg.Persistence.WALSyncMode)
	assert.Equal(t, "0.0.0.0:9000", cfg.Admin.Address)
	assert.Equal(t, 2*time.Second, cfg.Persistence.WALBatchSyncInterval)
}

func TestConfig_ValidateRejectsBadWALSyncMode(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Persistence.WALSyncMode = "nonsense"
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsWALEnabledWithoutDir(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Persistence.WALDir = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsBadLogLevel(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
}
