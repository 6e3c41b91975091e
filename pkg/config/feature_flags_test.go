package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlags_WithGCEnabledRestoresPreviousValue(t *testing.T) {
	DisableGC()
	restore := WithGCEnabled()
	assert.True(t, IsGCEnabled())
	restore()
	assert.False(t, IsGCEnabled())
	EnableGC()
}

func TestFeatureFlags_WithWALDisabledRestoresPreviousValue(t *testing.T) {
	EnableWAL()
	restore := WithWALDisabled()
	assert.False(t, IsWALEnabled())
	restore()
	assert.True(t, IsWALEnabled())
}

func TestFeatureFlags_ResetRestoresProcessDefaults(t *testing.T) {
	DisableGC()
	EnableAutoRef()
	DisableWAL()

	ResetFeatureFlags()

	assert.True(t, IsGCEnabled())
	assert.False(t, IsAutoRefEnabled())
	assert.True(t, IsWALEnabled())
}
