// Feature flags for crdtstore.
//
// Centralized, atomic, process-global toggles for gc and auto_ref (two of
// the Store construction options) plus WAL durability. Config.LoadFromEnv()
// does not set them; it only copies the environment settings into
// Config.Features. Of the three, only the WAL flag is read outside this
// package (by persistence.WAL when appending). Tests flip them directly via
// the With*Enabled/With*Disabled helpers without touching os.Setenv.
//
// Usage:
//
//	cleanup := config.WithGCEnabled()
//	defer cleanup()
//	// ... test code with GC on ...
package config

import "sync/atomic"

var (
	gcEnabled      atomic.Bool
	autoRefEnabled atomic.Bool
	walEnabled     atomic.Bool
)

func init() {
	gcEnabled.Store(true)
	autoRefEnabled.Store(false)
	walEnabled.Store(true)
}

// EnableGC sets the process-wide GC flag. pkg/crdt does not read it;
// reclamation is controlled per Block by Block.GC.
func EnableGC() { gcEnabled.Store(true) }

// DisableGC clears the process-wide GC flag (not read by pkg/crdt).
func DisableGC() { gcEnabled.Store(false) }

// IsGCEnabled returns true if GC is globally enabled.
func IsGCEnabled() bool { return gcEnabled.Load() }

// WithGCEnabled temporarily enables GC and returns a restore function.
func WithGCEnabled() func() {
	prev := gcEnabled.Load()
	gcEnabled.Store(true)
	return func() { gcEnabled.Store(prev) }
}

// WithGCDisabled temporarily disables GC and returns a restore function.
func WithGCDisabled() func() {
	prev := gcEnabled.Load()
	gcEnabled.Store(false)
	return func() { gcEnabled.Store(prev) }
}

// EnableAutoRef sets the process-wide auto-ref flag. pkg/crdt does not
// read it and never wraps inserted types in a Ref automatically.
func EnableAutoRef() { autoRefEnabled.Store(true) }

// DisableAutoRef globally disables auto-ref.
func DisableAutoRef() { autoRefEnabled.Store(false) }

// IsAutoRefEnabled returns true if auto-ref is globally enabled.
func IsAutoRefEnabled() bool { return autoRefEnabled.Load() }

// WithAutoRefEnabled temporarily enables auto-ref and returns a restore function.
func WithAutoRefEnabled() func() {
	prev := autoRefEnabled.Load()
	autoRefEnabled.Store(true)
	return func() { autoRefEnabled.Store(prev) }
}

// WithAutoRefDisabled temporarily disables auto-ref and returns a restore function.
func WithAutoRefDisabled() func() {
	prev := autoRefEnabled.Load()
	autoRefEnabled.Store(false)
	return func() { autoRefEnabled.Store(prev) }
}

// EnableWAL globally enables write-ahead logging in pkg/persistence.
func EnableWAL() { walEnabled.Store(true) }

// DisableWAL globally disables write-ahead logging.
func DisableWAL() { walEnabled.Store(false) }

// IsWALEnabled returns true if WAL is globally enabled.
func IsWALEnabled() bool { return walEnabled.Load() }

// WithWALEnabled temporarily enables WAL and returns a restore function.
func WithWALEnabled() func() {
	prev := walEnabled.Load()
	walEnabled.Store(true)
	return func() { walEnabled.Store(prev) }
}

// WithWALDisabled temporarily disables WAL and returns a restore function.
func WithWALDisabled() func() {
	prev := walEnabled.Load()
	walEnabled.Store(false)
	return func() { walEnabled.Store(prev) }
}

// ResetFeatureFlags restores all flags to their process-start defaults.
// Intended for test teardown when a test mutates flags directly instead
// of through a With*/cleanup pair.
func ResetFeatureFlags() {
	gcEnabled.Store(true)
	autoRefEnabled.Store(false)
	walEnabled.Store(true)
}
