// Package logging provides structured logging for blescan.
//
// This package wraps a zap logger with convenience functions used across the
// scanner. Logging is silent unless a level is configured, so the curated CLI
// and TUI output stays readable.
//
// # Log Levels
//
//   - Debug: per-device sightings, dropped stale callbacks
//   - Info: pipeline transitions, server lifecycle
//   - Warn: recoverable issues (registry save failures, slow observers)
//   - Error: failed scans, contract violations
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is passed, BLESCAN_LOG_LEVEL is consulted.
//
// # Pipeline Helpers
//
//	logging.LogTransition("awaiting_permission", "scanning", zap.Uint64("generation", 3))
//	logging.LogDevice("C4:7C:8D:6A:12:01", "Flower care", -61)
//	logging.LogDropped("stale generation", zap.Uint64("generation", 2))
//
// All functions are safe for concurrent use.
package logging
