// Package logging provides structured logging with per-module log level configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"session": "debug",  // Per-module overrides
//			"api":     "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("session")
//	logger.Info("Session started", "session_id", id)
//
// Module-specific levels override the global level for that module only.
// When running under journald, filter by structured fields:
//
//	journalctl -t romulus-core MODULE=session
//	journalctl -t romulus-core SESSION_ID=abc
package logging
