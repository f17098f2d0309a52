// Package logging provides structured logging for mergers runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Each
// repository being merged gets its own rotating log file, keyed by the same
// repository-path hash used by internal/state, so concurrent merge runs
// against different repositories never interleave into one file.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (repository hash, PR ID, merge phase)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//   - Log aggregation and filtering utilities, backing `mergers logs`
//   - Export to JSON, text, or CSV formats
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a repository's log directory:
//
//	logger, err := logging.NewLogger("/path/to/state/logs", "a1b2c3d4e5f60708", "INFO", false)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	repoLogger := logger.WithRepository("a1b2c3d4e5f60708")
//	prLogger := repoLogger.WithPR(4821)
//	phaseLogger := prLogger.WithPhase("cherry_picking")
//
//	phaseLogger.Info("cherry-pick applied", "commit", "a1b2c3d")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"cherry-pick applied","repo_hash":"a1b2c3d4e5f60708","pr_id":4821,"phase":"cherry_picking","commit":"a1b2c3d"}
//
// # Log Rotation
//
// Rotated files are named <repoHash>.log.1, <repoHash>.log.2, etc., where
// .1 is the most recent backup. When compression is enabled, rotated files
// become <repoHash>.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output.
//
// # Log Aggregation and Filtering
//
//	entries, err := logging.AggregateLogs("/path/to/state/logs", "a1b2c3d4e5f60708")
//	if err != nil {
//	    return err
//	}
//
//	filter := logging.LogFilter{
//	    Level:     "WARN",
//	    PRID:      4821,
//	    Phase:     "cherry_picking",
//	    StartTime: time.Now().Add(-1 * time.Hour),
//	}
//	filtered := logging.FilterLogs(entries, filter)
//
//	logging.ExportLogEntries(filtered, "errors.json", "json")
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
package logging
