// Package log provides a simple, leveled logging interface for the raggate
// retrieval pipeline.
//
// The pipeline stages, vector stores, and CLI all log through the Logger
// interface so that applications can plug in their own backend. Two
// implementations ship with the package:
//
//   - DefaultLogger: wraps Go's standard log package and writes to stderr
//     with a "[raggate] " prefix
//   - GologLogger: a thin wrapper over github.com/kataras/golog for users
//     who want colored, leveled console output
//
// # Log Levels
//
// Five levels are supported, in order of increasing severity:
//
//   - LogLevelDebug: per-stage decisions (gate verdicts, tie-break scores)
//   - LogLevelInfo: request lifecycle messages
//   - LogLevelWarn: recoverable conditions such as a skipped tie-breaker
//   - LogLevelError: backend failures (vector store, embeddings, LLM)
//   - LogLevelNone: disables all output
//
// # Example
//
//	logger := log.NewDefaultLogger(log.LogLevelDebug)
//	logger.Info("index ready: %d chunks", n)
//	logger.Debug("gate kept %d of %d candidates", kept, fetched)
//
// A package-level logger is available for code that does not thread a
// Logger through explicitly:
//
//	log.SetLogLevel(log.LogLevelWarn)
//	log.Warn("signature tie-break disabled: no embedder configured")
//
// The DefaultLogger is safe for concurrent use; the standard library's
// log.Logger serializes writes internally.
package log
