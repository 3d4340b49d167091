// Package log provides structured protocol logging for the haptics bridge.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level activity (datagrams in and out, command dispatch, state
// changes, send failures). It is separate from operational logging (slog) -
// protocol capture produces a complete machine-readable trace for debugging
// a misbehaving client/server exchange after the fact.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/haptic/bridge.hlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files use CBOR encoding with integer keys and the .hlog extension.
// Reader iterates a log file back into Events, optionally filtered.
package log
