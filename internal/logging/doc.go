// Package logging assembles structured slog loggers used across signbridge.
//
// It owns the console (tint) and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with session IDs, pipeline names, and correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
