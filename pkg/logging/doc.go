// Package logging provides the structured logging facade for httpcraft,
// built on Go's standard slog package.
//
// Every entry carries a subsystem identifier plus a printf-style message:
//
//	logging.Debug("Config", "loaded configuration from %s", path)
//	logging.Info("Cache", "evicted %d entries", n)
//	logging.Error("HTTPClient", err, "request failed")
//
// # CLI rendering
//
// InitForCLI installs a handler that renders records as the plain
// diagnostic lines the CLI prints on stderr: debug entries carry the
// [VERBOSE] prefix and appear only when verbose mode is on, warnings and
// errors carry Warning: and Error: prefixes, informational lines are
// bare. Subsystem and error attributes stay on the record for any future
// structured handler but are not rendered by the CLI one.
//
// # Masking
//
// SetMasker installs a function applied to every rendered line before it
// is written. The secret masker registers itself here so resolved secret
// values never reach stderr, whichever subsystem logged them.
package logging
