// Package logging configures slog handlers and shared structured logging
// helpers. Field name constants keep attribute keys consistent across the
// pipeline, the daemon, and the CLI.
package logging
