// Package logging configures structured slog output for amanrag: JSON lines
// written to a size-rotated file under ~/.amanrag/logs, optionally mirrored
// to stderr, and a small viewer used by `amanrag logs` to tail and filter them.
//
// In stdio mode (the MCP server) nothing is written to stdout or stderr.
package logging
