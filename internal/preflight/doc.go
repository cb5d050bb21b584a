// Package preflight checks that amanrag can run on this machine before a
// server is started.
//
// The checks cover:
//   - write access to the data directory
//   - free disk space in the data directory (minimum 100MB)
//   - the file descriptor limit (minimum 1024)
//   - whether another process holds the data directory
//   - Ollama reachability and the configured embedding and chat models
//
// Use the Checker type to run all of them:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
