// Package services defines shared utilities consumed by the pipeline stages and
// the job-facing API.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     closed set of kinds (validation, tool execution, not found, not ready).
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
