// Package preflight provides readiness checks for the filesystem paths and
// external services facephrase depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll on start and logs failures as warnings; jobs
//     still run so a transient outage does not block the queue.
//   - The CLI "facephrase doctor" command prints RunAll and CheckSystemDeps
//     side by side.
//
// Checks for optional features (ElevenLabs speech, the watermark asset) are
// skipped when the feature is not configured.
package preflight
