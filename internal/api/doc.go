// Package api defines the job service consumed by the HTTP layer and the CLI,
// along with the wire-format types it returns.
//
// # Key Types
//
// JobService: Submit, Status and Result, the three operations clients use to
// create a job and poll it to completion.
//
// StatusView/ResultView: the polling payloads. StatusView.Detail carries the
// raw failure text for operators and is never serialized.
//
// DaemonStatus: aggregated runtime information including dependencies and
// stage health.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Media URLs
// are paths relative to the data directory under /media, so the web client can
// load them from the daemon's static file route.
package api
