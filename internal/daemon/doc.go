// Package daemon coordinates the long-running facephrase process.
//
// It wires configuration, the job store, the workflow dispatcher and the HTTP
// surface into a single lifecycle with flock-based locking so only one daemon
// owns a data directory. Start recovers work left behind by a previous
// process, runs preflight checks and opens the listener; Stop shuts the
// listener down, drains running jobs within the configured grace period and
// releases the lock.
//
// The HTTP layer is thin glue over api.JobService: it validates multipart
// uploads, maps service errors to status codes, serves finished media from
// the outputs directory and streams status snapshots over a websocket.
// Pipeline logic stays in the workflow and stage packages.
package daemon
