// Command facephrase runs the video generation daemon and talks to it.
//
// "facephrase serve" runs the daemon in the foreground. The submit, status,
// result and watch commands use the daemon's HTTP API (--api, defaulting to
// the configured api_bind); "jobs" and "jobs prune" open the job store
// directly so they work while the daemon is down. "doctor" reports preflight
// checks, external binaries and store health.
package main
