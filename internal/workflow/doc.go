// Package workflow runs jobs through the speech, captions, animation and
// assembly stages.
//
// The Orchestrator executes one job end to end, writing progress checkpoints
// to the job store and converting any stage failure (or panic) into a terminal
// error state. It never returns an error to its caller.
//
// The Dispatcher launches orchestrator runs in the background on a bounded
// pool, guarantees at most one run per job id, re-dispatches queued work after
// a restart, and drains running jobs on shutdown.
package workflow
