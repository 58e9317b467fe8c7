// Package notifications publishes job outcome events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the orchestrator can publish unconditionally. Ready and error events can be
// toggled independently in the [notifications] config section.
package notifications
