// Package apiclient is the CLI's client for the daemon HTTP API.
//
// Non-2xx responses become *APIError values that match the services error
// markers (ErrNotFound, ErrNotReady, ErrValidation) through errors.Is, so
// callers handle daemon errors the same way they handle local ones.
package apiclient
