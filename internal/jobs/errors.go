package jobs

import (
	"errors"
	"fmt"

	"facephrase/internal/services"
)

var (
	// ErrNotFound matches services.ErrNotFound.
	ErrNotFound = fmt.Errorf("job %w", services.ErrNotFound)
	// ErrDuplicateJob is returned when Create is called with an id already in use.
	ErrDuplicateJob = errors.New("job id already exists")
	// ErrInvalidTransition is returned when an update targets a state the job cannot reach.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
