// Package jobs persists generation jobs and guards their lifecycle.
//
// The Store manages database connections (SQLite by default, PostgreSQL when
// configured), schema initialization, and the single UpdateStatus write path
// that moves a job through queued -> processing -> assembling -> ready|error.
// Every write is one statement; the legal predecessor states and the
// non-decreasing progress rule are enforced inside that statement, so
// concurrent writers to one record serialize in the database.
//
// Artifact locations are derived from the job id (see ArtifactsFor) and never
// stored beyond the final video and poster paths.
//
// Schema changes bump the version in schema.go; operators clear the database to
// adopt the new schema.
package jobs
