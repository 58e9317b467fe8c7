package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"facephrase/internal/logging"
)

// Create inserts a queued job with progress 0.
func (s *Store) Create(ctx context.Context, job NewJob) (*Job, error) {
	if strings.TrimSpace(job.ID) == "" {
		return nil, errors.New("create job: id is required")
	}
	timestamp := formatTime(time.Now())

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, status, progress, script, image_path, mode, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(StatusQueued),
		0,
		job.Script,
		job.ImagePath,
		job.Mode,
		timestamp,
		timestamp,
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, fmt.Errorf("create job %s: %w", job.ID, ErrDuplicateJob)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, job.ID)
}

// Get returns the job or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.queryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateStatus sets status, progress and any fields present in patch in one
// statement. The statement only matches rows whose current status is a legal
// predecessor of status, and progress never decreases. Updating a job that no
// longer exists is logged and reported as success.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, progress int, patch Patch) error {
	if err := validateUpdate(status, progress); err != nil {
		return err
	}

	sets := []string{
		"status = ?",
		"progress = CASE WHEN progress > ? THEN progress ELSE ? END",
		"updated_at = ?",
	}
	args := []any{string(status), progress, progress, formatTime(time.Now())}
	if patch.VideoPath != nil {
		sets = append(sets, "video_path = ?")
		args = append(args, *patch.VideoPath)
	}
	if patch.PosterPath != nil {
		sets = append(sets, "poster_path = ?")
		args = append(args, *patch.PosterPath)
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *patch.ErrorMessage)
	}

	from := predecessors[status]
	args = append(args, id)
	for _, st := range from {
		args = append(args, string(st))
	}

	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND status IN (` + makePlaceholders(len(from)) + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("status update for missing job ignored",
			logging.String(logging.FieldJobID, id),
			logging.String("target_status", string(status)),
			logging.String(logging.FieldEventType, "job_missing"),
		)
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s for job %s", ErrInvalidTransition, current.Status, status, id)
}

// List returns jobs ordered by creation time, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ListActive returns jobs that are queued or mid-run.
func (s *Store) ListActive(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, StatusQueued, StatusProcessing, StatusAssembling)
}

// Prune deletes terminal jobs last updated before cutoff and returns their ids.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.query(ctx,
		`SELECT id FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(StatusReady), string(StatusError), formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("select prunable jobs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prunable job: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(StatusReady), string(StatusError))
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE id IN (`+makePlaceholders(len(ids))+`) AND status IN (?, ?)`,
		args...,
	); err != nil {
		return nil, fmt.Errorf("prune jobs: %w", err)
	}
	return ids, nil
}
