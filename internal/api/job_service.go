package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"facephrase/internal/assembly"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/services"
	"facephrase/internal/workflow"
)

// activeETASeconds is the fixed estimate reported while a job is running.
const activeETASeconds = 30

// ErrNotReady is returned by Result for jobs that have not reached ready.
var ErrNotReady = fmt.Errorf("job %w", services.ErrNotReady)

// JobReader abstracts job persistence reads.
type JobReader interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
}

// Submitter records a job and schedules its run.
type Submitter interface {
	Submit(ctx context.Context, req jobs.NewJob) (*jobs.Job, error)
}

// MediaProber inspects finished videos.
type MediaProber interface {
	ProbeDuration(ctx context.Context, path string) float64
	Inspect(ctx context.Context, path string) (media.ProbeResult, error)
}

// JobService exposes the submit/status/result operations.
type JobService struct {
	store     JobReader
	submitter Submitter
	prober    MediaProber
	dataDir   string
	logger    *slog.Logger
}

// NewJobService constructs a JobService.
func NewJobService(cfg *config.Config, store JobReader, submitter Submitter, prober MediaProber, logger *slog.Logger) *JobService {
	return &JobService{
		store:     store,
		submitter: submitter,
		prober:    prober,
		dataDir:   cfg.Paths.DataDir,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// Submit records a queued job and schedules it. Input validation is the
// caller's responsibility.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	job, err := s.submitter.Submit(ctx, jobs.NewJob{
		ID:        strings.TrimSpace(req.ID),
		ImagePath: req.ImagePath,
		Script:    req.Script,
		Mode:      req.Mode,
	})
	if err != nil {
		if job != nil {
			// The record exists; scheduling failed and a restart will pick it up.
			logging.WarnWithContext(logging.WithContext(services.WithJobID(ctx, job.ID), s.logger),
				"job recorded but not scheduled", "dispatch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "queued jobs are dispatched again on daemon start"),
			)
			return job.ID, nil
		}
		return "", err
	}
	return job.ID, nil
}

// Status returns the polling view of a job.
func (s *JobService) Status(ctx context.Context, id string) (StatusView, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return ToStatusView(job), nil
}

// Result returns media URLs and properties of a ready job.
func (s *JobService) Result(ctx context.Context, id string) (ResultView, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return ResultView{}, err
	}
	if job.Status != jobs.StatusReady {
		return ResultView{}, fmt.Errorf("%w: status is %s", ErrNotReady, job.Status)
	}

	view := ResultView{
		VideoURL:    MediaURL(s.dataDir, job.VideoPath),
		PosterURL:   MediaURL(s.dataDir, job.PosterPath),
		DurationSec: int(s.prober.ProbeDuration(ctx, job.VideoPath)),
		Width:       assembly.Width,
		Height:      assembly.Height,
	}
	probe, err := s.prober.Inspect(ctx, job.VideoPath)
	if err != nil {
		s.logger.Debug("result inspection failed; using canvas dimensions",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
		)
		return view, nil
	}
	if stream, ok := probe.VideoStream(); ok && stream.Width > 0 && stream.Height > 0 {
		view.Width = stream.Width
		view.Height = stream.Height
	}
	return view, nil
}

// List returns job summaries, optionally filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...jobs.Status) ([]JobSummary, error) {
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(items), nil
}

// ToStatusView converts a job into its polling representation.
func ToStatusView(job *jobs.Job) StatusView {
	view := StatusView{
		Status:   string(job.Status),
		Progress: job.Progress,
		Stage:    workflow.StageLabel(job.Status, job.Progress),
	}
	if job.Status.IsActive() {
		view.ETASeconds = activeETASeconds
	}
	if job.Status == jobs.StatusError {
		view.Error = GenericFailure
		view.Detail = job.ErrorMessage
	}
	return view
}
