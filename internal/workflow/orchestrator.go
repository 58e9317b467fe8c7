package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"facephrase/internal/assembly"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/notifications"
	"facephrase/internal/services"
	"facephrase/internal/stage"
)

// Progress checkpoints written while a job runs.
const (
	ProgressStarted   = 10
	ProgressSpeech    = 40
	ProgressCaptions  = 60
	ProgressAnimation = 80
	ProgressDone      = 100
)

// Orchestrator executes a single job through all stages.
type Orchestrator struct {
	cfg      *config.Config
	store    *jobs.Store
	stages   StageSet
	notifier notifications.Service
	logger   *slog.Logger
}

// NewOrchestrator constructs an orchestrator. A nil notifier disables
// notifications.
func NewOrchestrator(cfg *config.Config, store *jobs.Store, stages StageSet, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		stages:   stages,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Stages returns the stage executors.
func (o *Orchestrator) Stages() StageSet { return o.stages }

// Run drives job id from queued to ready or error. Failures are recorded on
// the job rather than returned.
func (o *Orchestrator) Run(ctx context.Context, id string) {
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, o.logger)

	job, err := o.store.Get(ctx, id)
	if err != nil {
		logging.ErrorWithContext(logger, "job could not be loaded; run skipped", "job_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}

	if err := o.store.UpdateStatus(ctx, id, jobs.StatusProcessing, ProgressStarted, jobs.Patch{}); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			logging.WarnWithContext(logger, "job is not runnable; run skipped", "job_not_runnable",
				logging.String("status", string(job.Status)),
				logging.String(logging.FieldErrorHint, "jobs cannot be re-run once started"),
			)
			return
		}
		o.logCheckpointFailure(logger, jobs.StatusProcessing, ProgressStarted, err)
	}

	start := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("script_runes", len([]rune(job.Script))),
	)

	result, err := o.execute(ctx, job)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}

	o.checkpoint(ctx, logger, id, jobs.StatusReady, ProgressDone, jobs.Completed(result.FinalPath, result.PosterPath))
	logger.Info("job ready",
		logging.String(logging.FieldEventType, "job_ready"),
		logging.Float64("video_seconds", result.DurationSeconds),
		logging.Duration("elapsed", time.Since(start)),
	)
	o.notify(ctx, logger, notifications.EventJobReady, notifications.Payload{
		"jobId":     id,
		"script":    job.Script,
		"videoPath": result.FinalPath,
	})
}

func (o *Orchestrator) execute(ctx context.Context, job *jobs.Job) (assembly.Result, error) {
	artifacts := jobs.ArtifactsFor(o.cfg.Paths.OutputsDir, job.ID)
	logger := logging.WithContext(ctx, o.logger)

	if err := o.runStage(ctx, stage.Speech, func(stageCtx context.Context) error {
		return o.stages.Speech.Synthesize(stageCtx, job.Script, artifacts.Audio)
	}); err != nil {
		return assembly.Result{}, err
	}
	o.checkpoint(ctx, logger, job.ID, jobs.StatusProcessing, ProgressSpeech, jobs.Patch{})

	var estimate float64
	if err := o.runStage(ctx, stage.Captions, func(stageCtx context.Context) error {
		var genErr error
		estimate, genErr = o.stages.Captions.Generate(stageCtx, job.Script, artifacts.Captions)
		return genErr
	}); err != nil {
		return assembly.Result{}, err
	}
	o.checkpoint(ctx, logger, job.ID, jobs.StatusProcessing, ProgressCaptions, jobs.Patch{})

	if err := o.runStage(ctx, stage.Animation, func(stageCtx context.Context) error {
		return o.stages.Animation.Animate(stageCtx, job.ImagePath, estimate, artifacts.Talking)
	}); err != nil {
		return assembly.Result{}, err
	}
	o.checkpoint(ctx, logger, job.ID, jobs.StatusAssembling, ProgressAnimation, jobs.Patch{})

	var result assembly.Result
	if err := o.runStage(ctx, stage.Assembly, func(stageCtx context.Context) error {
		var asmErr error
		result, asmErr = o.stages.Assembly.Assemble(stageCtx, assembly.Request{
			VideoPath:    artifacts.Talking,
			AudioPath:    artifacts.Audio,
			CaptionsPath: artifacts.Captions,
			FinalPath:    artifacts.Video,
			PosterPath:   artifacts.Poster,
		})
		return asmErr
	}); err != nil {
		return assembly.Result{}, err
	}
	return result, nil
}

// runStage executes fn with stage-scoped context and logging. A panic inside
// fn is converted into an internal error.
func (o *Orchestrator) runStage(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, o.logger)
	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrInternal, name, "run", fmt.Sprintf("panic: %v", r), nil)
			logger.Error("stage panicked",
				logging.String(logging.FieldEventType, "stage_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := fn(stageCtx); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, logger *slog.Logger, id string, status jobs.Status, progress int, patch jobs.Patch) {
	if err := o.store.UpdateStatus(ctx, id, status, progress, patch); err != nil {
		o.logCheckpointFailure(logger, status, progress, err)
	}
}

func (o *Orchestrator) logCheckpointFailure(logger *slog.Logger, status jobs.Status, progress int, err error) {
	logging.ErrorWithContext(logger, "progress checkpoint not persisted", "checkpoint_failed",
		logging.String("status", string(status)),
		logging.Int("progress", progress),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
}
