package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/notifications"
	"facephrase/internal/services"
)

// fail records a terminal error. Artifacts written by earlier stages stay on
// disk.
func (o *Orchestrator) fail(ctx context.Context, job *jobs.Job, stageErr error) {
	logger := logging.WithContext(ctx, o.logger)
	message := failureMessage(stageErr)

	stageName, operation, _ := services.Details(stageErr)
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("operation", operation),
		logging.String("error_kind", string(services.KindOf(stageErr))),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Error(stageErr),
	)

	o.checkpoint(ctx, logger, job.ID, jobs.StatusError, ProgressDone, jobs.Failed(message))
	o.notify(ctx, logger, notifications.EventJobFailed, notifications.Payload{
		"jobId": job.ID,
		"error": message,
	})
}

func failureMessage(err error) string {
	if err == nil {
		return "video generation failed without error detail"
	}
	if message := strings.TrimSpace(err.Error()); message != "" {
		return message
	}
	return "video generation failed"
}

func failureHint(err error) string {
	switch services.KindOf(err) {
	case services.KindToolExecution:
		return "inspect the tool stderr in error_message"
	case services.KindConfiguration:
		return "check the [speech] and [media] config sections"
	case services.KindValidation:
		return "check the uploaded photo and script"
	default:
		return "check logs for details"
	}
}

func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("notification skipped during shutdown")
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
