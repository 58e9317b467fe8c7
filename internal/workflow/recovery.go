package workflow

import (
	"context"
	"errors"
	"fmt"

	"facephrase/internal/jobs"
	"facephrase/internal/logging"
)

// InterruptedMessage is recorded on jobs that were mid-run when the daemon
// stopped.
const InterruptedMessage = "interrupted: daemon restarted before the job finished"

// RecoveryReport summarizes one Recover pass.
type RecoveryReport struct {
	Requeued    []string
	Interrupted []string
}

// Recover restores work after a restart. Queued jobs are dispatched again;
// jobs caught in processing or assembling are moved to error because stage
// artifacts are write-once and runs are not resumable.
func (d *Dispatcher) Recover(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport
	active, err := d.store.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active jobs: %w", err)
	}

	for _, job := range active {
		if d.InFlight(job.ID) {
			continue
		}
		switch job.Status {
		case jobs.StatusQueued:
			if err := d.Dispatch(job.ID); err != nil {
				if errors.Is(err, ErrShuttingDown) {
					return report, err
				}
				continue
			}
			report.Requeued = append(report.Requeued, job.ID)
		case jobs.StatusProcessing, jobs.StatusAssembling:
			if err := d.store.UpdateStatus(ctx, job.ID, jobs.StatusError, 100, jobs.Failed(InterruptedMessage)); err != nil {
				d.logger.Warn("could not mark interrupted job",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err),
					logging.String(logging.FieldEventType, "recovery_mark_failed"),
				)
				continue
			}
			report.Interrupted = append(report.Interrupted, job.ID)
		}
	}

	if len(report.Requeued) > 0 || len(report.Interrupted) > 0 {
		d.logger.Info("recovered jobs after restart",
			logging.String(logging.FieldEventType, "recovery_complete"),
			logging.Int("requeued", len(report.Requeued)),
			logging.Int("interrupted", len(report.Interrupted)),
		)
	}
	return report, nil
}
