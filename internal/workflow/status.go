package workflow

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Accepting   bool
	Slots       int
	Running     int
	InFlight    int
	LastError   string
	JobStats    map[jobs.Status]int
	StageHealth map[string]stage.Health
}

// HealthSource reports stage readiness.
type HealthSource interface {
	Health(ctx context.Context) map[string]stage.Health
}

// Status returns the latest dispatcher information and, when stages is
// non-nil, per-stage health.
func (d *Dispatcher) Status(ctx context.Context, stages HealthSource) StatusSummary {
	d.mu.Lock()
	summary := StatusSummary{
		Accepting: !d.closed,
		Slots:     d.slots,
		Running:   d.running,
		InFlight:  len(d.inflight),
	}
	if d.lastErr != nil {
		summary.LastError = d.lastErr.Error()
	}
	d.mu.Unlock()

	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.JobStats = stats
	if stages != nil {
		summary.StageHealth = stages.Health(ctx)
	}
	return summary
}

// StageFor maps a job's status and progress to the stage currently running,
// or "" when the job is not mid-run.
func StageFor(status jobs.Status, progress int) string {
	switch status {
	case jobs.StatusProcessing:
		switch {
		case progress < ProgressSpeech:
			return stage.Speech
		case progress < ProgressCaptions:
			return stage.Captions
		default:
			return stage.Animation
		}
	case jobs.StatusAssembling:
		return stage.Assembly
	default:
		return ""
	}
}

// StageLabel returns a display label for the job's position in the pipeline.
func StageLabel(status jobs.Status, progress int) string {
	// Casers carry state and are not shared across goroutines.
	caser := cases.Title(language.English)
	if name := StageFor(status, progress); name != "" {
		return caser.String(name)
	}
	return caser.String(string(status))
}
