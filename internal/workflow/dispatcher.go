package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/services"
)

var (
	// ErrAlreadyRunning is returned when a job id already has a run in flight.
	ErrAlreadyRunning = errors.New("job already running")
	// ErrShuttingDown is returned once Shutdown has been called.
	ErrShuttingDown = errors.New("dispatcher shutting down")
)

// JobRunner executes one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, id string)
}

// Dispatcher schedules orchestrator runs in the background.
type Dispatcher struct {
	store  *jobs.Store
	runner JobRunner
	logger *slog.Logger
	sem    *semaphore.Weighted
	slots  int

	// base is canceled by Shutdown to abandon slot waits. Runs themselves use a
	// detached copy and are never canceled.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
	running  int
	closed   bool
	lastErr  error
}

// NewDispatcher builds a dispatcher sized by [workflow] max_concurrent_jobs.
func NewDispatcher(cfg *config.Config, store *jobs.Store, runner JobRunner, logger *slog.Logger) *Dispatcher {
	slots := 1
	if cfg != nil && cfg.Workflow.MaxConcurrentJobs > 0 {
		slots = cfg.Workflow.MaxConcurrentJobs
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:    store,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
		sem:      semaphore.NewWeighted(int64(slots)),
		slots:    slots,
		base:     base,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
}

// Submit records a queued job and schedules its run before returning. An
// empty ID is replaced with a fresh UUID. Run failures are never reported
// here; they end up as the job's terminal state.
func (d *Dispatcher) Submit(ctx context.Context, req jobs.NewJob) (*jobs.Job, error) {
	if d.isClosed() {
		return nil, ErrShuttingDown
	}
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	if strings.TrimSpace(req.Mode) == "" {
		req.Mode = config.AnimationKenBurns
	}
	job, err := d.store.Create(ctx, req)
	if err != nil {
		d.setLastError(err)
		return nil, fmt.Errorf("submit job: %w", err)
	}
	if err := d.Dispatch(job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// Dispatch schedules a run for an existing job. It fails with
// ErrAlreadyRunning when the id already has a run in flight.
func (d *Dispatcher) Dispatch(id string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrShuttingDown
	}
	if _, busy := d.inflight[id]; busy {
		d.mu.Unlock()
		return fmt.Errorf("dispatch %s: %w", id, ErrAlreadyRunning)
	}
	d.inflight[id] = struct{}{}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(id)
	return nil
}

func (d *Dispatcher) run(id string) {
	defer d.wg.Done()
	defer d.release(id)

	ctx := services.WithJobID(d.base, id)
	logger := logging.WithContext(ctx, d.logger)
	if err := d.sem.Acquire(ctx, 1); err != nil {
		logger.Info("slot wait abandoned; job stays queued",
			logging.String(logging.FieldEventType, "dispatch_abandoned"),
		)
		return
	}
	defer d.sem.Release(1)

	d.mu.Lock()
	d.running++
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running--
		d.mu.Unlock()
	}()

	d.runner.Run(context.WithoutCancel(ctx), id)
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

// InFlight reports whether id has a scheduled or running run.
func (d *Dispatcher) InFlight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[id]
	return ok
}

// Shutdown stops accepting work, abandons runs still waiting for a slot and
// waits for running jobs until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		running := d.running
		d.mu.Unlock()
		logging.WarnWithContext(d.logger, "shutdown grace expired with jobs still running", "shutdown_timeout",
			logging.Int("running", running),
			logging.String(logging.FieldErrorHint, "interrupted jobs are marked as errors on next start"),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Dispatcher) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}
