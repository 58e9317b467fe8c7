package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/preflight"
	"facephrase/internal/workflow"
)

// Daemon coordinates the background runner and the HTTP API, and enforces
// single-instance execution per data directory.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *jobs.Store
	dispatcher *workflow.Dispatcher
	service    *api.JobService
	stages     workflow.HealthSource

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	server  *apiServer
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithJobService overrides the job service used by the HTTP handlers.
func WithJobService(svc *api.JobService) Option {
	return func(d *Daemon) {
		if svc != nil {
			d.service = svc
		}
	}
}

// WithStageHealth reports stage readiness in Status.
func WithStageHealth(source workflow.HealthSource) Option {
	return func(d *Daemon) {
		d.stages = source
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, dispatcher *workflow.Dispatcher, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, store, and dispatcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		dispatcher: dispatcher,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.service == nil {
		d.service = api.NewJobService(cfg, store, dispatcher, media.NewTool(cfg, media.WithLogger(logger)), logger)
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, recovers unfinished jobs and opens the API
// listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another facephrase daemon instance is already running")
	}

	d.runPreflight(ctx)

	if d.cfg.Workflow.RecoverOnStart {
		if _, err := d.dispatcher.Recover(ctx); err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("recover jobs: %w", err)
		}
	}

	if err := d.server.start(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("facephrase daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.address()),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop closes the listener, waits for running jobs within the shutdown grace
// and releases the daemon lock. Jobs still waiting for a slot stay queued.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}

	d.server.stop(ctx)

	grace := time.Duration(d.cfg.Workflow.ShutdownGraceSeconds) * time.Second
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := d.dispatcher.Shutdown(drainCtx); err != nil {
		d.logger.Warn("dispatcher shutdown incomplete",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_drain_timeout"),
			logging.String(logging.FieldErrorHint, "interrupted jobs are marked as errors on next start"),
		)
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("facephrase daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop(context.Background())
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Address returns the bound listener address, or the configured bind before
// Start.
func (d *Daemon) Address() string {
	return d.server.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	summary := d.dispatcher.Status(ctx, d.stages)
	dependencies := preflight.CheckSystemDeps(d.cfg)
	deps := make([]api.DependencyStatus, len(dependencies))
	for i, dep := range dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreDriver:  d.store.Driver(),
		StorePath:    d.store.Location(),
		LockFilePath: d.lockPath,
		Workflow:     api.FromStatusSummary(summary),
		Dependencies: deps,
	}
}

func (d *Daemon) runPreflight(ctx context.Context) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run facephrase doctor for a full report"),
		)
	}
	for _, dep := range preflight.CheckSystemDeps(d.cfg) {
		if dep.Available || dep.Optional {
			continue
		}
		logging.WarnWithContext(d.logger, "required binary missing", "dependency_missing",
			logging.String("dependency", dep.Name),
			logging.String("detail", dep.Detail),
			logging.String(logging.FieldErrorHint, "install the binary or set its path in the config"),
		)
	}
}
