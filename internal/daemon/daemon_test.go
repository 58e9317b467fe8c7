package daemon

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"facephrase/internal/api"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/testsupport"
	"facephrase/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t, testsupport.WithStubbedBinaries())
	d := f.daemon

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { d.Stop(context.Background()) })

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start on the same daemon to fail")
	}
	addr := d.Address()
	if addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("expected bound address, got %q", addr)
	}

	status := decode[api.DaemonStatus](t, get(t, "http://"+addr+"/api/health"))
	if !status.Running || status.StoreDriver != "sqlite" || status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !status.Workflow.Accepting || status.Workflow.Slots != f.cfg.Workflow.MaxConcurrentJobs {
		t.Fatalf("unexpected workflow status: %+v", status.Workflow)
	}
	if len(status.Workflow.StageHealth) != 4 {
		t.Fatalf("expected health for four stages, got %+v", status.Workflow.StageHealth)
	}
	for _, dep := range status.Dependencies {
		if !dep.Optional && !dep.Available {
			t.Fatalf("expected stubbed dependency %s to be available: %s", dep.Name, dep.Detail)
		}
	}

	d.Stop(ctx)
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to report stopped")
	}
	if _, err := http.Get("http://" + addr + "/api/health"); err == nil {
		t.Fatal("expected listener to be closed after Stop")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	f := newFixture(t)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { f.daemon.Stop(context.Background()) })

	other := workflow.NewDispatcher(f.cfg, f.store, nil, logging.NewNop())
	second, err := New(f.cfg, f.store, other, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestDaemonStartRecoversJobs(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workflow.RecoverOnStart = true

	queued := testsupport.NewJob(t, f.store, f.cfg, "Left in the queue")
	stuck := testsupport.NewJob(t, f.store, f.cfg, "Caught mid run")
	testsupport.MoveTo(t, f.store, f.cfg, stuck.ID, jobs.StatusAssembling)

	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { f.daemon.Stop(context.Background()) })

	if job := f.waitForTerminal(t, queued.ID); job.Status != jobs.StatusReady {
		t.Fatalf("expected requeued job to finish, got %s (%s)", job.Status, job.ErrorMessage)
	}
	job, err := f.store.Get(context.Background(), stuck.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != jobs.StatusError || job.ErrorMessage != workflow.InterruptedMessage {
		t.Fatalf("expected interrupted job to be marked as error, got %s %q", job.Status, job.ErrorMessage)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected New to reject missing dependencies")
	}
}
