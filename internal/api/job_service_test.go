package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/media"
	"facephrase/internal/services"
	"facephrase/internal/testsupport"
)

type storeSubmitter struct {
	store *jobs.Store
	calls int
}

func (s *storeSubmitter) Submit(ctx context.Context, req jobs.NewJob) (*jobs.Job, error) {
	s.calls++
	if req.ID == "" {
		req.ID = "generated-id"
	}
	return s.store.Create(ctx, req)
}

type serviceFixture struct {
	cfg    *config.Config
	store  *jobs.Store
	runner *testsupport.FakeRunner
	svc    *api.JobService
}

func newServiceFixture(t *testing.T) (serviceFixture, func(script string) *jobs.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := testsupport.NewFakeRunner(6.9)
	tool := media.NewTool(cfg, media.WithRunner(runner))
	svc := api.NewJobService(cfg, store, &storeSubmitter{store: store}, tool, nil)
	newJob := func(script string) *jobs.Job {
		return testsupport.NewJob(t, store, cfg, script)
	}
	return serviceFixture{cfg: cfg, store: store, runner: runner, svc: svc}, newJob
}

func TestSubmitReturnsQueuedJobID(t *testing.T) {
	f, _ := newServiceFixture(t)
	id, err := f.svc.Submit(context.Background(), api.SubmitRequest{ID: "job-42", Script: "Hello world", ImagePath: "/tmp/a.png"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "job-42" {
		t.Fatalf("unexpected id %q", id)
	}
	view, err := f.svc.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Status != "queued" || view.Progress != 0 || view.ETASeconds != 30 {
		t.Fatalf("unexpected status view: %+v", view)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	f, _ := newServiceFixture(t)
	_, err := f.svc.Status(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusForFailedJobHidesDetail(t *testing.T) {
	f, newJob := newServiceFixture(t)
	job := newJob("Hello")
	if err := f.store.UpdateStatus(context.Background(), job.ID, jobs.StatusProcessing, 10, jobs.Patch{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := f.store.UpdateStatus(context.Background(), job.ID, jobs.StatusError, 100, jobs.Failed("ffmpeg exited with status 1: boom")); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	view, err := f.svc.Status(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Status != "error" || view.Progress != 100 || view.ETASeconds != 0 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Error != api.GenericFailure || view.Detail != "ffmpeg exited with status 1: boom" {
		t.Fatalf("unexpected error fields: %+v", view)
	}
	encoded, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(encoded), "boom") {
		t.Fatalf("raw detail must not be serialized: %s", encoded)
	}
}

func TestResultNotReady(t *testing.T) {
	f, newJob := newServiceFixture(t)
	job := newJob("Hello")
	_, err := f.svc.Result(context.Background(), job.ID)
	if !errors.Is(err, api.ErrNotReady) || !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if _, err := f.svc.Result(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResultForReadyJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := testsupport.NewFakeRunner(6.9)
	svc := api.NewJobService(cfg, store, &storeSubmitter{store: store}, media.NewTool(cfg, media.WithRunner(runner)), nil)
	job := testsupport.NewJob(t, store, cfg, "Hello world")
	testsupport.MoveTo(t, store, cfg, job.ID, jobs.StatusReady)

	view, err := svc.Result(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	wantVideo := "/media/outputs/" + job.ID + "/final.mp4"
	wantPoster := "/media/outputs/" + job.ID + "/poster.jpg"
	if view.VideoURL != wantVideo || view.PosterURL != wantPoster {
		t.Fatalf("unexpected urls: %+v", view)
	}
	if view.DurationSec != 6 || view.Width != 1080 || view.Height != 1920 {
		t.Fatalf("unexpected properties: %+v", view)
	}
}

func TestResultFallsBackWhenInspectFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := testsupport.NewFakeRunner(6.9)
	runner.ProbeFails = true
	svc := api.NewJobService(cfg, store, &storeSubmitter{store: store}, media.NewTool(cfg, media.WithRunner(runner)), nil)
	job := testsupport.NewJob(t, store, cfg, "Hello world")
	testsupport.MoveTo(t, store, cfg, job.ID, jobs.StatusReady)

	view, err := svc.Result(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if view.DurationSec != 0 || view.Width != 1080 || view.Height != 1920 {
		t.Fatalf("unexpected fallback view: %+v", view)
	}
}

func TestMediaURL(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/data/outputs/a/final.mp4", "/media/outputs/a/final.mp4"},
		{"/elsewhere/final.mp4", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := api.MediaURL("/data", tc.path); got != tc.want {
			t.Fatalf("MediaURL(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestListReturnsSummaries(t *testing.T) {
	f, newJob := newServiceFixture(t)
	newJob("first")
	second := newJob("second")
	testsupport.MoveTo(t, f.store, f.cfg, second.ID, jobs.StatusProcessing)

	active, err := f.svc.List(context.Background(), jobs.StatusProcessing)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID || active[0].Stage != "Speech" {
		t.Fatalf("unexpected summaries: %+v", active)
	}
	if active[0].CreatedAt == "" {
		t.Fatal("expected formatted timestamps")
	}
}
