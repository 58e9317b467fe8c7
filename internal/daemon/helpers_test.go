package daemon

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/notifications"
	"facephrase/internal/testsupport"
	"facephrase/internal/workflow"
)

type fixture struct {
	cfg        *config.Config
	store      *jobs.Store
	runner     *testsupport.FakeRunner
	dispatcher *workflow.Dispatcher
	daemon     *Daemon
	http       *httptest.Server
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	runner := testsupport.NewFakeRunner(4.5)
	logger := logging.NewNop()
	tool := media.NewTool(cfg, media.WithRunner(runner))
	stages := workflow.NewStageSet(cfg, tool, logger)
	orch := workflow.NewOrchestrator(cfg, store, stages, notifications.NewService(nil), logger)
	dispatcher := workflow.NewDispatcher(cfg, store, orch, logger)
	t.Cleanup(func() {
		_ = dispatcher.Shutdown(context.Background())
	})

	d, err := New(cfg, store, dispatcher, logger,
		WithJobService(api.NewJobService(cfg, store, dispatcher, tool, logger)),
		WithStageHealth(stages),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.server.watcher.interval = 10 * time.Millisecond

	srv := httptest.NewServer(d.server.server.Handler)
	t.Cleanup(srv.Close)

	return &fixture{cfg: cfg, store: store, runner: runner, dispatcher: dispatcher, daemon: d, http: srv}
}

func (f *fixture) waitForTerminal(t *testing.T, id string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

type upload struct {
	filename string
	content  []byte
	script   string
	consent  string
	omit     string
}

func validUpload() upload {
	return upload{
		filename: "me.png",
		content:  testsupport.PNGBytes(),
		script:   "Hello from the pipeline",
		consent:  "true",
	}
}

func (u upload) request(t *testing.T, url string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if u.omit != "script" {
		_ = writer.WriteField("script", u.script)
	}
	if u.omit != "consent" {
		_ = writer.WriteField("consent", u.consent)
	}
	if u.omit != "selfie" {
		part, err := writer.CreateFormFile("selfie", u.filename)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write(u.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url+"/api/generate", &body)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
