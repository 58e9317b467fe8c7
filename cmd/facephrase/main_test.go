package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	configPath string
	apiURL     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, base)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	tool := media.NewTool(cfg, media.WithRunner(testsupport.NewFakeRunner(3.2)))

	d, err := buildDaemon(cfg, store, tool, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { d.Stop(context.Background()) })

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		apiURL:     "http://" + d.Address(),
	}
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	data := filepath.Join(base, "data")
	content := fmt.Sprintf(`[paths]
data_dir = %q
assets_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"

[speech]
engine = "espeak"

[workflow]
max_concurrent_jobs = 1
shutdown_grace_seconds = 5
recover_on_start = false
`, data, filepath.Join(base, "assets"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--api", env.apiURL}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestCLISubmitWaitAndResult(t *testing.T) {
	env := setupCLITestEnv(t)
	image := filepath.Join(t.TempDir(), "me.png")
	testsupport.WritePNG(t, image)

	out, err := env.run(t, "submit", "--image", image, "--script", "Hello from the command line", "--json")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal([]byte(out), &submitted); err != nil {
		t.Fatalf("decode submit output: %v (%s)", err, out)
	}

	out, err = env.run(t, "watch", submitted.JobID, "--interval", "20ms")
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	requireContains(t, out, "ready:")
	requireContains(t, out, "100%")

	out, err = env.run(t, "result", submitted.JobID)
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	requireContains(t, out, env.apiURL+"/media/outputs/"+submitted.JobID+"/final.mp4")
	requireContains(t, out, "1080x1920")

	out, err = env.run(t, "status", submitted.JobID, "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var view api.StatusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if view.Status != "ready" || view.Progress != 100 {
		t.Fatalf("unexpected status: %+v", view)
	}
}

func TestCLISubmitRejectsLongScriptLocally(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "submit", "--image", "/tmp/me.png", "--script", strings.Repeat("x", 201))
	if err == nil || !strings.Contains(err.Error(), "limit is 200") {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestCLIStatusErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "status", "missing-job"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	queued := testsupport.NewJob(t, env.store, env.cfg, "Waiting")
	if _, err := env.run(t, "result", queued.ID); err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected not ready error, got %v", err)
	}
}

func TestCLIWatchFailsForErroredJob(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, env.cfg, "Doomed")
	testsupport.MoveTo(t, env.store, env.cfg, job.ID, jobs.StatusError)

	out, err := env.run(t, "watch", job.ID, "--interval", "10ms")
	if err == nil || !strings.Contains(err.Error(), api.GenericFailure) {
		t.Fatalf("expected failure error, got %v", err)
	}
	requireContains(t, out, "error:")
}

func TestCLIJobsListAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	queued := testsupport.NewJob(t, env.store, env.cfg, "Still queued")
	done := testsupport.NewJob(t, env.store, env.cfg, "Finished long ago")
	testsupport.MoveTo(t, env.store, env.cfg, done.ID, jobs.StatusReady)
	artifacts := jobs.ArtifactsFor(env.cfg.Paths.OutputsDir, done.ID)
	testsupport.WriteFile(t, artifacts.Video, 16)

	out, err := env.run(t, "jobs")
	if err != nil {
		t.Fatalf("jobs failed: %v", err)
	}
	requireContains(t, out, queued.ID)
	requireContains(t, out, done.ID)

	out, err = env.run(t, "jobs", "--status", "ready", "--json")
	if err != nil {
		t.Fatalf("jobs --status failed: %v", err)
	}
	var summaries []api.JobSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != done.ID {
		t.Fatalf("unexpected filtered jobs: %+v", summaries)
	}

	if _, err := env.run(t, "jobs", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, err = env.run(t, "jobs", "prune", "--older-than", "1ns", "--dry-run")
	if err != nil {
		t.Fatalf("prune --dry-run failed: %v", err)
	}
	requireContains(t, out, "1 job(s) eligible")

	out, err = env.run(t, "jobs", "prune", "--older-than", "1ns")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	requireContains(t, out, "Pruned 1 job(s)")
	if _, err := os.Stat(artifacts.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected output directory to be removed, got %v", err)
	}
	if _, err := os.Stat(filepath.Dir(done.ImagePath)); !os.IsNotExist(err) {
		t.Fatalf("expected upload directory to be removed, got %v", err)
	}
	if _, err := env.store.Get(context.Background(), queued.ID); err != nil {
		t.Fatalf("queued job must survive prune: %v", err)
	}
}

func TestCLIConfigInit(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "nested", "config.toml")
	run := func() error {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"config", "init", target})
		return cmd.Execute()
	}
	if err := run(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if err := run(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
}

func TestRenderJobsTable(t *testing.T) {
	job := &jobs.Job{ID: "abc", Status: jobs.StatusError, Progress: 100, Script: "Hi", ErrorMessage: "ffmpeg exited with status 1"}
	out := renderJobsTable([]*jobs.Job{job}, job.UpdatedAt)
	requireContains(t, out, "ffmpeg exited")
	requireContains(t, out, "100%")
}
