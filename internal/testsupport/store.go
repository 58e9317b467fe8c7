package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"facephrase/internal/config"
	"facephrase/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued job with a fresh id and an uploaded placeholder photo.
func NewJob(t testing.TB, store *jobs.Store, cfg *config.Config, script string) *jobs.Job {
	t.Helper()

	id := uuid.NewString()
	image := jobs.UploadPath(cfg.Paths.UploadsDir, id, ".png")
	WritePNG(t, image)

	job, err := store.Create(context.Background(), jobs.NewJob{
		ID:        id,
		ImagePath: image,
		Script:    script,
		Mode:      cfg.Animation.Mode,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// MoveTo drives a job through legal transitions until it reaches status.
func MoveTo(t testing.TB, store *jobs.Store, cfg *config.Config, id string, status jobs.Status) {
	t.Helper()

	ctx := context.Background()
	steps := map[jobs.Status][]jobs.Status{
		jobs.StatusProcessing: {jobs.StatusProcessing},
		jobs.StatusAssembling: {jobs.StatusProcessing, jobs.StatusAssembling},
		jobs.StatusReady:      {jobs.StatusProcessing, jobs.StatusAssembling, jobs.StatusReady},
		jobs.StatusError:      {jobs.StatusProcessing, jobs.StatusError},
	}
	progress := map[jobs.Status]int{
		jobs.StatusProcessing: 10,
		jobs.StatusAssembling: 80,
		jobs.StatusReady:      100,
		jobs.StatusError:      100,
	}
	for _, step := range steps[status] {
		var patch jobs.Patch
		switch step {
		case jobs.StatusReady:
			artifacts := jobs.ArtifactsFor(cfg.Paths.OutputsDir, id)
			patch = jobs.Completed(artifacts.Video, artifacts.Poster)
		case jobs.StatusError:
			patch = jobs.Failed("test failure")
		}
		if err := store.UpdateStatus(ctx, id, step, progress[step], patch); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step, err)
		}
	}
}
