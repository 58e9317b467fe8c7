package workflow_test

import (
	"context"
	"sync"
	"testing"

	"facephrase/internal/assembly"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/notifications"
	"facephrase/internal/stage"
	"facephrase/internal/testsupport"
	"facephrase/internal/workflow"
)

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (s *stubNotifier) Events() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

type harness struct {
	cfg      *config.Config
	store    *jobs.Store
	runner   *testsupport.FakeRunner
	notifier *stubNotifier
	orch     *workflow.Orchestrator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	runner := testsupport.NewFakeRunner(6)
	tool := media.NewTool(cfg, media.WithRunner(runner))
	notifier := &stubNotifier{}
	stages := workflow.NewStageSet(cfg, tool, logging.NewNop())
	return &harness{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		notifier: notifier,
		orch:     workflow.NewOrchestrator(cfg, store, stages, notifier, logging.NewNop()),
	}
}

func (h *harness) withStages(mutate func(*workflow.StageSet)) {
	stages := h.orch.Stages()
	mutate(&stages)
	h.orch = workflow.NewOrchestrator(h.cfg, h.store, stages, h.notifier, logging.NewNop())
}

func (h *harness) get(t *testing.T, id string) *jobs.Job {
	t.Helper()
	job, err := h.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return job
}

// observedState is what a stage saw in the store when it started.
type observedState struct {
	stage    string
	status   jobs.Status
	progress int
}

type observer struct {
	store *jobs.Store
	mu    sync.Mutex
	seen  []observedState
}

func (o *observer) record(ctx context.Context, name, id string) {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return
	}
	o.mu.Lock()
	o.seen = append(o.seen, observedState{stage: name, status: job.Status, progress: job.Progress})
	o.mu.Unlock()
}

type observingSpeech struct {
	workflow.SpeechStage
	obs *observer
	id  string
}

func (s observingSpeech) Synthesize(ctx context.Context, script, out string) error {
	s.obs.record(ctx, stage.Speech, s.id)
	return s.SpeechStage.Synthesize(ctx, script, out)
}

type observingCaptions struct {
	workflow.CaptionStage
	obs *observer
	id  string
}

func (c observingCaptions) Generate(ctx context.Context, script, out string) (float64, error) {
	c.obs.record(ctx, stage.Captions, c.id)
	return c.CaptionStage.Generate(ctx, script, out)
}

type observingAnimation struct {
	workflow.AnimationStage
	obs *observer
	id  string
}

func (a observingAnimation) Animate(ctx context.Context, image string, estimate float64, out string) error {
	a.obs.record(ctx, stage.Animation, a.id)
	return a.AnimationStage.Animate(ctx, image, estimate, out)
}

type observingAssembly struct {
	workflow.AssemblyStage
	obs *observer
	id  string
}

func (a observingAssembly) Assemble(ctx context.Context, req assembly.Request) (assembly.Result, error) {
	a.obs.record(ctx, stage.Assembly, a.id)
	return a.AssemblyStage.Assemble(ctx, req)
}

type panickingAnimation struct {
	workflow.AnimationStage
}

func (panickingAnimation) Animate(context.Context, string, float64, string) error {
	panic("zoompan exploded")
}

// blockingRunner stands in for the orchestrator in dispatcher tests.
type blockingRunner struct {
	started chan string
	release chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	runs      map[string]int
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan string, 16),
		release: make(chan struct{}),
		runs:    make(map[string]int),
	}
}

func (b *blockingRunner) Run(ctx context.Context, id string) {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.runs[id]++
	b.mu.Unlock()

	b.started <- id
	<-b.release

	b.mu.Lock()
	b.active--
	b.mu.Unlock()
}

func (b *blockingRunner) MaxActive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive
}

func (b *blockingRunner) Runs(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runs[id]
}
