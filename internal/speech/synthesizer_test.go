package speech_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facephrase/internal/config"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/services"
	"facephrase/internal/speech"
	"facephrase/internal/testsupport"
)

func newTool(t *testing.T, cfg *config.Config, runner *testsupport.FakeRunner) *media.Tool {
	t.Helper()
	return media.NewTool(cfg, media.WithRunner(runner))
}

func TestEspeakEngineInvocation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := testsupport.NewFakeRunner(2)
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), logging.NewNop())
	out := filepath.Join(t.TempDir(), "job", "audio.wav")

	if err := synth.Synthesize(context.Background(), "Hello   world", out); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	calls := runner.CallsTo("espeak-ng")
	if len(calls) != 1 {
		t.Fatalf("expected one espeak call, got %+v", runner.Calls())
	}
	want := []string{"-s", "175", "-w", out, "--", "Hello world"}
	if strings.Join(calls[0].Args, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected args %v, want %v", calls[0].Args, want)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected wav output: %v", err)
	}
}

func TestEspeakScriptStartingWithDashIsText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := testsupport.NewFakeRunner(2)
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), logging.NewNop())

	for _, script := range []string{"--stdout hello there", "-v hi"} {
		out := filepath.Join(t.TempDir(), "audio.wav")
		if err := synth.Synthesize(context.Background(), script, out); err != nil {
			t.Fatalf("Synthesize(%q) failed: %v", script, err)
		}
		calls := runner.CallsTo("espeak-ng")
		args := calls[len(calls)-1].Args
		if len(args) < 2 || args[len(args)-2] != "--" || args[len(args)-1] != script {
			t.Fatalf("script %q must follow an end-of-options marker, got %v", script, args)
		}
	}
}

func TestWhitespaceScriptWritesSilence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := testsupport.NewFakeRunner(1)
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), nil)
	out := filepath.Join(t.TempDir(), "audio.wav")

	if err := synth.Synthesize(context.Background(), " \n\t", out); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(runner.CallsTo("espeak")) != 0 {
		t.Fatal("speech engine must not run for an empty script")
	}
	calls := runner.CallsTo("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	if src, _ := calls[0].After("-i"); src != "anullsrc=r=44100:cl=mono" {
		t.Fatalf("unexpected silence source %q", src)
	}
	if dur, _ := calls[0].After("-t"); dur != "1" {
		t.Fatalf("expected one second of silence, got %q", dur)
	}
}

func TestEspeakFailureSurfacesStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := testsupport.NewFakeRunner(1)
	runner.FailWhen = func(call testsupport.Call) (string, bool) {
		return "voice not found", call.Tool() == "espeak-ng"
	}
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), nil)

	err := synth.Synthesize(context.Background(), "Hello", filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool execution error, got %v", err)
	}
	if !strings.Contains(err.Error(), "voice not found") {
		t.Fatalf("expected stderr in error, got %q", err.Error())
	}
}

func TestAutoEngineSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.Engine = config.SpeechEngineAuto
	tool := newTool(t, cfg, testsupport.NewFakeRunner(1))

	if name := speech.NewSynthesizer(cfg, tool, nil).Engine().Name(); name != config.SpeechEngineEspeak {
		t.Fatalf("expected espeak without key, got %s", name)
	}
	cfg.Speech.ElevenLabsAPIKey = "secret"
	if name := speech.NewSynthesizer(cfg, tool, nil).Engine().Name(); name != config.SpeechEngineElevenLabs {
		t.Fatalf("expected elevenlabs with key, got %s", name)
	}
}

func TestElevenLabsEngine(t *testing.T) {
	var gotKey, gotPath, gotAccept string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Speech.Engine = config.SpeechEngineElevenLabs
	cfg.Speech.ElevenLabsAPIKey = "secret"
	cfg.Speech.ElevenLabsVoiceID = "voice-1"
	cfg.Speech.ElevenLabsBaseURL = server.URL + "/v1/"
	runner := testsupport.NewFakeRunner(1)
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), nil)
	out := filepath.Join(t.TempDir(), "audio.wav")

	if err := synth.Synthesize(context.Background(), "Hello world", out); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotKey != "secret" || gotAccept != "audio/mpeg" || gotPath != "/v1/text-to-speech/voice-1" {
		t.Fatalf("unexpected request: key=%q accept=%q path=%q", gotKey, gotAccept, gotPath)
	}
	if gotBody["text"] != "Hello world" || gotBody["model_id"] != cfg.Speech.ElevenLabsModel {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	calls := runner.CallsTo("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected one transcode, got %d", len(calls))
	}
	if src, _ := calls[0].After("-i"); src != out+".mp3" {
		t.Fatalf("unexpected transcode input %q", src)
	}
	if ch, _ := calls[0].After("-ac"); ch != "1" {
		t.Fatalf("expected mono output, got %q", ch)
	}
	if _, err := os.Stat(out + ".mp3"); !os.IsNotExist(err) {
		t.Fatalf("expected temporary mp3 to be removed, got %v", err)
	}
}

func TestElevenLabsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Speech.Engine = config.SpeechEngineElevenLabs
	cfg.Speech.ElevenLabsAPIKey = "secret"
	cfg.Speech.ElevenLabsBaseURL = server.URL
	runner := testsupport.NewFakeRunner(1)
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, runner), nil)

	err := synth.Synthesize(context.Background(), "Hello", filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool execution error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 401") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if len(runner.Calls()) != 0 {
		t.Fatal("transcode must not run after a failed request")
	}
}

func TestHealthCheckReportsMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.Engine = config.SpeechEngineElevenLabs
	synth := speech.NewSynthesizer(cfg, newTool(t, cfg, testsupport.NewFakeRunner(1)), nil)
	health := synth.HealthCheck(context.Background())
	if health.Ready || !strings.Contains(health.Detail, "API key") {
		t.Fatalf("unexpected health: %+v", health)
	}
}
