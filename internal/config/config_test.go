package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"facephrase/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FACEPHRASE_API_BIND", "PORT", "ALLOWED_ORIGINS", "FFMPEG_BIN", "FFPROBE_BIN",
		"ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID", "TALKING_HEAD_MODE", "DATABASE_URL", "NTFY_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "facephrase")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.UploadsDir != filepath.Join(wantData, "uploads") {
		t.Fatalf("unexpected uploads dir: %q", cfg.Paths.UploadsDir)
	}
	if cfg.Paths.OutputsDir != filepath.Join(wantData, "outputs") {
		t.Fatalf("unexpected outputs dir: %q", cfg.Paths.OutputsDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8001" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Animation.Mode != config.AnimationKenBurns {
		t.Fatalf("unexpected animation mode: %q", cfg.Animation.Mode)
	}
	if cfg.Speech.Engine != config.SpeechEngineAuto {
		t.Fatalf("unexpected speech engine: %q", cfg.Speech.Engine)
	}
	if cfg.Workflow.MaxConcurrentJobs != 2 {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.MaxConcurrentJobs)
	}
	if cfg.WatermarkPath() != filepath.Join(tempHome, ".config", "facephrase", "assets", "watermark.png") {
		t.Fatalf("unexpected watermark path: %q", cfg.WatermarkPath())
	}
}

func TestLoadHonoursEnvironmentFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FFMPEG_BIN", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("ELEVENLABS_API_KEY", "secret")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice-1")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example/,http://a.example")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Media.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Media.FFmpegBinary)
	}
	if cfg.Media.FFprobeBinary != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("expected ffprobe next to ffmpeg, got %q", cfg.Media.FFprobeBinary)
	}
	if cfg.Speech.ElevenLabsAPIKey != "secret" || cfg.Speech.ElevenLabsVoiceID != "voice-1" {
		t.Fatalf("unexpected elevenlabs settings: %+v", cfg.Speech)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.APIBaseURL() != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected api base url: %q", cfg.APIBaseURL())
	}
	want := []string{"http://a.example", "http://b.example"}
	if strings.Join(cfg.Paths.AllowedOrigins, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected origins: %v", cfg.Paths.AllowedOrigins)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "facephrase.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/fp",
		},
		"workflow": map[string]any{
			"max_concurrent_jobs": 4,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(home, "fp") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Workflow.MaxConcurrentJobs != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.MaxConcurrentJobs)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cases := []struct {
		name    string
		body    string
		wantKey string
	}{
		{name: "animation mode", body: "[animation]\nmode = \"lipsync\"\n", wantKey: "animation.mode"},
		{name: "store driver", body: "[store]\ndriver = \"mysql\"\n", wantKey: "store.driver"},
		{name: "postgres without dsn", body: "[store]\ndriver = \"postgres\"\n", wantKey: "store.dsn"},
		{name: "elevenlabs without key", body: "[speech]\nengine = \"elevenlabs\"\n", wantKey: "speech.elevenlabs_api_key"},
		{name: "workers", body: "[workflow]\nmax_concurrent_jobs = -1\n", wantKey: "workflow.max_concurrent_jobs"},
		{name: "log level", body: "[logging]\nlevel = \"trace\"\n", wantKey: "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantKey) {
				t.Fatalf("expected error to mention %q, got %v", tc.wantKey, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config not loadable: exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadsDir = filepath.Join(base, "data", "up")
	cfg.Paths.OutputsDir = filepath.Join(base, "data", "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.UploadsDir, cfg.Paths.OutputsDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
