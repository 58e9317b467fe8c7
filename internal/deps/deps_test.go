package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"facephrase/internal/config"
	"facephrase/internal/deps"
	"facephrase/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Resolved != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestRequirementsFollowSpeechEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	cfg.Speech.Engine = config.SpeechEngineElevenLabs
	for _, req := range deps.Requirements(cfg) {
		if req.Name == "espeak-ng" {
			t.Fatal("elevenlabs engine must not require espeak-ng")
		}
	}

	cfg.Speech.Engine = config.SpeechEngineEspeak
	if !hasRequired(deps.Requirements(cfg), "espeak-ng") {
		t.Fatal("espeak engine must require espeak-ng")
	}

	cfg.Speech.Engine = config.SpeechEngineAuto
	cfg.Speech.ElevenLabsAPIKey = "key"
	for _, req := range deps.Requirements(cfg) {
		if req.Name == "espeak-ng" && !req.Optional {
			t.Fatal("espeak-ng should be optional when an ElevenLabs key is configured")
		}
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true},
		{Name: "FFprobe"},
		{Name: "espeak-ng", Optional: true},
	}
	missing := deps.Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "FFprobe" {
		t.Fatalf("unexpected missing set: %+v", missing)
	}
}

func hasRequired(reqs []deps.Requirement, name string) bool {
	for _, req := range reqs {
		if req.Name == name && !req.Optional {
			return true
		}
	}
	return false
}
