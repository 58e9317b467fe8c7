package captions_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facephrase/internal/captions"
)

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   float64
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"two words clamp to minimum", "Hello world", 6},
		{"twelve words", strings.Repeat("word ", 12), 6},
		{"fifteen words", strings.Repeat("word ", 15), 7},
		{"long script clamps to maximum", strings.Repeat("word ", 60), 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := captions.EstimateDuration(tc.script); got != tc.want {
				t.Fatalf("EstimateDuration = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateWritesSingleCue(t *testing.T) {
	out := filepath.Join(t.TempDir(), "job", "captions.srt")
	duration, err := captions.NewGenerator().Generate(context.Background(), "Hello   world", out)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if duration != 6 {
		t.Fatalf("expected duration 6, got %v", duration)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:06,000\nHello world\n"
	if string(data) != want {
		t.Fatalf("unexpected srt:\n%q\nwant\n%q", data, want)
	}
}

func TestGenerateEmptyScriptWritesEmptyFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "captions.srt")
	duration, err := captions.NewGenerator().Generate(context.Background(), "   ", out)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if duration != 0 {
		t.Fatalf("expected zero duration, got %v", duration)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat srt: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got %d bytes", info.Size())
	}
}

func TestTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:      "00:00:00,000",
		7.3333: "00:00:07,333",
		15:     "00:00:15,000",
		3725.5: "01:02:05,500",
		-2:     "00:00:00,000",
	}
	for seconds, want := range cases {
		if got := captions.Timestamp(seconds); got != want {
			t.Fatalf("Timestamp(%v) = %q, want %q", seconds, got, want)
		}
	}
}

func TestFormatCueNormalizesText(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	cue := captions.FormatCue(1, 0, 6, "Cafe\u0301 time")
	if !strings.Contains(cue, "Caf\u00e9 time") {
		t.Fatalf("expected NFC text, got %q", cue)
	}
}
