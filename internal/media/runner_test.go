package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"facephrase/internal/services"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "out" || strings.TrimSpace(result.Stderr) != "err" {
		t.Fatalf("unexpected output: %+v", result)
	}
}

func TestInvokeWrapsNonZeroExit(t *testing.T) {
	_, err := Invoke(context.Background(), ExecRunner{}, "sh", "-c", "echo broken pipe >&2; exit 3")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if toolErr.ExitCode != 3 || toolErr.Stderr != "broken pipe" {
		t.Fatalf("unexpected tool error: %+v", toolErr)
	}
	if err.Error() != "sh exited with status 3: broken pipe" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	_, err := Invoke(context.Background(), ExecRunner{}, "/nonexistent/facephrase-tool")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if toolErr.ExitCode != -1 || !strings.Contains(err.Error(), "could not be started") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution match")
	}
}

func TestToolErrorTruncatesLongStderr(t *testing.T) {
	err := &ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: strings.Repeat("x", 5000) + "tail"}
	msg := err.Error()
	if !strings.HasSuffix(msg, "tail") || len(msg) > maxStderrInMessage+64 {
		t.Fatalf("unexpected truncation: len=%d", len(msg))
	}
}

func TestToolErrorTruncationKeepsValidUTF8(t *testing.T) {
	// Each "é" is two bytes; the odd trailing byte puts the byte cut mid-rune.
	stderr := strings.Repeat("é", maxStderrInMessage) + "!"
	err := &ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: stderr}
	msg := err.Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("truncated message is not valid UTF-8: %q", msg[:40])
	}
	if !strings.HasSuffix(msg, "éé!") {
		t.Fatalf("expected the tail of stderr to be kept")
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]float64{
		"12.500000\n": 12.5,
		"":            0,
		"N/A":         0,
		"-1":          0,
		"NaN":         0,
		"+Inf":        0,
		"3\n4":        3,
	}
	for input, want := range cases {
		if got := parseDuration(input); got != want {
			t.Fatalf("parseDuration(%q) = %v, want %v", input, got, want)
		}
	}
}
