package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"facephrase/internal/config"
	"facephrase/internal/logging"
)

// Tool invokes the configured transcoder and prober. It is safe for concurrent use.
type Tool struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
	logger  *slog.Logger
}

// Option customizes a Tool.
type Option func(*Tool)

// WithRunner replaces process execution, mainly for tests.
func WithRunner(runner Runner) Option {
	return func(t *Tool) {
		if runner != nil {
			t.runner = runner
		}
	}
}

// WithLogger attaches a logger for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		t.logger = logging.NewComponentLogger(logger, "media")
	}
}

// NewTool builds a Tool from the media section of cfg.
func NewTool(cfg *config.Config, opts ...Option) *Tool {
	t := &Tool{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		runner:  ExecRunner{},
		logger:  logging.NewNop(),
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.Media.FFmpegBinary) != "" {
			t.ffmpeg = cfg.Media.FFmpegBinary
		}
		if strings.TrimSpace(cfg.Media.FFprobeBinary) != "" {
			t.ffprobe = cfg.Media.FFprobeBinary
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FFmpeg returns the transcoder binary.
func (t *Tool) FFmpeg() string { return t.ffmpeg }

// FFprobe returns the prober binary.
func (t *Tool) FFprobe() string { return t.ffprobe }

// Runner exposes the process runner so other external tools share it.
func (t *Tool) Runner() Runner { return t.runner }

// Transcode runs ffmpeg non-interactively with overwrite enabled. A non-zero
// exit yields a *ToolError carrying stderr. There is no retry.
func (t *Tool) Transcode(ctx context.Context, args []string) error {
	full := make([]string, 0, len(args)+3)
	full = append(full, "-y", "-nostdin", "-hide_banner")
	full = append(full, args...)
	_, err := Invoke(ctx, t.runner, t.ffmpeg, full...)
	return err
}

// ProbeDuration returns the media duration in seconds, or 0 when the file
// cannot be probed. Failures are logged at debug level and never returned.
func (t *Tool) ProbeDuration(ctx context.Context, path string) float64 {
	result, err := Invoke(ctx, t.runner, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		t.logger.Debug("duration probe failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return 0
	}
	return parseDuration(result.Stdout)
}

// Inspect runs a full JSON ffprobe inspection of path.
func (t *Tool) Inspect(ctx context.Context, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe inspect: empty path")
	}
	result, err := Invoke(ctx, t.runner, t.ffprobe,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path,
	)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var probe ProbeResult
	if err := json.Unmarshal([]byte(result.Stdout), &probe); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return probe, nil
}
