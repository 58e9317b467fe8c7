package speech

import (
	"context"
	"strconv"
	"strings"

	"facephrase/internal/config"
	"facephrase/internal/media"
	"facephrase/internal/stage"
)

const defaultRate = 175

// espeakEngine shells out to an espeak-compatible command:
// <command> -s <rate> -w <out> -- <text>. The "--" keeps scripts that start
// with a dash from being parsed as options.
type espeakEngine struct {
	command string
	rate    int
	runner  media.Runner
}

func newEspeak(cfg config.Speech, runner media.Runner) *espeakEngine {
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = "espeak-ng"
	}
	rate := cfg.Rate
	if rate <= 0 {
		rate = defaultRate
	}
	return &espeakEngine{command: command, rate: rate, runner: runner}
}

func (e *espeakEngine) Name() string { return config.SpeechEngineEspeak }

func (e *espeakEngine) Synthesize(ctx context.Context, text, outPath string) error {
	_, err := media.Invoke(ctx, e.runner, e.command,
		"-s", strconv.Itoa(e.rate),
		"-w", outPath,
		"--", text,
	)
	if err != nil {
		return stage.ToolFailure(stage.Speech, "synthesize", err)
	}
	return nil
}

func (e *espeakEngine) HealthCheck(context.Context) stage.Health {
	return stage.CheckBinary(stage.Speech, e.command)
}
