package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"facephrase/internal/config"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/stage"
)

// SampleRate is the output sample rate for silence and transcoded speech.
const SampleRate = 44100

// Engine turns non-empty text into a WAV file at outPath.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, outPath string) error
	HealthCheck(ctx context.Context) stage.Health
}

// Synthesizer is the speech stage executor.
type Synthesizer struct {
	engine Engine
	tool   *media.Tool
	logger *slog.Logger
}

// NewSynthesizer selects an engine from cfg. The auto engine prefers
// ElevenLabs when an API key is configured.
func NewSynthesizer(cfg *config.Config, tool *media.Tool, logger *slog.Logger) *Synthesizer {
	logger = logging.NewComponentLogger(logger, "speech")
	return &Synthesizer{
		engine: selectEngine(cfg, tool, logger),
		tool:   tool,
		logger: logger,
	}
}

// NewSynthesizerWithEngine wires an explicit engine.
func NewSynthesizerWithEngine(engine Engine, tool *media.Tool, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		engine: engine,
		tool:   tool,
		logger: logging.NewComponentLogger(logger, "speech"),
	}
}

func selectEngine(cfg *config.Config, tool *media.Tool, logger *slog.Logger) Engine {
	engine := config.SpeechEngineAuto
	if cfg != nil {
		engine = strings.ToLower(strings.TrimSpace(cfg.Speech.Engine))
	}
	switch engine {
	case config.SpeechEngineElevenLabs:
		return newElevenLabs(cfg.Speech, tool)
	case config.SpeechEngineEspeak:
		return newEspeak(cfg.Speech, tool.Runner())
	default:
		if cfg != nil && strings.TrimSpace(cfg.Speech.ElevenLabsAPIKey) != "" {
			return newElevenLabs(cfg.Speech, tool)
		}
		var speech config.Speech
		if cfg != nil {
			speech = cfg.Speech
		}
		logger.Debug("no ElevenLabs key configured; using local speech command")
		return newEspeak(speech, tool.Runner())
	}
}

// Engine returns the active engine.
func (s *Synthesizer) Engine() Engine { return s.engine }

// Synthesize writes script as speech to outPath. A script with no words
// produces one second of mono silence instead of invoking the engine.
func (s *Synthesizer) Synthesize(ctx context.Context, script, outPath string) error {
	if err := stage.PrepareOutput(stage.Speech, outPath); err != nil {
		return err
	}
	text := strings.Join(strings.Fields(script), " ")
	if text == "" {
		logging.WithContext(ctx, s.logger).Debug("empty script; writing silence")
		if err := s.tool.Transcode(ctx, SilenceArgs(1, outPath)); err != nil {
			return stage.ToolFailure(stage.Speech, "write silence", err)
		}
		return nil
	}
	logging.WithContext(ctx, s.logger).Debug("synthesizing speech",
		logging.String("engine", s.engine.Name()),
		logging.Int("characters", len([]rune(text))),
	)
	return s.engine.Synthesize(ctx, text, outPath)
}

// HealthCheck delegates to the active engine.
func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	return s.engine.HealthCheck(ctx)
}

// SilenceArgs builds ffmpeg arguments for seconds of mono silence.
func SilenceArgs(seconds float64, outPath string) []string {
	return []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", SampleRate),
		"-t", fmt.Sprintf("%g", seconds),
		outPath,
	}
}
