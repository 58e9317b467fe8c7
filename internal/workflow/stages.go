package workflow

import (
	"context"
	"log/slog"

	"facephrase/internal/animation"
	"facephrase/internal/assembly"
	"facephrase/internal/captions"
	"facephrase/internal/config"
	"facephrase/internal/media"
	"facephrase/internal/speech"
	"facephrase/internal/stage"
)

// SpeechStage turns a script into a WAV file.
type SpeechStage interface {
	stage.HealthChecker
	Synthesize(ctx context.Context, script, outPath string) error
}

// CaptionStage writes an SRT and returns the estimated spoken duration.
type CaptionStage interface {
	stage.HealthChecker
	Generate(ctx context.Context, script, outPath string) (float64, error)
}

// AnimationStage renders the photo into a clip sized from the estimate.
type AnimationStage interface {
	stage.HealthChecker
	Animate(ctx context.Context, imagePath string, estimate float64, outPath string) error
}

// AssemblyStage produces the final video and poster.
type AssemblyStage interface {
	stage.HealthChecker
	Assemble(ctx context.Context, req assembly.Request) (assembly.Result, error)
}

// StageSet bundles the concrete stage executors the orchestrator drives.
type StageSet struct {
	Speech    SpeechStage
	Captions  CaptionStage
	Animation AnimationStage
	Assembly  AssemblyStage
}

// NewStageSet wires the production executors on top of tool.
func NewStageSet(cfg *config.Config, tool *media.Tool, logger *slog.Logger) StageSet {
	return StageSet{
		Speech:    speech.NewSynthesizer(cfg, tool, logger),
		Captions:  captions.NewGenerator(),
		Animation: animation.NewKenBurns(tool, logger),
		Assembly:  assembly.NewAssembler(tool, cfg.WatermarkPath(), logger),
	}
}

// Health runs every stage health check, keyed by stage name.
func (s StageSet) Health(ctx context.Context) map[string]stage.Health {
	checkers := map[string]stage.HealthChecker{
		stage.Speech:    s.Speech,
		stage.Captions:  s.Captions,
		stage.Animation: s.Animation,
		stage.Assembly:  s.Assembly,
	}
	health := make(map[string]stage.Health, len(checkers))
	for _, name := range stage.Order {
		checker := checkers[name]
		if checker == nil {
			health[name] = stage.Unhealthy(name, "stage not configured")
			continue
		}
		health[name] = checker.HealthCheck(ctx)
	}
	return health
}
