package preflight

import (
	"context"
	"strings"

	"facephrase/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Uploads directory", cfg.Paths.UploadsDir),
		CheckDirectoryAccess("Outputs directory", cfg.Paths.OutputsDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckWatermark(cfg.WatermarkPath()))

	if usesElevenLabs(cfg) {
		results = append(results, CheckElevenLabs(ctx, cfg.Speech))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func usesElevenLabs(cfg *config.Config) bool {
	switch cfg.Speech.Engine {
	case config.SpeechEngineElevenLabs:
		return true
	case config.SpeechEngineAuto:
		return strings.TrimSpace(cfg.Speech.ElevenLabsAPIKey) != ""
	default:
		return false
	}
}
