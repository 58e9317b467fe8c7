package captions

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"facephrase/internal/services"
	"facephrase/internal/stage"
)

const (
	wordsPerSecond = 3.0
	leadSeconds    = 2.0
	// MinDuration and MaxDuration bound the estimate for non-empty scripts.
	MinDuration = 6.0
	MaxDuration = 15.0
)

// Generator produces caption files.
type Generator struct{}

// NewGenerator returns a caption generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// EstimateDuration returns clamp(words/3 + 2, 6, 15), or 0 when the script has
// no words.
func EstimateDuration(script string) float64 {
	words := len(strings.Fields(script))
	if words == 0 {
		return 0
	}
	estimate := float64(words)/wordsPerSecond + leadSeconds
	return math.Min(math.Max(estimate, MinDuration), MaxDuration)
}

// Generate writes an SRT with one cue spanning the estimated duration and
// returns that duration. A script with no words produces an empty file and 0.
func (g *Generator) Generate(ctx context.Context, script, outPath string) (float64, error) {
	if err := stage.PrepareOutput(stage.Captions, outPath); err != nil {
		return 0, err
	}
	duration := EstimateDuration(script)
	var body string
	if duration > 0 {
		body = FormatCue(1, 0, duration, script)
	}
	if err := os.WriteFile(outPath, []byte(body), 0o644); err != nil {
		return 0, services.Wrap(services.ErrInternal, stage.Captions, "write srt", "", err)
	}
	return duration, nil
}

// HealthCheck reports the caption stage as always ready.
func (g *Generator) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(stage.Captions)
}

// FormatCue renders one SRT block. Interior whitespace of text is collapsed
// to single spaces and the text is NFC-normalized.
func FormatCue(index int, start, end float64, text string) string {
	cleaned := norm.NFC.String(strings.Join(strings.Fields(text), " "))
	return fmt.Sprintf("%d\n%s --> %s\n%s\n", index, Timestamp(start), Timestamp(end), cleaned)
}

// Timestamp formats seconds as HH:MM:SS,mmm.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
