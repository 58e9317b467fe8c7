package animation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/stage"
)

const (
	// Width and Height are the output canvas in pixels.
	Width  = 1080
	Height = 1920
	// FPS is the output frame rate.
	FPS = 30

	fallbackDuration = 8.0
	minDuration      = 6.0
	maxDuration      = 15.0

	zoomStep = 0.0015
	zoomMax  = 1.2
)

// Transcoder is the subset of media.Tool the animator needs.
type Transcoder interface {
	Transcode(ctx context.Context, args []string) error
}

// KenBurns renders a slow centered zoom over the photo.
type KenBurns struct {
	tool   Transcoder
	ffmpeg string
	logger *slog.Logger
}

// NewKenBurns builds the animator on top of tool.
func NewKenBurns(tool *media.Tool, logger *slog.Logger) *KenBurns {
	return &KenBurns{
		tool:   tool,
		ffmpeg: tool.FFmpeg(),
		logger: logging.NewComponentLogger(logger, "animation"),
	}
}

// TargetDuration maps a caption estimate to the clip length: an estimate of 0
// falls back to 8 seconds, and the result is clamped to [6, 15].
func TargetDuration(estimate float64) float64 {
	if estimate <= 0 {
		estimate = fallbackDuration
	}
	return math.Min(math.Max(estimate, minDuration), maxDuration)
}

// Animate writes a Width x Height, FPS clip of the photo lasting
// TargetDuration(estimate) seconds.
func (k *KenBurns) Animate(ctx context.Context, imagePath string, estimate float64, outPath string) error {
	if err := stage.RequireInput(stage.Animation, "image", imagePath); err != nil {
		return err
	}
	if err := stage.PrepareOutput(stage.Animation, outPath); err != nil {
		return err
	}
	duration := TargetDuration(estimate)
	logging.WithContext(ctx, k.logger).Debug("rendering pan/zoom clip",
		logging.Float64("duration_seconds", duration),
		logging.String("image", imagePath),
	)
	if err := k.tool.Transcode(ctx, Args(imagePath, duration, outPath)); err != nil {
		return stage.ToolFailure(stage.Animation, "render clip", err)
	}
	return nil
}

// HealthCheck verifies the transcoder binary is reachable.
func (k *KenBurns) HealthCheck(context.Context) stage.Health {
	return stage.CheckBinary(stage.Animation, k.ffmpeg)
}

// Frames returns the number of output frames for a clip of duration seconds.
func Frames(duration float64) int {
	frames := int(math.Round(duration * FPS))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// Args builds the ffmpeg arguments for a clip of duration seconds. The photo
// is read as a single frame; zoompan expands it to Frames(duration) frames and
// -frames:v caps the output at that count.
func Args(imagePath string, duration float64, outPath string) []string {
	return []string{
		"-i", imagePath,
		"-vf", Filter(duration),
		"-frames:v", strconv.Itoa(Frames(duration)),
		"-r", strconv.Itoa(FPS),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outPath,
	}
}

// Filter returns the scale, zoompan and pad chain for a clip of duration seconds.
func Filter(duration float64) string {
	frames := Frames(duration)
	return fmt.Sprintf(
		"scale=-1:%d,"+
			"zoompan=z='min(zoom+%g,%g)':d=%d:fps=%d:x='iw*0.5*(1-1/zoom)':y='ih*0.5*(1-1/zoom)',"+
			"scale=w=%d:h=%d:force_original_aspect_ratio=decrease,"+
			"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		Height,
		zoomStep, zoomMax, frames, FPS,
		Width, Height,
		Width, Height,
	)
}
