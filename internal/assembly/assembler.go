package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/stage"
)

const (
	// Width and Height are the final video dimensions.
	Width  = 1080
	Height = 1920

	watermarkMargin = 40
)

// Request names the inputs and outputs of one assembly.
type Request struct {
	VideoPath    string
	AudioPath    string
	CaptionsPath string
	FinalPath    string
	PosterPath   string
}

// Result describes the assembled video.
type Result struct {
	FinalPath       string
	PosterPath      string
	DurationSeconds float64
	Width           int
	Height          int
}

// Assembler produces the final MP4 and poster.
type Assembler struct {
	tool      *media.Tool
	watermark string
	logger    *slog.Logger
}

// NewAssembler builds an assembler. watermarkPath may point at a file that
// does not exist; the overlay is applied only when it does.
func NewAssembler(tool *media.Tool, watermarkPath string, logger *slog.Logger) *Assembler {
	return &Assembler{
		tool:      tool,
		watermark: strings.TrimSpace(watermarkPath),
		logger:    logging.NewComponentLogger(logger, "assembly"),
	}
}

// Assemble encodes the final video, then grabs a poster frame at its probed
// midpoint. The reported dimensions are the fixed output canvas.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	if err := stage.RequireInput(stage.Assembly, "video", req.VideoPath); err != nil {
		return Result{}, err
	}
	if err := stage.RequireInput(stage.Assembly, "audio", req.AudioPath); err != nil {
		return Result{}, err
	}
	if err := stage.PrepareOutput(stage.Assembly, req.FinalPath); err != nil {
		return Result{}, err
	}
	if err := stage.PrepareOutput(stage.Assembly, req.PosterPath); err != nil {
		return Result{}, err
	}

	captions := hasContent(req.CaptionsPath)
	watermark := ""
	if fileExists(a.watermark) {
		watermark = a.watermark
	}
	logging.WithContext(ctx, a.logger).Debug("encoding final video",
		logging.Bool("captions", captions),
		logging.Bool("watermark", watermark != ""),
	)

	if err := a.tool.Transcode(ctx, EncodeArgs(req, captions, watermark)); err != nil {
		return Result{}, stage.ToolFailure(stage.Assembly, "encode final video", err)
	}

	duration := a.tool.ProbeDuration(ctx, req.FinalPath)
	midpoint := duration / 2
	if err := a.tool.Transcode(ctx, PosterArgs(req.FinalPath, midpoint, req.PosterPath)); err != nil {
		return Result{}, stage.ToolFailure(stage.Assembly, "extract poster", err)
	}

	return Result{
		FinalPath:       req.FinalPath,
		PosterPath:      req.PosterPath,
		DurationSeconds: duration,
		Width:           Width,
		Height:          Height,
	}, nil
}

// HealthCheck verifies the transcoder binary is reachable.
func (a *Assembler) HealthCheck(context.Context) stage.Health {
	return stage.CheckBinary(stage.Assembly, a.tool.FFmpeg())
}

// EncodeArgs builds the final encode. With a watermark the graph runs through
// -filter_complex with the watermark as the third input; otherwise a plain -vf
// chain is used.
func EncodeArgs(req Request, captions bool, watermark string) []string {
	canvas := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(%d-iw)/2:(%d-ih)/2:black",
		Width, Height, Width, Height, Width, Height,
	)
	args := []string{"-i", req.VideoPath, "-i", req.AudioPath}

	if watermark != "" {
		filters := []string{"[0:v]" + canvas + "[v0]"}
		chain := "[v0]"
		if captions {
			filters = append(filters, chain+"subtitles="+escapeFilterPath(req.CaptionsPath)+"[v1]")
			chain = "[v1]"
		}
		filters = append(filters, fmt.Sprintf("%s[2:v]overlay=W-w-%d:H-h-%d[vout]", chain, watermarkMargin, watermarkMargin))
		args = append(args,
			"-i", watermark,
			"-filter_complex", strings.Join(filters, ";"),
			"-map", "[vout]", "-map", "1:a:0",
		)
	} else {
		chain := canvas
		if captions {
			chain += ",subtitles=" + escapeFilterPath(req.CaptionsPath)
		}
		args = append(args, "-vf", chain)
	}

	return append(args,
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac", "-b:a", "128k",
		"-shortest",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		req.FinalPath,
	)
}

// PosterArgs extracts one frame at offset seconds.
func PosterArgs(videoPath string, offset float64, posterPath string) []string {
	if offset < 0 {
		offset = 0
	}
	return []string{
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		posterPath,
	}
}

var (
	// optionEscaper escapes a value for the filter's own option parser.
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	// graphEscaper escapes the result again for the filtergraph parser.
	graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `,`, `\,`, `;`, `\;`, `[`, `\[`, `]`, `\]`)
)

// escapeFilterPath escapes path for use as a filter option inside a
// filtergraph. ffmpeg unescapes twice, once per level.
func escapeFilterPath(path string) string {
	return graphEscaper.Replace(optionEscaper.Replace(path))
}

func hasContent(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
