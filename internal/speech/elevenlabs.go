package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"facephrase/internal/config"
	"facephrase/internal/media"
	"facephrase/internal/services"
	"facephrase/internal/stage"
)

const (
	elevenLabsUserAgent = "Facephrase-Go/0.1.0"
	maxErrorBody        = 2048
)

// elevenLabsEngine requests MP3 speech from the ElevenLabs API and transcodes
// it to mono WAV.
type elevenLabsEngine struct {
	baseURL string
	apiKey  string
	voiceID string
	model   string
	client  *http.Client
	tool    *media.Tool
}

func newElevenLabs(cfg config.Speech, tool *media.Tool) *elevenLabsEngine {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &elevenLabsEngine{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.ElevenLabsBaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.ElevenLabsAPIKey),
		voiceID: strings.TrimSpace(cfg.ElevenLabsVoiceID),
		model:   strings.TrimSpace(cfg.ElevenLabsModel),
		client:  &http.Client{Timeout: timeout},
		tool:    tool,
	}
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

func (e *elevenLabsEngine) Name() string { return config.SpeechEngineElevenLabs }

func (e *elevenLabsEngine) Synthesize(ctx context.Context, text, outPath string) error {
	if e.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, stage.Speech, "synthesize", "ElevenLabs API key is not configured", nil)
	}
	mp3Path := outPath + ".mp3"
	defer os.Remove(mp3Path)

	if err := e.download(ctx, text, mp3Path); err != nil {
		return err
	}
	args := []string{"-i", mp3Path, "-ac", "1", "-ar", fmt.Sprint(SampleRate), outPath}
	if err := e.tool.Transcode(ctx, args); err != nil {
		return stage.ToolFailure(stage.Speech, "transcode speech", err)
	}
	return nil
}

func (e *elevenLabsEngine) download(ctx context.Context, text, mp3Path string) error {
	body, err := json.Marshal(ttsRequest{Text: text, ModelID: e.model})
	if err != nil {
		return services.Wrap(services.ErrInternal, stage.Speech, "encode request", "", err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage.Speech, "build request", "", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("User-Agent", elevenLabsUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrToolExecution, stage.Speech, "elevenlabs request", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return services.Wrap(services.ErrToolExecution, stage.Speech, "elevenlabs request",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	file, err := os.Create(mp3Path)
	if err != nil {
		return services.Wrap(services.ErrInternal, stage.Speech, "write mp3", "", err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		return services.Wrap(services.ErrToolExecution, stage.Speech, "read elevenlabs audio", "", copyErr)
	}
	if closeErr != nil {
		return services.Wrap(services.ErrInternal, stage.Speech, "write mp3", "", closeErr)
	}
	if written == 0 {
		return services.Wrap(services.ErrToolExecution, stage.Speech, "read elevenlabs audio", "empty audio response", nil)
	}
	return nil
}

func (e *elevenLabsEngine) HealthCheck(context.Context) stage.Health {
	if e.apiKey == "" {
		return stage.Unhealthy(stage.Speech, "ElevenLabs API key missing")
	}
	if e.voiceID == "" {
		return stage.Unhealthy(stage.Speech, "ElevenLabs voice id missing")
	}
	return stage.CheckBinary(stage.Speech, e.tool.FFmpeg())
}
