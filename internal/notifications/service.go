package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facephrase/internal/config"
)

const userAgent = "Facephrase-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobReady  Event = "job_ready"
	EventJobFailed Event = "job_failed"
	EventTest      Event = "test"
)

// Payload carries event fields. Keys used: jobId, script, videoPath, error.
type Payload map[string]any

// Service publishes job notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		ready:    cfg.Notifications.Ready,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	ready    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobReady:
		if !n.ready {
			return message{}, false
		}
		body := fmt.Sprintf("✅ Video ready: %s", shortID(payload.text("jobId")))
		if script := payload.text("script"); script != "" {
			body += fmt.Sprintf("\n“%s”", truncate(script, 80))
		}
		return message{
			title: "Facephrase - Video Ready",
			body:  body,
			tags:  []string{"facephrase", "job", "ready"},
		}, true
	case EventJobFailed:
		if !n.errors {
			return message{}, false
		}
		reason := payload.text("error")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "Facephrase - Error",
			body:     fmt.Sprintf("❌ Job %s failed: %s", shortID(payload.text("jobId")), truncate(reason, 300)),
			tags:     []string{"facephrase", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Facephrase - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"facephrase", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if id == "" {
		return "unknown"
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
