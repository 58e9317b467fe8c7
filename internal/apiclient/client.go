package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"facephrase/internal/api"
	"facephrase/internal/services"
)

const defaultTimeout = 30 * time.Second

// Client talks to a running daemon.
type Client struct {
	base string
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New returns a client for the daemon at baseURL (for example
// http://127.0.0.1:8001).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string { return c.base }

// APIError is a non-2xx daemon response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// Is maps HTTP statuses onto the services error markers.
func (e *APIError) Is(target error) bool {
	switch target {
	case services.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case services.ErrNotReady:
		return e.StatusCode == http.StatusConflict
	case services.ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	default:
		return false
	}
}

// Submit uploads a photo and script and returns the new job id. Consent is
// always sent as granted; the CLI operator is the subject.
func (c *Client) Submit(ctx context.Context, imagePath, script string) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("script", script); err != nil {
		return "", err
	}
	if err := writer.WriteField("consent", "true"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("selfie", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/generate", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp api.SubmitResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Status returns the polling view of a job.
func (c *Client) Status(ctx context.Context, id string) (api.StatusView, error) {
	var view api.StatusView
	err := c.get(ctx, "/api/status", url.Values{"jobId": {id}}, &view)
	return view, err
}

// Result returns the media URLs of a ready job.
func (c *Client) Result(ctx context.Context, id string) (api.ResultView, error) {
	var view api.ResultView
	err := c.get(ctx, "/api/result", url.Values{"jobId": {id}}, &view)
	return view, err
}

// Health returns the daemon status report.
func (c *Client) Health(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.get(ctx, "/api/health", nil, &status)
	return status, err
}

// Jobs lists jobs, optionally filtered by status names.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]api.JobSummary, error) {
	var items []api.JobSummary
	err := c.get(ctx, "/api/jobs", url.Values{"status": statuses}, &items)
	return items, err
}

// MediaURL resolves a /media path from a result into an absolute URL.
func (c *Client) MediaURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base + path
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.base + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `facephrase serve`", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
