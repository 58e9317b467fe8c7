package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"facephrase/internal/config"
	"facephrase/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWatermark reports whether the optional watermark overlay is usable. A
// missing file passes because assembly simply skips the overlay.
func CheckWatermark(path string) Result {
	const name = "Watermark"
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (absent, overlay disabled)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (overlay enabled)", path)}
}

// CheckElevenLabs verifies that the ElevenLabs API accepts the configured key
// and knows the configured voice. It uses a single attempt with a short timeout.
func CheckElevenLabs(ctx context.Context, cfg config.Speech) Result {
	const name = "ElevenLabs"
	base := strings.TrimRight(strings.TrimSpace(cfg.ElevenLabsBaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}
	if strings.TrimSpace(cfg.ElevenLabsVoiceID) == "" {
		return Result{Name: name, Detail: "missing voice id"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/voices/"+cfg.ElevenLabsVoiceID, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("voice check failed (%v)", err)}
	}
	req.Header.Set("xi-api-key", cfg.ElevenLabsAPIKey)
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case http.StatusNotFound:
		return Result{Name: name, Detail: fmt.Sprintf("voice %q not found", cfg.ElevenLabsVoiceID)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("voice check failed (%d)", resp.StatusCode)}
	}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
// Both the daemon status endpoint and the CLI doctor command use this so the
// requirement list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
