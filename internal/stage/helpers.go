package stage

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"facephrase/internal/media"
	"facephrase/internal/services"
)

// PrepareOutput creates the parent directory of an artifact path.
func PrepareOutput(stageName, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stageName, "prepare output", "output path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrInternal, stageName, "prepare output",
			fmt.Sprintf("create %s", filepath.Dir(path)), err)
	}
	return nil
}

// RequireInput fails when path is missing or empty-named.
func RequireInput(stageName, label, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stageName, "check input", label+" path is empty", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "check input",
			fmt.Sprintf("%s not readable", label), err)
	}
	return nil
}

// ToolFailure tags a failed tool invocation with the stage and operation.
// The message of a *media.ToolError is kept verbatim so it reaches the job's
// error_message unchanged.
func ToolFailure(stageName, operation string, err error) error {
	if err == nil {
		return nil
	}
	var toolErr *media.ToolError
	if errors.As(err, &toolErr) {
		return services.Wrap(services.ErrToolExecution, stageName, operation, "", err)
	}
	return services.Wrap(services.ErrInternal, stageName, operation, "", err)
}

// CheckBinary reports a stage as unhealthy when binary is not on PATH.
func CheckBinary(name, binary string) Health {
	if strings.TrimSpace(binary) == "" {
		return Unhealthy(name, "binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Unhealthy(name, fmt.Sprintf("%s not found", binary))
	}
	return Healthy(name)
}
