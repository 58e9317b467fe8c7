package media

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one process execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution so stages can be tested without the real tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner executes commands via os/exec with no stdin attached.
type ExecRunner struct{}

// Run executes one command and captures stdout, stderr and the exit code.
// A process that could not be started reports exit code -1.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Invoke runs name through runner and converts any failure into a *ToolError
// carrying the captured stderr.
func Invoke(ctx context.Context, runner Runner, name string, args ...string) (Result, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	result, err := runner.Run(ctx, name, args...)
	if err != nil {
		return result, &ToolError{
			Tool:     name,
			Args:     append([]string(nil), args...),
			ExitCode: result.ExitCode,
			Stderr:   strings.TrimSpace(result.Stderr),
			Err:      err,
		}
	}
	return result, nil
}
